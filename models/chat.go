package models

// Chat represents a conversation shown in the sidebar
type Chat struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsGroup      bool      `json:"isGroup"`
	LastMessage  Message   `json:"lastMessage"`
	Messages     []Message `json:"messages"`
	ProfileImage string    `json:"profileImage,omitempty"` // URL to profile image
}

// ChatList is the room list returned by the server for the authenticated user
type ChatList struct {
	Private []*Chat `json:"private"`
	Groups  []*Chat `json:"groups"`
}
