package models

import (
	"time"
)

// Tipi di chat supportati dal server
const (
	ChatTypePrivate   = "private"
	ChatTypeGroup     = "group"
	ChatTypeBroadcast = "broadcast"
)

// Message represents a chat message
type Message struct {
	ID        string     `json:"id"`
	TempID    string     `json:"tempId,omitempty"`
	ChatType  string     `json:"chatType"`
	ChatRoom  string     `json:"chatRoom"`
	Sender    User       `json:"sender"`
	Content   string     `json:"content"`
	IsImage   bool       `json:"isImage,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	IsEdited  bool       `json:"isEdited,omitempty"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	ReplyToID string     `json:"replyToId,omitempty"`
	Pending   bool       `json:"pending,omitempty"`
}

// Provisional indica se il messaggio è ancora in attesa di conferma dal server.
func (m *Message) Provisional() bool {
	return m.Pending
}
