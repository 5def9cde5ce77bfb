package models

import (
	"time"
)

// FriendRequest represents a pending friend request
type FriendRequest struct {
	ID        string    `json:"id"`
	From      User      `json:"from"`
	To        User      `json:"to"`
	Status    string    `json:"status"` // pending, accepted, rejected
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
