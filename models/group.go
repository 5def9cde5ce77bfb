package models

import (
	"time"
)

// Group represents a group chat
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Members     []User    `json:"members,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}
