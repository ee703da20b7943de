package domain

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	UserID        uuid.UUID `json:"user_id"`
	ContactUserID uuid.UUID `json:"contact_user_id"`
	ContactName   *string   `json:"contact_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DirectoryEntry is one row of the contact directory: a known user annotated
// with the viewer's contact data, if any.
type DirectoryEntry struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Avatar      *string    `json:"avatar,omitempty"`
	IsOnline    bool       `json:"is_online"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	IsContact   bool       `json:"is_contact"`
	ContactName *string    `json:"contact_name,omitempty"`
}

type OnlineContact struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
