package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Avatar       *string    `json:"avatar,omitempty"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// OnlineSince reports whether the user counts as online given the oldest
// presence ping still accepted.
func (u *User) OnlineSince(cutoff time.Time) bool {
	if !u.IsOnline || u.LastSeen == nil {
		return false
	}
	return u.LastSeen.After(cutoff)
}
