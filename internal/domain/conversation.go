package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	User1ID       uuid.UUID  `json:"user1_id"`
	User2ID       uuid.UUID  `json:"user2_id"`
	LastMessageID *uuid.UUID `json:"last_message_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	// Joined fields for the conversation list
	OtherUserID       uuid.UUID    `json:"other_user_id"`
	OtherUserName     string       `json:"other_user_name,omitempty"`
	OtherUserAvatar   *string      `json:"other_user_avatar,omitempty"`
	OtherUserOnline   bool         `json:"other_user_online"`
	OtherUserLastSeen *time.Time   `json:"other_user_last_seen,omitempty"`
	LastMessageBody   *string      `json:"last_message,omitempty"`
	LastMessageType   *MessageType `json:"last_message_type,omitempty"`
	LastMessageSender *uuid.UUID   `json:"last_message_sender,omitempty"`
	UnreadCount       int          `json:"unread_count"`
}

// PairKey returns the two participants in canonical order. The ordering
// matches PostgreSQL's uuid comparison, so (lo, hi) satisfies the
// user1_id < user2_id check on the conversations table.
func PairKey(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Peer returns the participant that is not userID.
func (c *Conversation) Peer(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}
