package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// MessageTypeForMIME maps a file's MIME type onto a message type. An empty
// mime means there is no attachment.
func MessageTypeForMIME(mime string) MessageType {
	switch {
	case mime == "":
		return MessageTypeText
	case strings.HasPrefix(mime, "image/"):
		return MessageTypeImage
	case strings.HasPrefix(mime, "video/"):
		return MessageTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return MessageTypeAudio
	default:
		return MessageTypeFile
	}
}

type Message struct {
	ID                uuid.UUID   `json:"id"`
	ConversationID    uuid.UUID   `json:"conversation_id"`
	SenderID          uuid.UUID   `json:"sender_id"`
	Body              *string     `json:"message,omitempty"`
	FileID            *uuid.UUID  `json:"file_id,omitempty"`
	Type              MessageType `json:"type"`
	CreatedAt         time.Time   `json:"created_at"`
	IsRead            bool        `json:"is_read"`
	ReadAt            *time.Time  `json:"read_at,omitempty"`
	DeletedBySender   bool        `json:"-"`
	DeletedByReceiver bool        `json:"-"`
	// Joined fields
	SenderName   string  `json:"sender_name,omitempty"`
	SenderAvatar *string `json:"sender_avatar,omitempty"`
	File         *File   `json:"file,omitempty"`
}

// VisibleTo applies the per-side soft delete flags. userID is assumed to be a
// participant of the message's conversation.
func (m *Message) VisibleTo(userID uuid.UUID) bool {
	if m.SenderID == userID {
		return !m.DeletedBySender
	}
	return !m.DeletedByReceiver
}

// UnreadFor is the single unread predicate: a message counts as unread for
// userID when someone else sent it, it is unread and the receiver has not
// hidden it.
func (m *Message) UnreadFor(userID uuid.UUID) bool {
	return m.SenderID != userID && !m.IsRead && !m.DeletedByReceiver
}

type DeleteScope string

const (
	DeleteScopeSelf     DeleteScope = "self"
	DeleteScopeEveryone DeleteScope = "everyone"
)
