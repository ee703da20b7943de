package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
)

// ErrConflict is returned when an insert hits a uniqueness constraint.
var ErrConflict = errors.New("unique constraint violation")

// Clock reads the store clock, the same clock that stamps created_at and
// last_seen.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetPresence(ctx context.Context, id uuid.UUID, online bool) error
}

type ConversationRepository interface {
	// Create returns ErrConflict when the pair already has a conversation.
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.Conversation, error)
	UpdateLastMessage(ctx context.Context, id, messageID uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	// Create fills in CreatedAt from the store clock.
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListVisible(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]domain.Message, error)
	// ListSince returns messages visible to userID and authored by someone
	// else, created strictly after since. A nil conversationID means all of
	// the user's conversations.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time, conversationID *uuid.UUID) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	// SetDeleted only ever raises flags; false leaves a flag untouched.
	SetDeleted(ctx context.Context, id uuid.UUID, bySender, byReceiver bool) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	CountUnreadByConversation(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
	Clock
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
}

type ContactRepository interface {
	// Create returns ErrConflict when the contact already exists.
	Create(ctx context.Context, contact *domain.Contact) error
	Get(ctx context.Context, userID, contactUserID uuid.UUID) (*domain.Contact, error)
	ListDirectory(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.DirectoryEntry, error)
	ListOnline(ctx context.Context, userID uuid.UUID, onlineSince time.Time) ([]domain.OnlineContact, error)
}
