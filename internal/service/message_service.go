package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// FileStorage persists an uploaded file and returns its recorded metadata.
type FileStorage interface {
	Store(ctx context.Context, upload domain.Upload, ownerID uuid.UUID) (*domain.File, error)
}

type MessageService struct {
	messageRepo   repository.MessageRepository
	userRepo      repository.UserRepository
	fileRepo      repository.FileRepository
	conversations *ConversationService
	storage       FileStorage
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	fileRepo repository.FileRepository,
	conversations *ConversationService,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		fileRepo:      fileRepo,
		conversations: conversations,
	}
}

// SetStorage sets the file storage backend (optional dependency).
func (s *MessageService) SetStorage(fs FileStorage) {
	s.storage = fs
}

type SendInput struct {
	RecipientID uuid.UUID
	Body        string
	File        *domain.Upload
}

type MessageListResponse struct {
	Messages       []domain.Message `json:"messages"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	HasMore        bool             `json:"has_more"`
}

// Send delivers a message from senderID to input.RecipientID, creating the
// conversation on first contact.
func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, input SendInput) (*domain.Message, error) {
	if input.RecipientID == uuid.Nil {
		return nil, ErrMissingRecipient
	}
	if input.RecipientID == senderID {
		return nil, ErrInvalidParticipants
	}

	body := strings.TrimSpace(input.Body)
	if body == "" && input.File == nil {
		return nil, ErrEmptyMessage
	}

	recipient, err := s.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}

	if input.File != nil && s.storage == nil {
		return nil, ErrUploadsDisabled
	}

	conv, err := s.conversations.GetOrCreate(ctx, senderID, input.RecipientID)
	if err != nil {
		return nil, err
	}

	// Upload last so a failed conversation lookup leaves no file behind
	var fileID *uuid.UUID
	if input.File != nil {
		f, err := s.storage.Store(ctx, *input.File, senderID)
		if err != nil {
			return nil, err
		}
		fileID = &f.ID
	}

	var bodyPtr *string
	if body != "" {
		bodyPtr = &body
	}

	msg, err := s.Append(ctx, conv.ID, senderID, bodyPtr, fileID)
	if err != nil {
		if fileID != nil {
			log.Warn().Err(err).Stringer("file_id", *fileID).Msg("message not stored, file left orphaned")
		}
		return nil, err
	}

	if err := s.conversations.RecordLastMessage(ctx, conv.ID, msg.ID, msg.CreatedAt); err != nil {
		return nil, err
	}

	return msg, nil
}

// Append stores a message in an existing conversation. The type comes from
// the attachment's MIME type; created_at comes from the store clock.
func (s *MessageService) Append(ctx context.Context, conversationID, senderID uuid.UUID, body *string, fileID *uuid.UUID) (*domain.Message, error) {
	if body != nil && strings.TrimSpace(*body) == "" {
		body = nil
	}
	if body == nil && fileID == nil {
		return nil, ErrEmptyMessage
	}

	msgType := domain.MessageTypeText
	if fileID != nil {
		f, err := s.fileRepo.GetByID(ctx, *fileID)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, ErrFileNotFound
		}
		msgType = domain.MessageTypeForMIME(f.MimeType)
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		FileID:         fileID,
		Type:           msgType,
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	// Re-read through the joined projection
	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, fmt.Errorf("message %s missing after insert", msg.ID)
	}
	return full, nil
}

// ListVisible returns one page of the conversation as userID sees it, oldest
// first. Pages are offset based and shift if messages arrive between calls.
func (s *MessageService) ListVisible(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) (*MessageListResponse, error) {
	if _, err := s.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	// Fetch limit+1 to know whether an older page exists
	messages, err := s.messageRepo.ListVisible(ctx, conversationID, userID, limit+1, offset)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages:       messages,
		ConversationID: conversationID,
		HasMore:        hasMore,
	}, nil
}

// MarkRead marks the other side's messages as read and returns how many
// changed. Repeating it is a no-op that returns 0.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	if _, err := s.conversations.Get(ctx, readerID, conversationID); err != nil {
		return 0, err
	}

	n, err := s.messageRepo.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("marking read: %w", err)
	}
	return n, nil
}

// SetDeleted hides a message for the acting user, or for both sides when
// forEveryone is set. Only the sender may delete for everyone.
func (s *MessageService) SetDeleted(ctx context.Context, messageID, actingUserID uuid.UUID, forEveryone bool) (domain.DeleteScope, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", ErrMessageNotFound
	}

	if _, err := s.conversations.Get(ctx, actingUserID, msg.ConversationID); err != nil {
		return "", err
	}

	isSender := msg.SenderID == actingUserID

	if forEveryone {
		if !isSender {
			return "", ErrDeleteForAllNotSender
		}
		if err := s.messageRepo.SetDeleted(ctx, messageID, true, true); err != nil {
			return "", fmt.Errorf("deleting message: %w", err)
		}
		return domain.DeleteScopeEveryone, nil
	}

	if err := s.messageRepo.SetDeleted(ctx, messageID, isSender, !isSender); err != nil {
		return "", fmt.Errorf("deleting message: %w", err)
	}
	return domain.DeleteScopeSelf, nil
}

// ClampLimit applies the page size defaults.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
