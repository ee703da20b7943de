package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

// SyncService answers "what changed since T" for polling clients.
type SyncService struct {
	messageRepo   repository.MessageRepository
	conversations *ConversationService
	unread        *UnreadService
	contacts      *ContactService
}

func NewSyncService(
	messageRepo repository.MessageRepository,
	conversations *ConversationService,
	unread *UnreadService,
	contacts *ContactService,
) *SyncService {
	return &SyncService{
		messageRepo:   messageRepo,
		conversations: conversations,
		unread:        unread,
		contacts:      contacts,
	}
}

// Poll returns the messages other users sent to userID after since, in one
// conversation or across all of them.
//
// The response timestamp is read from the store clock, in UTC, before the
// delta query runs. A client that sends it back as the next since gets every
// row committed before that timestamp; a row stamped between the clock read
// and the query is delivered twice. A row stamped before the clock read whose
// transaction commits after the query is never delivered.
func (s *SyncService) Poll(ctx context.Context, userID uuid.UUID, since *time.Time, conversationID *uuid.UUID) (*domain.PollResult, error) {
	if since == nil {
		return nil, ErrMissingSince
	}

	if conversationID != nil {
		if _, err := s.conversations.Get(ctx, userID, *conversationID); err != nil {
			return nil, err
		}
	}

	now, err := s.messageRepo.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store clock: %w", err)
	}

	messages, err := s.messageRepo.ListSince(ctx, userID, *since, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing new messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	unread, err := s.unread.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread: %w", err)
	}

	online, err := s.contacts.Online(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing online contacts: %w", err)
	}

	return &domain.PollResult{
		Timestamp:      now.UTC(),
		NewMessages:    messages,
		UnreadCount:    unread,
		OnlineContacts: online,
	}, nil
}
