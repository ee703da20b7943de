package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

// ConversationService maps an unordered pair of users onto exactly one
// conversation and keeps its last-message summary.
type ConversationService struct {
	convRepo       repository.ConversationRepository
	clock          repository.Clock
	presenceWindow time.Duration
}

func NewConversationService(convRepo repository.ConversationRepository, clock repository.Clock, presenceWindow time.Duration) *ConversationService {
	return &ConversationService{
		convRepo:       convRepo,
		clock:          clock,
		presenceWindow: presenceWindow,
	}
}

// GetOrCreate returns the conversation between userA and userB, creating it on
// first use. Concurrent callers for the same pair converge on one row: the
// loser of the insert race gets a conflict and reads the winner's row.
func (s *ConversationService) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, error) {
	if userA == userB {
		return nil, ErrInvalidParticipants
	}

	u1, u2 := domain.PairKey(userA, userB)

	conv, err := s.convRepo.GetByUsers(ctx, u1, u2)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now(),
	}

	err = s.convRepo.Create(ctx, conv)
	if errors.Is(err, repository.ErrConflict) {
		existing, err := s.convRepo.GetByUsers(ctx, u1, u2)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation %s/%s missing after conflict", u1, u2)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return conv, nil
}

// RecordLastMessage must follow the Append of the same message.
func (s *ConversationService) RecordLastMessage(ctx context.Context, conversationID, messageID uuid.UUID, at time.Time) error {
	if err := s.convRepo.UpdateLastMessage(ctx, conversationID, messageID, at); err != nil {
		return fmt.Errorf("recording last message: %w", err)
	}
	return nil
}

// Get loads a conversation on behalf of userID.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// List returns the user's conversations, most recent activity first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID, search string) ([]domain.Conversation, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}

	convs, err := s.convRepo.ListByUser(ctx, userID, search, now.Add(-s.presenceWindow))
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}
