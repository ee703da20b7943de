package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/repository"
)

// UnreadService derives unread totals. Both methods use the store's single
// unread predicate, so the global count always equals the sum of the
// per-conversation counts.
type UnreadService struct {
	messageRepo repository.MessageRepository
}

func NewUnreadService(messageRepo repository.MessageRepository) *UnreadService {
	return &UnreadService{messageRepo: messageRepo}
}

func (s *UnreadService) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.messageRepo.CountUnread(ctx, userID)
}

func (s *UnreadService) ByConversation(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	return s.messageRepo.CountUnreadByConversation(ctx, userID)
}
