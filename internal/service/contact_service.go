package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

// ContactService is the per-user address book. Contacts annotate the user
// directory; they never decide who can be messaged.
type ContactService struct {
	contactRepo    repository.ContactRepository
	userRepo       repository.UserRepository
	clock          repository.Clock
	presenceWindow time.Duration
}

func NewContactService(
	contactRepo repository.ContactRepository,
	userRepo repository.UserRepository,
	clock repository.Clock,
	presenceWindow time.Duration,
) *ContactService {
	return &ContactService{
		contactRepo:    contactRepo,
		userRepo:       userRepo,
		clock:          clock,
		presenceWindow: presenceWindow,
	}
}

func (s *ContactService) Add(ctx context.Context, userID, contactUserID uuid.UUID, displayName *string) (*domain.Contact, error) {
	if contactUserID == userID {
		return nil, ErrNoSelfContact
	}

	other, err := s.userRepo.GetByID(ctx, contactUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.contactRepo.Get(ctx, userID, contactUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateContact
	}

	if displayName != nil {
		trimmed := strings.TrimSpace(*displayName)
		displayName = &trimmed
		if trimmed == "" {
			displayName = nil
		}
	}

	contact := &domain.Contact{
		UserID:        userID,
		ContactUserID: contactUserID,
		ContactName:   displayName,
		CreatedAt:     time.Now(),
	}

	// The probe above is only a fast path; the primary key decides races.
	err = s.contactRepo.Create(ctx, contact)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrDuplicateContact
	}
	if err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}

	return contact, nil
}

// List returns every other user with the caller's annotations. search
// matches name or email, case-insensitively.
func (s *ContactService) List(ctx context.Context, userID uuid.UUID, search string) ([]domain.DirectoryEntry, error) {
	since, err := s.onlineSince(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.contactRepo.ListDirectory(ctx, userID, strings.TrimSpace(search), since)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.DirectoryEntry{}
	}
	return entries, nil
}

// Online returns the caller's contacts that are currently online.
func (s *ContactService) Online(ctx context.Context, userID uuid.UUID) ([]domain.OnlineContact, error) {
	since, err := s.onlineSince(ctx)
	if err != nil {
		return nil, err
	}

	online, err := s.contactRepo.ListOnline(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	if online == nil {
		online = []domain.OnlineContact{}
	}
	return online, nil
}

func (s *ContactService) onlineSince(ctx context.Context) (time.Time, error) {
	now, err := s.clock.Now(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-s.presenceWindow), nil
}
