// Package memory is an in-process implementation of the repository
// interfaces. It enforces the same uniqueness constraints and predicates as
// the postgres schema and is used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.MessageRepository      = (*MessageRepo)(nil)
	_ repository.FileRepository         = (*FileRepo)(nil)
	_ repository.ContactRepository      = (*ContactRepo)(nil)
)

type pair struct{ lo, hi uuid.UUID }

// edge keys a directed contact row.
type edge struct{ from, to uuid.UUID }

type Store struct {
	mu sync.RWMutex

	// clock stamps created_at and answers Now. Tests replace it.
	clock func() time.Time

	users         map[uuid.UUID]domain.User
	conversations map[uuid.UUID]domain.Conversation
	pairs         map[pair]uuid.UUID
	messages      map[uuid.UUID]domain.Message
	files         map[uuid.UUID]domain.File
	contacts      map[edge]domain.Contact
}

func New() *Store {
	return &Store{
		clock:         time.Now,
		users:         make(map[uuid.UUID]domain.User),
		conversations: make(map[uuid.UUID]domain.Conversation),
		pairs:         make(map[pair]uuid.UUID),
		messages:      make(map[uuid.UUID]domain.Message),
		files:         make(map[uuid.UUID]domain.File),
		contacts:      make(map[edge]domain.Contact),
	}
}

// SetClock replaces the store clock.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s} }
func (s *Store) Conversations() *ConversationRepo { return &ConversationRepo{s} }
func (s *Store) Messages() *MessageRepo           { return &MessageRepo{s} }
func (s *Store) Files() *FileRepo                 { return &FileRepo{s} }
func (s *Store) Contacts() *ContactRepo           { return &ContactRepo{s} }

// project is the Message + sender + file join. Callers hold s.mu.
func (s *Store) project(m domain.Message) domain.Message {
	if u, ok := s.users[m.SenderID]; ok {
		m.SenderName = u.Name
		m.SenderAvatar = u.Avatar
	}
	if m.FileID != nil {
		if f, ok := s.files[*m.FileID]; ok {
			m.File = &f
		}
	}
	return m
}

// now reads the store clock in UTC. Callers hold s.mu.
func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortChronological(msgs []domain.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID.String() < msgs[j].ID.String()
	})
}

// ---- users ----

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil
	}
	now := r.s.now()
	u.IsOnline = online
	u.LastSeen = &now
	r.s.users[id] = u
	return nil
}

// ---- conversations ----

type ConversationRepo struct{ s *Store }

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pair{conv.User1ID, conv.User2ID}
	if _, exists := r.s.pairs[key]; exists {
		return repository.ErrConflict
	}
	r.s.pairs[key] = conv.ID
	r.s.conversations[conv.ID] = *conv
	return nil
}

func (r *ConversationRepo) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.pairs[pair{user1ID, user2ID}]
	if !ok {
		return nil, nil
	}
	c := r.s.conversations[id]
	return &c, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	unread := make(map[uuid.UUID]int)
	for _, m := range r.s.messages {
		if m.UnreadFor(userID) {
			unread[m.ConversationID]++
		}
	}

	var convs []domain.Conversation
	for _, c := range r.s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		other := r.s.users[c.Peer(userID)]
		if search != "" && !containsFold(other.Name, search) {
			continue
		}
		c.OtherUserID = other.ID
		c.OtherUserName = other.Name
		c.OtherUserAvatar = other.Avatar
		c.OtherUserOnline = other.OnlineSince(onlineSince)
		c.OtherUserLastSeen = other.LastSeen
		if c.LastMessageID != nil {
			if m, ok := r.s.messages[*c.LastMessageID]; ok && m.VisibleTo(userID) {
				body, typ, sender := m.Body, m.Type, m.SenderID
				c.LastMessageBody, c.LastMessageType, c.LastMessageSender = body, &typ, &sender
			}
		}
		c.UnreadCount = unread[c.ID]
		convs = append(convs, c)
	}

	sort.Slice(convs, func(i, j int) bool {
		a, b := convs[i].LastMessageAt, convs[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
	return convs, nil
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, messageID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil
	}
	c.LastMessageID = &messageID
	c.LastMessageAt = &at
	r.s.conversations[id] = c
	return nil
}

// ---- messages ----

type MessageRepo struct{ s *Store }

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg.CreatedAt = r.s.now()
	r.s.messages[msg.ID] = *msg
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, nil
	}
	m = r.s.project(m)
	return &m, nil
}

func (r *MessageRepo) ListVisible(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var visible []domain.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID && m.VisibleTo(userID) {
			visible = append(visible, r.s.project(m))
		}
	}
	sortChronological(visible)

	// Same window as ORDER BY DESC LIMIT/OFFSET followed by a reverse.
	end := len(visible) - offset
	if end <= 0 {
		return nil, nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return visible[start:end], nil
}

func (r *MessageRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time, conversationID *uuid.UUID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Message
	for _, m := range r.s.messages {
		if conversationID != nil && m.ConversationID != *conversationID {
			continue
		}
		c := r.s.conversations[m.ConversationID]
		if !c.HasParticipant(userID) || m.SenderID == userID {
			continue
		}
		if !m.CreatedAt.After(since) || !m.VisibleTo(userID) {
			continue
		}
		out = append(out, r.s.project(m))
	}
	sortChronological(out)
	return out, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	now := r.s.now()
	for id, m := range r.s.messages {
		if m.ConversationID != conversationID || m.SenderID == readerID || m.IsRead {
			continue
		}
		m.IsRead = true
		m.ReadAt = &now
		r.s.messages[id] = m
		n++
	}
	return n, nil
}

func (r *MessageRepo) SetDeleted(ctx context.Context, id uuid.UUID, bySender, byReceiver bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil
	}
	m.DeletedBySender = m.DeletedBySender || bySender
	m.DeletedByReceiver = m.DeletedByReceiver || byReceiver
	r.s.messages[id] = m
	return nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	per, err := r.CountUnreadByConversation(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range per {
		total += n
	}
	return total, nil
}

func (r *MessageRepo) CountUnreadByConversation(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for _, m := range r.s.messages {
		c := r.s.conversations[m.ConversationID]
		if c.HasParticipant(userID) && m.UnreadFor(userID) {
			counts[m.ConversationID]++
		}
	}
	return counts, nil
}

func (r *MessageRepo) Now(ctx context.Context) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.now(), nil
}

// ---- files ----

type FileRepo struct{ s *Store }

func (r *FileRepo) Create(ctx context.Context, file *domain.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.files[file.ID] = *file
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// ---- contacts ----

type ContactRepo struct{ s *Store }

func (r *ContactRepo) Create(ctx context.Context, contact *domain.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := edge{contact.UserID, contact.ContactUserID}
	if _, exists := r.s.contacts[key]; exists {
		return repository.ErrConflict
	}
	r.s.contacts[key] = *contact
	return nil
}

func (r *ContactRepo) Get(ctx context.Context, userID, contactUserID uuid.UUID) (*domain.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.contacts[edge{userID, contactUserID}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ContactRepo) ListDirectory(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.DirectoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var entries []domain.DirectoryEntry
	for _, u := range r.s.users {
		if u.ID == userID {
			continue
		}
		if search != "" && !containsFold(u.Name, search) && !containsFold(u.Email, search) {
			continue
		}
		e := domain.DirectoryEntry{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Avatar:   u.Avatar,
			IsOnline: u.OnlineSince(onlineSince),
			LastSeen: u.LastSeen,
		}
		if c, ok := r.s.contacts[edge{userID, u.ID}]; ok {
			e.IsContact = true
			e.ContactName = c.ContactName
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsOnline != entries[j].IsOnline {
			return entries[i].IsOnline
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (r *ContactRepo) ListOnline(ctx context.Context, userID uuid.UUID, onlineSince time.Time) ([]domain.OnlineContact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var online []domain.OnlineContact
	for key := range r.s.contacts {
		if key.from != userID {
			continue
		}
		u, ok := r.s.users[key.to]
		if ok && u.OnlineSince(onlineSince) {
			online = append(online, domain.OnlineContact{ID: u.ID, Name: u.Name})
		}
	}
	sort.Slice(online, func(i, j int) bool { return online[i].Name < online[j].Name })
	return online, nil
}
