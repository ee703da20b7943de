package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/Fahry-a/Chat/internal/domain"
)

type ConversationRepo struct {
	db DBTX
}

func NewConversationRepo(db DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts the conversation. The (user1_id, user2_id) unique constraint
// is what keeps one conversation per pair; a losing racer gets ErrConflict.
func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, conv.ID, conv.User1ID, conv.User2ID, conv.CreatedAt)
	return mapConflict(err)
}

func (r *ConversationRepo) GetByUsers(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, user1_id, user2_id, last_message_id, last_message_at, created_at
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2`
	return r.scanConversation(r.db.QueryRow(ctx, query, user1ID, user2ID))
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, user1_id, user2_id, last_message_id, last_message_at, created_at
		FROM conversations
		WHERE id = $1`
	return r.scanConversation(r.db.QueryRow(ctx, query, id))
}

func (r *ConversationRepo) scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.User1ID, &conv.User2ID,
		&conv.LastMessageID, &conv.LastMessageAt, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	utc(&conv.CreatedAt)
	utcOpt(&conv.LastMessageAt)
	return &conv, nil
}

// ListByUser returns the user's conversations, most recently active first,
// with the peer, a last message preview and the unread count.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.Conversation, error) {
	query := `
		SELECT c.id, c.user1_id, c.user2_id, c.last_message_id, c.last_message_at, c.created_at,
			o.id, o.name, o.avatar, COALESCE(o.is_online AND o.last_seen > $2, false), o.last_seen,
			m.body, m.type, m.sender_id,
			(SELECT COUNT(*) FROM messages u
				WHERE u.conversation_id = c.id AND ` + unreadFor("u") + `) AS unread_count
		FROM conversations c
		JOIN users o ON o.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN messages m ON m.id = c.last_message_id AND ` + visibleTo("m") + `
		WHERE (c.user1_id = $1 OR c.user2_id = $1)`
	args := []any{userID, onlineSince}

	if search != "" {
		query += ` AND o.name ILIKE $3`
		args = append(args, likePattern(search))
	}
	query += `
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var (
			conv     domain.Conversation
			lastType *string
		)
		if err := rows.Scan(
			&conv.ID, &conv.User1ID, &conv.User2ID, &conv.LastMessageID, &conv.LastMessageAt, &conv.CreatedAt,
			&conv.OtherUserID, &conv.OtherUserName, &conv.OtherUserAvatar, &conv.OtherUserOnline, &conv.OtherUserLastSeen,
			&conv.LastMessageBody, &lastType, &conv.LastMessageSender,
			&conv.UnreadCount,
		); err != nil {
			return nil, err
		}
		utc(&conv.CreatedAt)
		utcOpt(&conv.LastMessageAt, &conv.OtherUserLastSeen)
		if lastType != nil {
			t := domain.MessageType(*lastType)
			conv.LastMessageType = &t
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// UpdateLastMessage is a plain overwrite: concurrent sends resolve
// last-writer-wins.
func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, messageID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE conversations SET last_message_id = $1, last_message_at = $2 WHERE id = $3`,
		messageID, at, id,
	)
	return err
}
