package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/Fahry-a/Chat/internal/domain"
)

// visibleTo renders the visibility rule for the messages row aliased as
// alias. The viewing user must be bound as $1.
func visibleTo(alias string) string {
	return fmt.Sprintf(`((%[1]s.sender_id = $1 AND NOT %[1]s.deleted_by_sender) OR (%[1]s.sender_id <> $1 AND NOT %[1]s.deleted_by_receiver))`, alias)
}

// unreadFor renders the unread rule shared by every unread count. The user
// must be bound as $1.
func unreadFor(alias string) string {
	return fmt.Sprintf(`(%[1]s.sender_id <> $1 AND NOT %[1]s.is_read AND NOT %[1]s.deleted_by_receiver)`, alias)
}

// Message + sender + file projection. Every read of a message goes through
// messageColumns/messageFrom and scanMessage.
const messageColumns = `
	m.id, m.conversation_id, m.sender_id, m.body, m.file_id, m.type, m.created_at,
	m.is_read, m.read_at, m.deleted_by_sender, m.deleted_by_receiver,
	u.name, u.avatar,
	f.id, f.original_name, f.mime_type, f.size, f.path, f.url, f.uploaded_by, f.created_at`

const messageFrom = `
	FROM messages m
	JOIN users u ON u.id = m.sender_id
	LEFT JOIN files f ON f.id = m.file_id`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg     domain.Message
		msgType string

		fileID      *uuid.UUID
		fileName    *string
		fileMime    *string
		fileSize    *int64
		filePath    *string
		fileURL     *string
		fileBy      *uuid.UUID
		fileCreated *time.Time
	)
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Body, &msg.FileID, &msgType, &msg.CreatedAt,
		&msg.IsRead, &msg.ReadAt, &msg.DeletedBySender, &msg.DeletedByReceiver,
		&msg.SenderName, &msg.SenderAvatar,
		&fileID, &fileName, &fileMime, &fileSize, &filePath, &fileURL, &fileBy, &fileCreated,
	)
	if err != nil {
		return nil, err
	}
	msg.Type = domain.MessageType(msgType)
	utc(&msg.CreatedAt, fileCreated)
	utcOpt(&msg.ReadAt)

	if fileID != nil {
		msg.File = &domain.File{
			ID:           *fileID,
			OriginalName: deref(fileName),
			MimeType:     deref(fileMime),
			Size:         deref(fileSize),
			Path:         deref(filePath),
			URL:          deref(fileURL),
			UploadedBy:   deref(fileBy),
			CreatedAt:    deref(fileCreated),
		}
	}
	return &msg, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

type MessageRepo struct {
	db DBTX
}

func NewMessageRepo(db DBTX) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, body, file_id, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.FileID, string(msg.Type),
	).Scan(&msg.CreatedAt)
	utc(&msg.CreatedAt)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + messageFrom + `
		WHERE m.id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

// ListVisible pages newest first with LIMIT/OFFSET and returns the page in
// chronological order. Offsets shift when rows are inserted between calls.
func (r *MessageRepo) ListVisible(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + messageFrom + `
		WHERE m.conversation_id = $2 AND ` + visibleTo("m") + `
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3 OFFSET $4`

	messages, err := r.list(ctx, query, userID, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time, conversationID *uuid.UUID) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + messageFrom + `
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user1_id = $1 OR c.user2_id = $1)
			AND m.sender_id <> $1
			AND m.created_at > $2
			AND ` + visibleTo("m")
	args := []any{userID, since}

	if conversationID != nil {
		query += ` AND m.conversation_id = $3`
		args = append(args, *conversationID)
	}
	query += `
		ORDER BY m.created_at ASC, m.id ASC`

	return r.list(ctx, query, args...)
}

func (r *MessageRepo) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// MarkRead flags the other side's unread messages. The predicate lives in the
// UPDATE, so concurrent readers never double count.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET is_read = true, read_at = now()
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read`,
		conversationID, readerID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) SetDeleted(ctx context.Context, id uuid.UUID, bySender, byReceiver bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET deleted_by_sender = deleted_by_sender OR $2,
			deleted_by_receiver = deleted_by_receiver OR $3
		WHERE id = $1`,
		id, bySender, byReceiver,
	)
	return err
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user1_id = $1 OR c.user2_id = $1) AND `+unreadFor("m"),
		userID,
	).Scan(&count)
	return count, err
}

func (r *MessageRepo) CountUnreadByConversation(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.conversation_id, COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.user1_id = $1 OR c.user2_id = $1) AND `+unreadFor("m")+`
		GROUP BY m.conversation_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func (r *MessageRepo) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	err := r.db.QueryRow(ctx, `SELECT clock_timestamp()`).Scan(&now)
	return now.UTC(), err
}
