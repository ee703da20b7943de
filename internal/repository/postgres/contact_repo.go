package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/Fahry-a/Chat/internal/domain"
)

type ContactRepo struct {
	db DBTX
}

func NewContactRepo(db DBTX) *ContactRepo {
	return &ContactRepo{db: db}
}

func (r *ContactRepo) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (user_id, contact_user_id, contact_name, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, contact.UserID, contact.ContactUserID, contact.ContactName, contact.CreatedAt)
	return mapConflict(err)
}

func (r *ContactRepo) Get(ctx context.Context, userID, contactUserID uuid.UUID) (*domain.Contact, error) {
	query := `
		SELECT user_id, contact_user_id, contact_name, created_at
		FROM contacts
		WHERE user_id = $1 AND contact_user_id = $2`
	var c domain.Contact
	err := r.db.QueryRow(ctx, query, userID, contactUserID).Scan(
		&c.UserID, &c.ContactUserID, &c.ContactName, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	utc(&c.CreatedAt)
	return &c, nil
}

// ListDirectory lists every other user, annotated with the caller's contact
// rows. Contacts never filter the list.
func (r *ContactRepo) ListDirectory(ctx context.Context, userID uuid.UUID, search string, onlineSince time.Time) ([]domain.DirectoryEntry, error) {
	query := `
		SELECT u.id, u.name, u.email, u.avatar,
			COALESCE(u.is_online AND u.last_seen > $2, false) AS online, u.last_seen,
			c.user_id IS NOT NULL, c.contact_name
		FROM users u
		LEFT JOIN contacts c ON c.contact_user_id = u.id AND c.user_id = $1
		WHERE u.id <> $1`
	args := []any{userID, onlineSince}

	if search != "" {
		query += ` AND (u.name ILIKE $3 OR u.email ILIKE $3)`
		args = append(args, likePattern(search))
	}
	query += `
		ORDER BY online DESC, u.name ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.DirectoryEntry
	for rows.Next() {
		var e domain.DirectoryEntry
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Email, &e.Avatar,
			&e.IsOnline, &e.LastSeen,
			&e.IsContact, &e.ContactName,
		); err != nil {
			return nil, err
		}
		utcOpt(&e.LastSeen)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ContactRepo) ListOnline(ctx context.Context, userID uuid.UUID, onlineSince time.Time) ([]domain.OnlineContact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.name
		FROM contacts c
		JOIN users u ON u.id = c.contact_user_id
		WHERE c.user_id = $1 AND u.is_online AND u.last_seen > $2
		ORDER BY u.name ASC`,
		userID, onlineSince,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var online []domain.OnlineContact
	for rows.Next() {
		var oc domain.OnlineContact
		if err := rows.Scan(&oc.ID, &oc.Name); err != nil {
			return nil, err
		}
		online = append(online, oc)
	}
	return online, rows.Err()
}
