package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/Fahry-a/Chat/internal/domain"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, avatar, is_online, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Avatar, user.IsOnline, user.LastSeen, user.CreatedAt,
	)
	return mapConflict(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT id, name, email, password_hash, avatar, is_online, last_seen, created_at FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT id, name, email, password_hash, avatar, is_online, last_seen, created_at FROM users WHERE lower(email) = lower($1)", email)
}

// SetPresence records activity. last_seen moves on every call, online or not.
func (r *UserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET is_online = $1, last_seen = now() WHERE id = $2`, online, id)
	return err
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Avatar, &u.IsOnline, &u.LastSeen, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	utc(&u.CreatedAt)
	utcOpt(&u.LastSeen)
	return &u, nil
}
