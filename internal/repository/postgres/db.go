package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/Fahry-a/Chat/internal/repository"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.ConversationRepository = (*ConversationRepo)(nil)
	_ repository.MessageRepository      = (*MessageRepo)(nil)
	_ repository.FileRepository         = (*FileRepo)(nil)
	_ repository.ContactRepository      = (*ContactRepo)(nil)
)

const uniqueViolation = "23505"

// utc normalises scanned timestamps. pgx decodes timestamptz in the local
// zone; everything leaving the repositories is UTC.
func utc(ts ...*time.Time) {
	for _, t := range ts {
		if t != nil {
			*t = t.UTC()
		}
	}
}

// utcOpt is utc for nullable columns.
func utcOpt(ts ...**time.Time) {
	for _, t := range ts {
		if *t != nil {
			v := (*t).UTC()
			*t = &v
		}
	}
}

// mapConflict turns a unique violation into repository.ErrConflict.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps a user supplied search term for ILIKE substring matching.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
