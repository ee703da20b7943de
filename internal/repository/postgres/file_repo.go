package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/Fahry-a/Chat/internal/domain"
)

type FileRepo struct {
	db DBTX
}

func NewFileRepo(db DBTX) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *domain.File) error {
	query := `
		INSERT INTO files (id, original_name, stored_name, mime_type, size, path, url, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		file.ID, file.OriginalName, file.StoredName, file.MimeType, file.Size,
		file.Path, file.URL, file.UploadedBy, file.CreatedAt,
	)
	return err
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	query := `
		SELECT id, original_name, stored_name, mime_type, size, path, url, uploaded_by, created_at
		FROM files
		WHERE id = $1`
	var f domain.File
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.OriginalName, &f.StoredName, &f.MimeType, &f.Size,
		&f.Path, &f.URL, &f.UploadedBy, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	utc(&f.CreatedAt)
	return &f, nil
}
