// Package storage accepts uploaded files, validates them by sniffed content
// type, writes them to a backend and records their metadata.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/repository"
)

var (
	ErrFileTooLarge       = errors.New("file size exceeds maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

var (
	ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	VideoTypes = []string{"video/mp4", "video/webm", "video/ogg"}
	AudioTypes = []string{"audio/mpeg", "audio/wav", "audio/ogg", "audio/mp4"}
	FileTypes  = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/zip",
		"text/plain",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
)

// Backend writes file content under a relative key and returns the public URL.
type Backend interface {
	Put(ctx context.Context, key string, content io.Reader, mimeType string) (string, error)
}

type Service struct {
	backend Backend
	files   repository.FileRepository
	maxSize int64
}

func NewService(backend Backend, files repository.FileRepository, maxSize int64) *Service {
	return &Service{
		backend: backend,
		files:   files,
		maxSize: maxSize,
	}
}

// Store validates upload, writes it to the backend and records it as a file
// owned by ownerID.
func (s *Service) Store(ctx context.Context, upload domain.Upload, ownerID uuid.UUID) (*domain.File, error) {
	if upload.Content == nil || upload.Size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	detected, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("detecting file type: %w", err)
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding upload: %w", err)
	}

	mimeType, category, ok := classify(detected)
	if !ok {
		return nil, ErrFileTypeNotAllowed
	}

	ext := strings.ToLower(filepath.Ext(upload.Name))
	if ext == "" {
		ext = detected.Extension()
	}
	storedName := uuid.NewString() + ext
	key := path.Join(category, storedName)

	url, err := s.backend.Put(ctx, key, upload.Content, mimeType)
	if err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	file := &domain.File{
		ID:           uuid.New(),
		OriginalName: filepath.Base(upload.Name),
		StoredName:   storedName,
		MimeType:     mimeType,
		Size:         upload.Size,
		Path:         key,
		URL:          url,
		UploadedBy:   ownerID,
		CreatedAt:    time.Now(),
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("recording file: %w", err)
	}

	return file, nil
}

// classify matches the sniffed type against the allow lists and returns the
// canonical MIME type and its directory.
func classify(detected *mimetype.MIME) (string, string, bool) {
	groups := []struct {
		dir   string
		types []string
	}{
		{"images", ImageTypes},
		{"videos", VideoTypes},
		{"audio", AudioTypes},
		{"files", FileTypes},
	}

	for _, g := range groups {
		for _, t := range g.types {
			if detected.Is(t) {
				return t, g.dir, true
			}
		}
	}
	return "", "", false
}
