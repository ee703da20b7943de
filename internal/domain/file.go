package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// File is the metadata snapshot recorded by the file storage layer. Messages
// only keep the ID.
type File struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"-"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Upload is a raw file handed to the file storage layer.
type Upload struct {
	Name    string
	Size    int64
	Content io.ReadSeeker
}
