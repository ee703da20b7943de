package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary uploads files to a Cloudinary folder and returns their secure URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cloudinaryURL, folder string) (*Cloudinary, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Put(ctx context.Context, key string, content io.Reader, mimeType string) (string, error) {
	dir, name := path.Split(key)
	publicID := strings.TrimSuffix(name, path.Ext(name))

	res, err := c.cld.Upload.Upload(ctx, content, uploader.UploadParams{
		Folder:       path.Join(c.folder, dir),
		PublicID:     publicID,
		ResourceType: resourceType(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	return res.SecureURL, nil
}

// resourceType picks the Cloudinary resource type. Audio is stored as video.
func resourceType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"), strings.HasPrefix(mimeType, "audio/"):
		return "video"
	default:
		return "raw"
	}
}
