package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores hospitality icons in an object store.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL returns "" when no URL can be built for key.
	GetPublicURL(key string) string
}

// IconKey returns a fresh object key for a hospitality icon. Every upload
// gets a new key so CDN caches never serve a stale image.
func IconKey(hospitalityID int64, ext string) string {
	return fmt.Sprintf("hospitality-icons/%d/%s%s", hospitalityID, uuid.NewString(), ext)
}

// PublicURL joins key onto base, which must end with a slash.
func PublicURL(base *url.URL, key string) string {
	key = strings.TrimLeft(key, "/")
	if base == nil || key == "" {
		return ""
	}
	ref, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
