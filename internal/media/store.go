// Package media stores submitted image files and resolves their public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Togather-Foundation/gallery/internal/domain/ids"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Store is the object storage behind event images. Keys are slash separated
// relative paths; Put returns the public URL the stored object is served from.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// allowed maps accepted image MIME types to the extension used in storage keys.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectImage sniffs the content type of data. ok is false when the content is
// not one of the accepted image formats.
func DetectImage(data []byte) (contentType, ext string, ok bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, found := allowed[m.String()]; found {
			return m.String(), ext, true
		}
	}
	return mt.String(), "", false
}

// NewKey builds the storage key for a new submission:
// submissions/<submitter>/<ulid><ext>.
func NewKey(submitter, ext string, at time.Time) (string, error) {
	owner, err := ids.NormalizeUUID(submitter)
	if err != nil {
		return "", fmt.Errorf("submitter: %w", err)
	}
	id, err := ids.NewULID(at)
	if err != nil {
		return "", err
	}
	return path.Join("submissions", owner, strings.ToLower(id)+ext), nil
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
