package filestorage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Key prefixes used by the application.
const (
	ResourcePrefix       = "study-resources"
	ProfilePicturePrefix = "profile-pictures"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// StoredObject describes an object after it has been written
type StoredObject struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// FileStorage defines the interface for object storage backends
type FileStorage interface {
	// Save writes body under key and returns where it can be reached
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*StoredObject, error)

	// Delete removes the object; a missing object is not an error
	Delete(ctx context.Context, key string) error

	// URL returns a link a client can download the object from
	URL(ctx context.Context, key string) (string, error)
}

// CleanKey normalises a storage key and rejects traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.ReplaceAll(key, `\`, "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
