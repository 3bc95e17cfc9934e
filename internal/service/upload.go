package service

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/storage"
)

// DefaultMaxUploadBytes caps image uploads when no limit is configured
const DefaultMaxUploadBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore persists uploaded blobs
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (*storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// DetectImage sniffs data and returns its content type and file extension.
// The client-declared type is never trusted.
func DetectImage(data []byte, maxBytes int64) (contentType, ext string, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(data)) > maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), maxBytes)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	mt := mimetype.Detect(data)
	for ct, ext := range imageExtensions {
		if mt.Is(ct) {
			return ct, ext, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mt.String())
}

// storeImage validates and stores an image under prefix/ownerID-<rand><ext>.
func storeImage(ctx context.Context, store ObjectStore, prefix, ownerID string, data []byte, maxBytes int64) (key string, err error) {
	defer func() {
		metrics.Uploads.WithLabelValues(prefix, ErrorCode(err)).Inc()
	}()

	contentType, ext, err := DetectImage(data, maxBytes)
	if err != nil {
		return "", err
	}

	key = fmt.Sprintf("%s/%s-%s%s", prefix, ownerID, uuid.NewString()[:8], ext)
	if _, err := store.Put(ctx, key, contentType, data); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}
