package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Baaaki/foodgram/internal/storage"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Folders for stored objects.
const (
	RecipeImages = "recipes/images"
	UserAvatars  = "users/avatars"
)

// Uploader validates uploads and writes them to storage under random keys.
type Uploader struct {
	store     storage.Storage
	processor *Processor
}

func NewUploader(store storage.Storage, processor *Processor) *Uploader {
	return &Uploader{store: store, processor: processor}
}

// Save stores u in folder and returns the object key.
func (u *Uploader) Save(ctx context.Context, folder string, upload *Upload) (string, error) {
	img, err := u.processor.Process(upload)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s.%s", folder, uuid.NewString(), img.Ext)
	if err := u.store.Save(ctx, key, bytes.NewReader(img.Data), img.ContentType); err != nil {
		return "", err
	}

	logger.Log.Debug("Image stored",
		zap.String("key", key),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("bytes", len(img.Data)),
	)

	return key, nil
}

// Remove deletes key; failures are logged, not returned.
func (u *Uploader) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.store.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete stored image",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// URL returns the public URL of key, or "" for no image.
func (u *Uploader) URL(key string) string {
	if key == "" {
		return ""
	}
	return u.store.URL(key)
}
