// Package storage keeps uploaded document files in S3 or on local disk and
// extracts the page count and thumbnail recorded with them.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// Store puts blobs under a key. Put returns a public URL when one exists;
// URL returns a link for reading key, signed where the backend needs it.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func objectKey(owner primitive.ObjectID, filename string) string {
	dir := "anonymous"
	if !owner.IsZero() {
		dir = owner.Hex()
	}
	name := unsafeName.ReplaceAllString(filepath.Base(filename), "_")
	return "documents/" + dir + "/" + uuid.NewString() + "_" + strings.Trim(name, "_")
}

// Uploader stores a document file together with its thumbnail.
type Uploader struct {
	store Store
	log   *zap.SugaredLogger
}

func NewUploader(store Store, log *zap.SugaredLogger) *Uploader {
	return &Uploader{store: store, log: log}
}

// Save stores data and returns the file record for the document. Inspection
// failures only cost the page count or thumbnail.
func (u *Uploader) Save(ctx context.Context, owner primitive.ObjectID, filename, contentType string, data []byte) (models.FileInfo, error) {
	key := objectKey(owner, filename)
	url, err := u.store.Put(ctx, key, contentType, data)
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("store %s: %w", filename, err)
	}
	info := models.FileInfo{
		URL:  url,
		Key:  key,
		Name: filename,
		Type: contentType,
		Size: int64(len(data)),
	}

	meta, err := Inspect(filename, contentType, data)
	if err != nil {
		u.log.Warnw("document not inspected", "file", filename, "err", err)
		return info, nil
	}
	info.Pages = meta.Pages
	if len(meta.Thumbnail) > 0 {
		thumbKey := key + "_thumb.jpg"
		if _, err := u.store.Put(ctx, thumbKey, "image/jpeg", meta.Thumbnail); err != nil {
			u.log.Warnw("thumbnail not stored", "file", filename, "err", err)
		} else {
			info.Thumbnail = thumbKey
		}
	}
	u.log.Infow("document file stored", "key", key, "size", info.Size, "pages", info.Pages)
	return info, nil
}
