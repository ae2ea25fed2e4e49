package storage

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Put(ctx, "documents/a/b.txt", "text/plain", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/documents/a/b.txt", url)

	got, err := os.ReadFile(filepath.Join(dir, "documents", "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	_, err = s.Put(ctx, "../outside.txt", "text/plain", []byte("x"))
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	t.Run("image gets a thumbnail", func(t *testing.T) {
		meta, err := Inspect("scan.png", "image/png", pngBytes(t, 800, 600))
		require.NoError(t, err)
		assert.Equal(t, 1, meta.Pages)

		thumb, err := imaging.Decode(bytes.NewReader(meta.Thumbnail))
		require.NoError(t, err)
		assert.Equal(t, thumbnailWidth, thumb.Bounds().Dx())
		assert.Equal(t, 240, thumb.Bounds().Dy())
	})

	t.Run("broken pdf is an error", func(t *testing.T) {
		_, err := Inspect("charge.pdf", "application/pdf", []byte("not a pdf"))
		assert.Error(t, err)
	})

	t.Run("word files carry no metadata", func(t *testing.T) {
		meta, err := Inspect("notice.docx", "", []byte("PK"))
		require.NoError(t, err)
		assert.Zero(t, meta.Pages)
		assert.Empty(t, meta.Thumbnail)
	})
}

func TestUploaderSave(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	u := NewUploader(s, zap.NewNop().Sugar())
	owner := primitive.NewObjectID()

	t.Run("image with thumbnail", func(t *testing.T) {
		data := pngBytes(t, 400, 400)
		info, err := u.Save(ctx, owner, "my scan.png", "image/png", data)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(info.Key, "documents/"+owner.Hex()+"/"))
		assert.True(t, strings.HasSuffix(info.Key, "_my_scan.png"))
		assert.Equal(t, "/uploads/"+info.Key, info.URL)
		assert.EqualValues(t, len(data), info.Size)
		assert.Equal(t, info.Key+"_thumb.jpg", info.Thumbnail)
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(info.Thumbnail)))
	})

	t.Run("unreadable pdf is still stored", func(t *testing.T) {
		info, err := u.Save(ctx, primitive.NilObjectID, "charge.pdf", "application/pdf", []byte("%PDF-broken"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(info.Key, "documents/anonymous/"))
		assert.Zero(t, info.Pages)
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(info.Key)))
	})
}
