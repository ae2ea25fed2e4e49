package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const thumbnailWidth = 320

// FileMeta is what can be learned from a file's content.
type FileMeta struct {
	Pages     int
	Thumbnail []byte // JPEG, images only
}

func kind(filename, contentType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch {
	case ext == "pdf" || contentType == "application/pdf":
		return "pdf"
	case ext == "jpg" || ext == "jpeg" || ext == "png" || strings.HasPrefix(contentType, "image/"):
		return "image"
	}
	return ""
}

// Inspect counts PDF pages and renders a thumbnail for scanned images.
// Other files yield empty metadata.
func Inspect(filename, contentType string, data []byte) (FileMeta, error) {
	switch kind(filename, contentType) {
	case "pdf":
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		n, err := api.PageCount(bytes.NewReader(data), conf)
		if err != nil {
			return FileMeta{}, fmt.Errorf("count pdf pages: %w", err)
		}
		return FileMeta{Pages: n}, nil
	case "image":
		thumb, err := thumbnail(data)
		if err != nil {
			return FileMeta{}, err
		}
		return FileMeta{Pages: 1, Thumbnail: thumb}, nil
	}
	return FileMeta{}, nil
}

func thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
