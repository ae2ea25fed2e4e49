package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes files below a directory that the API serves under
// BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStore) path(key string) (string, error) {
	p := filepath.Join(l.Dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.Dir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("key %q escapes the upload dir", key)
	}
	return p, nil
}

func (l *LocalStore) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", err
	}
	return l.BaseURL + "/" + key, nil
}

func (l *LocalStore) URL(_ context.Context, key string) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return l.BaseURL + "/" + key, nil
}
