package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kenyawebs/Tana-Delta/internal/metrics"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileProvider keeps one directory per category under root, one JSON file
// per key.
type FileProvider struct {
	root string
}

func NewFileProvider(root string) *FileProvider {
	return &FileProvider{root: root}
}

func (p *FileProvider) Category(name string) Store {
	return &FileStore{dir: filepath.Join(p.root, name), name: name}
}

type FileStore struct {
	dir  string
	name string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, name: filepath.Base(dir)}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool) {
	b, err := os.ReadFile(s.path(key))
	if err != nil || len(b) == 0 {
		metrics.CacheLookups.WithLabelValues(s.name, "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(s.name, "hit").Inc()
	return b, true
}

// Put writes through a temp file and rename so concurrent writers of the
// same key leave exactly one complete payload behind.
func (s *FileStore) Put(_ context.Context, key string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
