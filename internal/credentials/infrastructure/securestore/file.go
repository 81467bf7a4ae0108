package securestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/security"
)

// FileBackend keeps each store in <dir>/<name>.json.
type FileBackend struct {
	dir string

	mu    sync.Mutex
	files map[string]*FileStore
}

// NewFileBackend creates a FileBackend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir, files: make(map[string]*FileStore)}
}

// Open validates the store path and creates the directory.
func (b *FileBackend) Open(_ context.Context, name string) (domain.SecureStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.files[name]; ok {
		return s, nil
	}

	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	dir, err := security.ValidateFilePath(b.dir)
	if err != nil {
		return nil, err
	}
	path, err := security.ValidateFilePathInDir(filepath.Join(dir, name+".json"), dir)
	if err != nil {
		return nil, err
	}
	s := &FileStore{path: path}
	b.files[name] = s
	return s, nil
}

// FileStore is a JSON object on disk. Commit writes a temporary file and
// renames it over the original, so readers see the old or the new
// contents and never a partial write.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Commit(_ context.Context, changes map[string]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	apply(values, changes)
	return s.write(values)
}

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
