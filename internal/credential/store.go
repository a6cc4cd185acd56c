package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const appDir = "chatty"

var (
	ErrInvalidKey = errors.New("invalid credential key")

	validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Store is session-scoped key/value storage for credentials.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore keeps one file per key under a directory that lives as long as
// the login session.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileStore roots a store at dir on fs.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

// SessionDir returns the per-session directory for chatty credentials.
// It is $XDG_RUNTIME_DIR/chatty, which the system clears at logout.
func SessionDir() string {
	return filepath.Join(xdg.RuntimeDir, appDir)
}

// NewSessionStore returns a FileStore in SessionDir on the OS filesystem.
func NewSessionStore() *FileStore {
	return NewFileStore(afero.NewOsFs(), SessionDir())
}

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Get returns the stored value, or "" when the key was never set.
func (s *FileStore) Get(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Set stores value under key. An empty value removes the key.
func (s *FileStore) Set(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return s.Delete(key)
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, p, []byte(value), 0o600); err != nil {
		return fmt.Errorf("write credential %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Removing a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential %s: %w", key, err)
	}
	return nil
}

// MemoryStore keeps credentials for the life of the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(value) == "" {
		delete(m.values, key)
		return nil
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
