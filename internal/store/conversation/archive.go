package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

var ErrNotFound = errors.New("no conversation file found")

// Archive appends conversation snapshots to a JSON array file.
type Archive struct {
	fs     afero.Fs
	path   string
	now    func() time.Time
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewArchive stores records in path on fs.
func NewArchive(fs afero.Fs, path string, logger zerolog.Logger) *Archive {
	return &Archive{
		fs:     fs,
		path:   path,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Path is the archive file location.
func (a *Archive) Path() string { return a.path }

// Save appends a record of turns. An unreadable existing file is replaced
// by a fresh array.
func (a *Archive) Save(turns []chat.Turn) (chat.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.readLocked()
	if err != nil && !errors.Is(err, ErrNotFound) {
		a.logger.Warn().Err(err).Str("path", a.path).Msg("discarding unreadable conversation file")
		records = nil
	}

	record := chat.Record{
		ID:           uuid.NewString(),
		Timestamp:    a.now(),
		Conversation: chat.CloneTurns(turns),
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return chat.Record{}, fmt.Errorf("encode conversation file: %w", err)
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := a.fs.MkdirAll(dir, 0o755); err != nil {
			return chat.Record{}, fmt.Errorf("create conversation dir: %w", err)
		}
	}
	if err := afero.WriteFile(a.fs, a.path, data, 0o644); err != nil {
		return chat.Record{}, fmt.Errorf("write conversation file: %w", err)
	}
	return record, nil
}

// Raw returns the archive file bytes as stored.
func (a *Archive) Raw() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := afero.ReadFile(a.fs, a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation file: %w", err)
	}
	return data, nil
}

// Records decodes every stored record.
func (a *Archive) Records() ([]chat.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readLocked()
}

func (a *Archive) readLocked() ([]chat.Record, error) {
	data, err := afero.ReadFile(a.fs, a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation file: %w", err)
	}

	var records []chat.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode conversation file: %w", err)
	}
	return records, nil
}
