package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

const (
	// SnapshotFilename is the suggested name of a local export.
	SnapshotFilename = "chatty_conversation.json"
	// ArchiveFilename is the suggested name of a downloaded server archive.
	ArchiveFilename = "conversation.json"
)

// Saver persists a blob on the user's machine.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver writes files into one directory.
type DirSaver struct {
	fs  afero.Fs
	dir string
}

// NewDirSaver saves into dir on fs.
func NewDirSaver(fs afero.Fs, dir string) *DirSaver {
	return &DirSaver{fs: fs, dir: dir}
}

// Save writes data to dir/name, replacing any previous file, and returns the path.
func (s *DirSaver) Save(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Snapshot encodes snap as indented JSON and saves it.
func Snapshot(saver Saver, snap chat.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return saver.Save(SnapshotFilename, data)
}

// ArchiveFetcher retrieves the server-persisted conversation archive.
type ArchiveFetcher interface {
	FetchConversationFile(ctx context.Context) ([]byte, error)
}

// Download fetches the server archive and saves it verbatim.
func Download(ctx context.Context, fetcher ArchiveFetcher, saver Saver) (string, error) {
	data, err := fetcher.FetchConversationFile(ctx)
	if err != nil {
		return "", err
	}
	return saver.Save(ArchiveFilename, data)
}
