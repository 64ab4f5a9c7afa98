// Package snapshot provides persisted-identity snapshot adapters.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	domainauth "github.com/chemcat/chemcat-cli/internal/domain/auth"
	"github.com/chemcat/chemcat-cli/internal/ports"
)

// FileStore persists the identity snapshot as a JSON file, the durable
// analog of the original client's keyed local storage. A missing or corrupt
// file reads as "no snapshot"; it is a cache of backend truth, never the
// source of it.
type FileStore struct {
	path string
}

var _ ports.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates a snapshot store at the given path. The parent
// directory is created on the first Save.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("snapshot path cannot be empty")
	}
	return &FileStore{path: path}, nil
}

// Load reads the persisted snapshot. Absent or unreadable snapshots return
// (nil, nil): a stale cache must never block construction.
func (s *FileStore) Load(_ context.Context) (*domainauth.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var user domainauth.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Corrupt snapshot reads as logged out.
		return nil, nil
	}
	return &user, nil
}

// Save writes the snapshot atomically via a temp-file rename. A nil user
// clears the snapshot.
func (s *FileStore) Save(ctx context.Context, user *domainauth.User) error {
	if user == nil {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Clear removes the persisted snapshot. Removing an absent snapshot is not
// an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
