// Package cursor persists the feed's resumption token so a restart can
// pick up the stream where the previous process left it.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const cursorFilename = "cursor.json"

// Store loads and saves the last-event-id resumption token.
type Store interface {
	Load() (string, error)
	Save(id string) error
}

// Memory is an in-process store, the default: the published behavior of
// the feed keeps the cursor in memory only.
type Memory struct {
	mu sync.Mutex
	id string
}

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *Memory) Save(id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

// diskCursor is the on-disk JSON format.
type diskCursor struct {
	LastEventID string `json:"last_event_id"`
	UpdatedAt   string `json:"updated_at"`
}

// HomeDir returns the hnlive state directory.
func HomeDir() string {
	if d := os.Getenv("HNLIVE_HOME"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hnlive")
}

// defaultPath is a function variable so tests can override the path.
var defaultPath = func() string {
	return filepath.Join(HomeDir(), cursorFilename)
}

// File persists the cursor as a small JSON snapshot on disk.
type File struct {
	// Path overrides the snapshot location; empty means the default
	// under HomeDir.
	Path string
}

func (f *File) path() string {
	if f.Path != "" {
		return f.Path
	}
	return defaultPath()
}

// Load reads the stored cursor. A missing file is an empty cursor, not
// an error.
func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read cursor: %w", err)
	}
	var disk diskCursor
	if err := json.Unmarshal(data, &disk); err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	return disk.LastEventID, nil
}

// Save writes the cursor snapshot, creating the state directory on
// first use.
func (f *File) Save(id string) error {
	p := f.path()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	disk := diskCursor{
		LastEventID: id,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
