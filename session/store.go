package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is the locally persisted slice of interview progress: enough
// to resume a session after a restart, nothing more.
type Snapshot struct {
	SessionID       string `json:"session_id"`
	CurrentQuestion int    `json:"current_question"`
}

// Store persists interview progress across runs.
type Store interface {
	// Load reads the saved snapshot. The second return value is false
	// when nothing usable is persisted; a corrupt file counts as absent.
	Load() (Snapshot, bool)

	// Save writes the snapshot, replacing any previous one.
	Save(Snapshot) error

	// Clear removes the persisted snapshot. Clearing an empty store is
	// not an error.
	Clear() error
}

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by dir/session.json.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "session.json")}, nil
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (Snapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.SessionID == "" {
		// A corrupt snapshot must behave as if nothing were persisted.
		_ = os.Remove(s.path)
		return Snapshot{}, false
	}
	return snap, true
}

func (s *FileStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu    sync.Mutex
	snap  Snapshot
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.saved
}

func (s *MemoryStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.saved = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
	s.saved = false
	return nil
}
