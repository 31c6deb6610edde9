package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/xueke/download-client/internal/model"
)

// HistoryLimit is how many entries the download history keeps.
const HistoryLimit = 50

// HistoryStore persists the append-only download history.
//
// The history is an audit trail for the UI: entries are appended after each
// successful online submission and the file keeps only the most recent
// HistoryLimit entries. The session never reads it back into the registry.
type HistoryStore struct {
	path string
}

// NewHistoryStore creates a store backed by the given file path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Load reads the persisted history. A missing file yields an empty history.
func (s *HistoryStore) Load() ([]model.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append adds an entry, dropping the oldest entries beyond HistoryLimit.
func (s *HistoryStore) Append(entry model.HistoryEntry) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > HistoryLimit {
		entries = entries[len(entries)-HistoryLimit:]
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
