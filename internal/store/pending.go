package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/xueke/download-client/internal/model"
)

// PendingStore persists the offline task queue as a JSON file.
//
// The session owns the in-memory queue; the store only mirrors it to disk
// so queued tasks survive a restart.
type PendingStore struct {
	path string
}

// NewPendingStore creates a store backed by the given file path.
func NewPendingStore(path string) *PendingStore {
	return &PendingStore{path: path}
}

// Load reads the persisted queue. A missing file yields an empty queue.
func (s *PendingStore) Load() ([]*model.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tasks []*model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Save writes the queue, replacing the previous contents. An empty queue is
// written as an empty array so the file always reflects the current state.
func (s *PendingStore) Save(tasks []*model.Task) error {
	if tasks == nil {
		tasks = []*model.Task{}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
