package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xueke/download-client/internal/model"
)

func TestDeviceID_StableAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id.txt")

	first := DeviceID(path)
	if first == "" {
		t.Fatal("DeviceID returned empty id")
	}

	second := DeviceID(path)
	if second != first {
		t.Errorf("DeviceID changed between calls: %q vs %q", first, second)
	}
}

func TestDeviceID_UnwritablePathStillReturnsID(t *testing.T) {
	// Directory path can't be created because a file sits in its place.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := NewPendingStore(blocker).Save(nil); err != nil {
		t.Fatal(err)
	}

	id := DeviceID(filepath.Join(blocker, "sub", "device_id.txt"))
	if id == "" {
		t.Error("DeviceID should return a usable id even when persistence fails")
	}
}

func TestPendingStore_RoundTrip(t *testing.T) {
	s := NewPendingStore(filepath.Join(t.TempDir(), "pending_tasks.json"))

	// Missing file is an empty queue.
	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("fresh store should be empty, got %d tasks", len(tasks))
	}

	queued := []*model.Task{
		model.NewTask([]string{"https://example.com/a"}, "a@example.com", "", ""),
		model.NewTask([]string{"https://example.com/b"}, "b@example.com", "", ""),
	}
	queued[0].Status = model.StatusOfflinePending
	queued[1].Status = model.StatusOfflinePending

	if err := s.Save(queued); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded))
	}
	if loaded[0].TaskID != queued[0].TaskID || loaded[0].Status != model.StatusOfflinePending {
		t.Errorf("loaded[0] = %+v", loaded[0])
	}
}

func TestPendingStore_SaveNilWritesEmptyArray(t *testing.T) {
	s := NewPendingStore(filepath.Join(t.TempDir(), "pending_tasks.json"))

	if err := s.Save(nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	tasks, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("queue should be empty after Save(nil), got %d", len(tasks))
	}
}

func TestHistoryStore_AppendAndCap(t *testing.T) {
	s := NewHistoryStore(filepath.Join(t.TempDir(), "download_history.json"))

	for i := 0; i < HistoryLimit+5; i++ {
		task := model.NewTask([]string{fmt.Sprintf("https://example.com/%d", i)}, "a@example.com", "", "")
		task.TaskID = fmt.Sprintf("task_%03d", i)
		if err := s.Append(model.HistoryEntryFromTask(task)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != HistoryLimit {
		t.Fatalf("len = %d, want %d", len(entries), HistoryLimit)
	}
	// Oldest entries were dropped; the newest is last.
	if entries[0].TaskID != "task_005" {
		t.Errorf("entries[0].TaskID = %q, want task_005", entries[0].TaskID)
	}
	if entries[len(entries)-1].TaskID != fmt.Sprintf("task_%03d", HistoryLimit+4) {
		t.Errorf("last entry = %q", entries[len(entries)-1].TaskID)
	}
}
