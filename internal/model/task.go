package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TaskStatus describes where a download task is in its lifecycle.
type TaskStatus string

const (
	// StatusPending means the task was created locally and is about to be
	// submitted, or the server has accepted it but not started processing.
	StatusPending TaskStatus = "pending"

	// StatusOfflinePending means the task is held in the local pending
	// queue because the session is not yet eligible to submit online.
	StatusOfflinePending TaskStatus = "offline_pending"

	// StatusProcessing means the server is working on the task.
	StatusProcessing TaskStatus = "processing"

	// StatusDownloading means the server is fetching the requested files.
	StatusDownloading TaskStatus = "downloading"

	// StatusCompleted means the task finished and direct links may be
	// available.
	StatusCompleted TaskStatus = "completed"

	// StatusFailed means the server gave up on the task.
	StatusFailed TaskStatus = "failed"
)

// Active reports whether the status describes a task the server is still
// working on.
func (s TaskStatus) Active() bool {
	return s == StatusProcessing || s == StatusDownloading
}

// OfflineTaskPrefix is the prefix of every client-generated task id. Server
// assigned ids never carry it, so callers can tell an offline handle from a
// server handle.
const OfflineTaskPrefix = "cf_"

// Task represents one bulk-download request.
//
// A Task is created by the session when the user submits URLs. While the
// session is authenticated and licensed it is sent straight to the server
// and tracked under the server-assigned id; otherwise it sits in the
// pending queue under its client-generated id until the queue is drained.
//
// JSON tags follow the server's wire names so tasks round-trip through the
// pending-queue file and the task endpoints unchanged.
type Task struct {
	TaskID      string     `json:"task_id"`
	URLs        []string   `json:"urls"`
	Email       string     `json:"email"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Username    string     `json:"username,omitempty"`
	DirectLinks []string   `json:"direct_links,omitempty"`
}

// NewTask creates a pending task with a client-generated id.
//
// The id is derived from the submission time and a digest of the URL list,
// so it is unique for practical purposes and stable for the same submission:
//
//	cf_1717171717_9b0d1c2a
func NewTask(urls []string, email, userID, username string) *Task {
	now := time.Now()
	return &Task{
		TaskID:    offlineTaskID(now, urls),
		URLs:      urls,
		Email:     email,
		Status:    StatusPending,
		CreatedAt: now,
		UserID:    userID,
		Username:  username,
	}
}

func offlineTaskID(t time.Time, urls []string) string {
	sum := md5.Sum([]byte(strings.Join(urls, "\n")))
	return fmt.Sprintf("%s%d_%s", OfflineTaskPrefix, t.Unix(), hex.EncodeToString(sum[:])[:8])
}
