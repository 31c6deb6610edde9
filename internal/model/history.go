package model

import "time"

// HistoryURLLimit caps how many URLs a history entry keeps from its task.
const HistoryURLLimit = 3

// HistoryEntry is the truncated projection of a Task written to the local
// download history after a successful online submission.
//
// The history is an audit trail for the UI; it is never read back into the
// task registry.
type HistoryEntry struct {
	TaskID      string     `json:"task_id"`
	URLs        []string   `json:"urls"`
	Email       string     `json:"email"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Server      string     `json:"server"`
}

// HistoryEntryFromTask projects a task into a history entry, keeping only
// the first HistoryURLLimit URLs.
func HistoryEntryFromTask(t *Task) HistoryEntry {
	urls := t.URLs
	if len(urls) > HistoryURLLimit {
		urls = urls[:HistoryURLLimit]
	}
	return HistoryEntry{
		TaskID:      t.TaskID,
		URLs:        append([]string(nil), urls...),
		Email:       t.Email,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		Server:      "cloudflare",
	}
}
