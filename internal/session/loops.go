package session

import (
	"context"
	"time"

	"github.com/xueke/download-client/internal/model"
)

// requestTimeout bounds the transport calls made from the loops so a slow
// server cannot stall a tick past the next one indefinitely.
const requestTimeout = 5 * time.Second

// heartbeatLoop pings the server periodically while authenticated and
// reports user activity. Every failure is swallowed: a missed heartbeat is
// invisible to the user and the next tick is the retry.
func (s *Session) heartbeatLoop() {
	defer close(s.heartbeatDone)

	ticker := time.NewTicker(s.settings.HeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.heartbeat()
		}
	}
}

func (s *Session) heartbeat() {
	s.mu.Lock()
	authenticated := s.authenticated
	userID := s.userID
	s.mu.Unlock()

	if !authenticated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := s.gw.Ping(ctx); err != nil {
		s.log.Debug("heartbeat ping failed", "err", err)
		return
	}

	if userID != "" {
		if err := s.gw.ReportActivity(ctx, userID); err != nil {
			s.log.Debug("activity report failed", "err", err)
		}
	}
}

// statusPollLoop refreshes the task registry periodically while a user is
// logged in. Errors are logged and swallowed; the loop keeps running until
// Disconnect.
func (s *Session) statusPollLoop() {
	defer close(s.pollDone)

	ticker := time.NewTicker(s.settings.StatusCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkUserTasks()
		}
	}
}

// checkUserTasks diffs the server's task list against the local registry,
// folding every change into the cache in the order the server reported
// them. Events fire for completions and processing updates only; tasks the
// registry does not know are ignored.
func (s *Session) checkUserTasks() {
	s.mu.Lock()
	authenticated := s.authenticated
	userID := s.userID
	s.mu.Unlock()

	if !authenticated || userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	remote, err := s.gw.UserTasks(ctx, userID)
	if err != nil {
		s.log.Warn("task status check failed", "err", err)
		return
	}

	for _, task := range remote {
		if task == nil || task.TaskID == "" {
			continue
		}

		s.mu.Lock()
		local, known := s.tasks[task.TaskID]
		changed := known && local.Status != task.Status
		if changed {
			s.mergeTaskLocked(local, task)
		}
		s.mu.Unlock()

		if !changed {
			continue
		}

		// Only completion and active processing are announced; other
		// transitions update the cache silently.
		switch task.Status {
		case model.StatusCompleted:
			s.notifier.NotifyStatus(StatusEvent{Kind: EventTaskComplete, Task: task})
		case model.StatusProcessing:
			s.notifier.NotifyStatus(StatusEvent{
				Kind: EventTaskStatus,
				Task: task,
				Data: map[string]any{
					"task_id":  task.TaskID,
					"status":   string(task.Status),
					"progress": task.Progress,
				},
			})
		}
	}
}

// mergeTaskLocked folds the server's view of a task into the cached one.
// Caller holds s.mu.
func (s *Session) mergeTaskLocked(local, remote *model.Task) {
	local.Status = remote.Status
	local.Progress = remote.Progress
	if remote.CompletedAt != nil {
		local.CompletedAt = remote.CompletedAt
	}
	if len(remote.DirectLinks) > 0 {
		local.DirectLinks = remote.DirectLinks
	}
	if len(remote.URLs) > 0 {
		local.URLs = remote.URLs
	}
	if remote.Email != "" {
		local.Email = remote.Email
	}
	// Fill the remote record with locally known fields so the emitted
	// event carries the full task.
	if len(remote.URLs) == 0 {
		remote.URLs = local.URLs
	}
	if remote.Email == "" {
		remote.Email = local.Email
	}
}
