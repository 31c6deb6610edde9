package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xueke/download-client/internal/api"
	"github.com/xueke/download-client/internal/api/dto"
	"github.com/xueke/download-client/internal/config"
	"github.com/xueke/download-client/internal/model"
)

// Gateway is the transport used to talk to the service. *api.Client
// implements it; tests substitute a fake.
type Gateway interface {
	SetBaseURL(url string)
	Ping(ctx context.Context) error
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context) error
	UserDetails(ctx context.Context, userID string) (*dto.UserDetails, error)
	ValidateLicense(ctx context.Context, req dto.ValidateLicenseRequest) (*dto.ValidateLicenseResponse, error)
	SubmitTask(ctx context.Context, req dto.SubmitTaskRequest) (*dto.SubmitTaskResponse, error)
	UserTasks(ctx context.Context, userID string) ([]*model.Task, error)
	TaskDetail(ctx context.Context, taskID string) (*model.Task, error)
	DownloadLinks(ctx context.Context, taskID string) ([]string, error)
	ReportActivity(ctx context.Context, userID string) error
	ServerStats(ctx context.Context) (map[string]any, error)
}

// PendingStore persists the offline task queue.
type PendingStore interface {
	Load() ([]*model.Task, error)
	Save(tasks []*model.Task) error
}

// HistoryStore records successful online submissions.
type HistoryStore interface {
	Append(entry model.HistoryEntry) error
}

// Options configures a Session.
type Options struct {
	// Gateway is the transport to the service. Required.
	Gateway Gateway

	// Settings holds the client configuration. Required.
	Settings *config.Settings

	// SaveSettings persists settings after credential updates.
	// Optional; nil disables persistence.
	SaveSettings func(*config.Settings) error

	// Pending persists the offline queue. Optional; nil keeps the queue
	// in memory only.
	Pending PendingStore

	// History records successful submissions. Optional.
	History HistoryStore

	// DeviceID is the stable per-installation identifier.
	DeviceID string

	// Logger receives diagnostics. Optional; defaults to slog.Default().
	Logger *slog.Logger

	// JoinTimeout bounds how long Disconnect waits for each background
	// loop. Zero means 2 seconds.
	JoinTimeout time.Duration

	// OnDrainDrop is called for each queued task whose resubmission
	// failed during a drain. The task is dropped either way; the hook
	// only surfaces the drop. Optional.
	OnDrainDrop func(task *model.Task, err error)
}

// Session is the client-side session state machine.
//
// A Session is explicitly constructed and owns its background loops; there
// is no process-wide instance. All exported methods are safe for concurrent
// use and never panic or return errors to the caller: failures surface as
// a false/empty return plus an event on the registered sinks.
type Session struct {
	gw           Gateway
	settings     *config.Settings
	saveSettings func(*config.Settings) error
	pendingStore PendingStore
	historyStore HistoryStore
	deviceID     string
	log          *slog.Logger
	notifier     *Notifier
	joinTimeout  time.Duration
	onDrainDrop  func(*model.Task, error)

	// mu guards the state flags, identity fields, and the task map.
	mu            sync.Mutex
	connected     bool
	authenticated bool
	licenseValid  bool
	userID        string
	username      string
	email         string
	userInfo      map[string]any
	licenseInfo   *model.LicenseInfo
	tasks         map[string]*model.Task

	// queueMu guards the pending queue so the drain can snapshot and
	// clear it atomically against concurrent submissions.
	queueMu sync.Mutex
	pending []*model.Task

	stopCh        chan struct{}
	stopOnce      sync.Once
	heartbeatDone chan struct{}
	pollDone      chan struct{}
}

// ErrNotAuthenticated is reported when an operation requires a login first.
var ErrNotAuthenticated = errors.New("not authenticated: log in first")

// ErrEmptyCredentials is reported when login is attempted without a
// username or password.
var ErrEmptyCredentials = errors.New("username and password must not be empty")

// ErrEmptyLicenseKey is reported when license validation is attempted
// without a key.
var ErrEmptyLicenseKey = errors.New("license key must not be empty")

// ErrEmptySubmission is reported when a task is submitted without URLs or
// without an email.
var ErrEmptySubmission = errors.New("urls and email must not be empty")

// New creates a Session and starts its background loops.
//
// The persisted pending queue, if any, is loaded so offline tasks survive
// restarts. Call Disconnect to stop the loops.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	joinTimeout := opts.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = 2 * time.Second
	}

	s := &Session{
		gw:            opts.Gateway,
		settings:      opts.Settings,
		saveSettings:  opts.SaveSettings,
		pendingStore:  opts.Pending,
		historyStore:  opts.History,
		deviceID:      opts.DeviceID,
		log:           log,
		notifier:      NewNotifier(log),
		joinTimeout:   joinTimeout,
		onDrainDrop:   opts.OnDrainDrop,
		tasks:         make(map[string]*model.Task),
		stopCh:        make(chan struct{}),
		heartbeatDone: make(chan struct{}),
		pollDone:      make(chan struct{}),
	}

	if s.pendingStore != nil {
		pending, err := s.pendingStore.Load()
		if err != nil {
			log.Warn("loading pending queue failed", "err", err)
		}
		s.pending = pending
	}

	go s.heartbeatLoop()
	go s.statusPollLoop()

	return s
}

// Notifier returns the session's event notifier for sink registration.
func (s *Session) Notifier() *Notifier {
	return s.notifier
}

// Connect tests server reachability and records the result.
//
// A non-empty url switches the session (and the settings) to that server
// first. Returns true and emits a connected event on success; any failure
// sets connected=false, emits an error event, and returns false.
func (s *Session) Connect(ctx context.Context, url string) bool {
	if url != "" {
		s.gw.SetBaseURL(url)
		s.mu.Lock()
		s.settings.Server.URL = url
		s.mu.Unlock()
	}

	err := s.gw.Ping(ctx)

	s.mu.Lock()
	s.connected = err == nil
	serverURL := s.settings.Server.URL
	s.mu.Unlock()

	if err != nil {
		s.log.Error("connection test failed", "server", serverURL, "err", err)
		s.notifier.NotifyError(err)
		return false
	}

	s.log.Info("connected", "server", serverURL)
	s.notifier.NotifyStatus(StatusEvent{
		Kind: EventConnected,
		Data: map[string]any{"url": serverURL},
	})
	return true
}

// Login authenticates against the service.
//
// Empty arguments fall back to the remembered values in the settings; the
// remembered password is already the transmission digest. The plaintext
// password never leaves the process: only its SHA-256 digest is sent, as
// the service's wire format requires.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	digest := ""
	if password != "" {
		digest = hashPassword(password)
	} else {
		digest = s.settings.User.Password
	}
	if username == "" {
		username = s.settings.User.Username
	}

	if username == "" || digest == "" {
		s.notifier.NotifyError(ErrEmptyCredentials)
		return false
	}

	resp, err := s.gw.Login(ctx, dto.LoginRequest{
		Username: username,
		Password: digest,
		DeviceID: s.deviceID,
	})
	if err != nil {
		s.log.Error("login request failed", "err", err)
		s.notifier.NotifyError(err)
		return false
	}

	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "login failed"
		}
		s.log.Warn("login rejected", "user", username, "reason", reason)
		s.notifier.NotifyStatus(StatusEvent{Kind: EventLoginFailed, Reason: reason})
		return false
	}

	s.mu.Lock()
	s.authenticated = true
	s.userID = resp.UserID
	s.username = username
	s.userInfo = resp.UserInfo
	if email, ok := resp.UserInfo["email"].(string); ok {
		s.email = email
	}
	s.mu.Unlock()

	s.persistCredentials(username, digest)
	s.fetchUserDetails(ctx)
	s.drainPending(ctx)

	s.mu.Lock()
	info := model.UserInfoFromMap(s.userInfo)
	s.mu.Unlock()

	s.log.Info("login succeeded", "user", username)
	s.notifier.NotifyStatus(StatusEvent{Kind: EventLoginSuccess, User: info})
	return true
}

// AutoLogin performs a config-driven login when enabled and credentials are
// remembered. Returns false without an event when auto-login is off.
func (s *Session) AutoLogin(ctx context.Context) bool {
	if !s.settings.User.AutoLogin {
		return false
	}
	if s.settings.User.Username == "" || s.settings.User.Password == "" {
		return false
	}
	return s.Login(ctx, "", "")
}

// ValidateLicense checks a license key against the service.
//
// Requires a prior login. An empty key falls back to the remembered one.
// Success marks the license valid, persists the key, and drains the
// pending queue. A failed re-validation never forces licenseValid off.
func (s *Session) ValidateLicense(ctx context.Context, key string) bool {
	s.mu.Lock()
	authenticated := s.authenticated
	userID := s.userID
	s.mu.Unlock()

	if !authenticated {
		s.notifier.NotifyError(ErrNotAuthenticated)
		return false
	}

	if key == "" {
		key = s.settings.User.LicenseKey
	}
	if key == "" {
		s.notifier.NotifyError(ErrEmptyLicenseKey)
		return false
	}

	resp, err := s.gw.ValidateLicense(ctx, dto.ValidateLicenseRequest{
		LicenseKey: key,
		DeviceID:   s.deviceID,
		UserID:     userID,
	})
	if err != nil {
		s.log.Error("license validation request failed", "err", err)
		s.notifier.NotifyError(err)
		return false
	}

	if !resp.Valid {
		reason := resp.Error
		if reason == "" {
			reason = "invalid license key"
		}
		s.log.Warn("license rejected", "reason", reason)
		s.notifier.NotifyStatus(StatusEvent{Kind: EventLicenseInvalid, Reason: reason})
		return false
	}

	s.mu.Lock()
	s.licenseValid = true
	s.licenseInfo = resp.LicenseInfo
	s.settings.User.LicenseKey = key
	s.mu.Unlock()

	s.persistSettings()
	s.drainPending(ctx)

	s.log.Info("license validated", "days_left", daysLeft(resp.LicenseInfo))
	s.notifier.NotifyStatus(StatusEvent{Kind: EventLicenseValid, License: resp.LicenseInfo})
	return true
}

// SubmitDownloadTask submits a bulk download request.
//
// While the session is authenticated and licensed the task goes straight
// to the server and the server-assigned id is returned. Otherwise the task
// is queued offline under a client-generated id and submitted automatically
// once the license is validated. The returned ok is false only when the
// inputs are invalid or an online submission failed.
func (s *Session) SubmitDownloadTask(ctx context.Context, urls []string, email string) (string, bool) {
	if len(urls) == 0 || email == "" {
		s.notifier.NotifyError(ErrEmptySubmission)
		return "", false
	}

	s.mu.Lock()
	eligible := s.authenticated && s.licenseValid
	userID := s.userID
	username := s.username
	s.mu.Unlock()

	task := model.NewTask(urls, email, userID, username)

	if eligible {
		return s.submitOnline(ctx, task)
	}
	return s.saveOffline(task), true
}

// submitOnline sends one task to the server and tracks it under the
// server-assigned id.
func (s *Session) submitOnline(ctx context.Context, task *model.Task) (string, bool) {
	s.mu.Lock()
	userID := s.userID
	username := s.username
	s.mu.Unlock()

	resp, err := s.gw.SubmitTask(ctx, dto.SubmitTaskRequest{
		UserID:      userID,
		URLs:        task.URLs,
		Email:       task.Email,
		SubmittedBy: username,
	})
	if err != nil {
		s.log.Error("task submission failed", "err", err)
		s.notifier.NotifyError(err)
		return "", false
	}
	if !resp.Success || resp.Task == nil || resp.Task.TaskID == "" {
		rejection := &api.RejectionError{Op: "task submission", Reason: resp.Error}
		s.log.Warn("task submission rejected", "reason", resp.Error)
		s.notifier.NotifyError(rejection)
		return "", false
	}

	accepted := resp.Task
	if len(accepted.URLs) == 0 {
		accepted.URLs = task.URLs
	}
	if accepted.Email == "" {
		accepted.Email = task.Email
	}
	if accepted.UserID == "" {
		accepted.UserID = userID
	}
	if accepted.Username == "" {
		accepted.Username = username
	}

	s.mu.Lock()
	s.tasks[accepted.TaskID] = accepted
	s.mu.Unlock()

	if s.historyStore != nil {
		if err := s.historyStore.Append(model.HistoryEntryFromTask(accepted)); err != nil {
			s.log.Warn("writing history failed", "err", err)
		}
	}

	s.log.Info("task submitted", "task", accepted.TaskID, "urls", len(accepted.URLs))
	s.notifier.NotifyStatus(StatusEvent{
		Kind: EventTaskSubmitted,
		Task: accepted,
		Data: map[string]any{
			"task_id":   accepted.TaskID,
			"url_count": len(accepted.URLs),
			"email":     accepted.Email,
		},
	})
	return accepted.TaskID, true
}

// saveOffline queues a task locally until the session becomes eligible.
func (s *Session) saveOffline(task *model.Task) string {
	task.Status = model.StatusOfflinePending

	s.queueMu.Lock()
	s.pending = append(s.pending, task)
	snapshot := append([]*model.Task(nil), s.pending...)
	s.queueMu.Unlock()

	s.persistPending(snapshot)

	s.log.Info("task saved offline", "task", task.TaskID)
	s.notifier.NotifyStatus(StatusEvent{
		Kind: EventTaskOfflineSaved,
		Task: task,
		Data: map[string]any{
			"task_id": task.TaskID,
			"message": "task saved; it will be submitted after license validation",
		},
	})
	return task.TaskID
}

// drainPending flushes the offline queue once the session is eligible.
//
// The queue is snapshotted and cleared atomically, then each task is
// submitted in its original order. Failed submissions are dropped, not
// re-queued; the OnDrainDrop hook observes each drop. The store is
// re-persisted afterwards regardless of individual outcomes.
func (s *Session) drainPending(ctx context.Context) {
	s.mu.Lock()
	eligible := s.authenticated && s.licenseValid
	userID := s.userID
	username := s.username
	s.mu.Unlock()

	if !eligible {
		return
	}

	s.queueMu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.queueMu.Unlock()

	if len(snapshot) == 0 {
		s.persistPending(nil)
		return
	}

	for _, task := range snapshot {
		task.Status = model.StatusPending
		if task.UserID == "" {
			task.UserID = userID
		}
		if task.Username == "" {
			task.Username = username
		}
		if id, ok := s.submitOnline(ctx, task); !ok {
			s.log.Warn("queued task dropped after failed resubmission", "task", task.TaskID)
			if s.onDrainDrop != nil {
				s.onDrainDrop(task, errors.New("resubmission failed"))
			}
		} else {
			s.log.Info("queued task submitted", "task", id)
		}
	}

	s.queueMu.Lock()
	remaining := append([]*model.Task(nil), s.pending...)
	s.queueMu.Unlock()
	s.persistPending(remaining)
}

// Logout notifies the server best-effort and clears the authenticated
// state. The connection flag is left alone; call Disconnect to shut the
// session down.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.authenticated
	s.mu.Unlock()

	if wasAuthenticated {
		if err := s.gw.Logout(ctx); err != nil {
			s.log.Debug("logout notification failed", "err", err)
		}
	}

	s.mu.Lock()
	s.authenticated = false
	s.licenseValid = false
	s.userID = ""
	s.username = ""
	s.email = ""
	s.userInfo = nil
	s.licenseInfo = nil
	s.mu.Unlock()

	s.log.Info("logged out")
	s.notifier.NotifyStatus(StatusEvent{Kind: EventLogout})
}

// Disconnect stops both background loops and marks the session
// disconnected.
//
// The loops are signalled cooperatively and joined with a bounded timeout
// each; a loop stuck in a request is abandoned rather than blocking
// shutdown. Disconnect is idempotent.
func (s *Session) Disconnect() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.join(s.heartbeatDone, "heartbeat")
		s.join(s.pollDone, "status poll")

		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()

		s.log.Info("disconnected")
		s.notifier.NotifyStatus(StatusEvent{Kind: EventDisconnected})
	})
}

func (s *Session) join(done <-chan struct{}, name string) {
	select {
	case <-done:
	case <-time.After(s.joinTimeout):
		s.log.Warn("loop did not stop in time, abandoning", "loop", name)
	}
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	Connected     bool
	Authenticated bool
	LicenseValid  bool
	Username      string
	UserID        string
	Email         string
	PendingTasks  int
	ActiveTasks   int
	ServerURL     string
}

// Status returns a consistent snapshot of the session state.
func (s *Session) Status() Status {
	s.queueMu.Lock()
	pendingCount := len(s.pending)
	s.queueMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, t := range s.tasks {
		if t.Status.Active() {
			active++
		}
	}

	return Status{
		Connected:     s.connected,
		Authenticated: s.authenticated,
		LicenseValid:  s.licenseValid,
		Username:      s.username,
		UserID:        s.userID,
		Email:         s.email,
		PendingTasks:  pendingCount,
		ActiveTasks:   active,
		ServerURL:     s.settings.Server.URL,
	}
}

// TaskInfo fetches a task from the server, falling back to the local
// registry when the server is unreachable.
func (s *Session) TaskInfo(ctx context.Context, taskID string) *model.Task {
	if task, err := s.gw.TaskDetail(ctx, taskID); err == nil && task != nil && task.TaskID != "" {
		return task
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[taskID]
}

// AllTasks lists the user's tasks from the server when possible, otherwise
// the locally cached ones.
func (s *Session) AllTasks(ctx context.Context) []*model.Task {
	s.mu.Lock()
	authenticated := s.authenticated
	userID := s.userID
	s.mu.Unlock()

	if authenticated && userID != "" {
		if tasks, err := s.gw.UserTasks(ctx, userID); err == nil {
			return tasks
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]*model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	return tasks
}

// DownloadLinks fetches a completed task's direct links. Failures are
// logged and yield an empty list.
func (s *Session) DownloadLinks(ctx context.Context, taskID string) []string {
	links, err := s.gw.DownloadLinks(ctx, taskID)
	if err != nil {
		s.log.Error("fetching download links failed", "task", taskID, "err", err)
		return nil
	}
	return links
}

// ServerStats fetches service statistics. Failures yield an empty map.
func (s *Session) ServerStats(ctx context.Context) map[string]any {
	stats, err := s.gw.ServerStats(ctx)
	if err != nil {
		s.log.Debug("fetching server stats failed", "err", err)
		return map[string]any{}
	}
	return stats
}

// fetchUserDetails pulls the extended profile after login. A server-side
// valid license flips licenseValid without a separate validation call.
func (s *Session) fetchUserDetails(ctx context.Context) {
	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()
	if userID == "" {
		return
	}

	details, err := s.gw.UserDetails(ctx, userID)
	if err != nil {
		s.log.Warn("fetching user details failed", "err", err)
		return
	}

	s.mu.Lock()
	if details.Email != "" {
		s.email = details.Email
	}
	if s.userInfo == nil {
		s.userInfo = make(map[string]any)
	}
	s.userInfo["email"] = details.Email
	s.userInfo["license_valid"] = details.LicenseValid
	if details.LicenseValid {
		s.licenseValid = true
		if details.LicenseInfo != nil {
			s.licenseInfo = details.LicenseInfo
		}
	}
	s.mu.Unlock()
}

// persistCredentials remembers the username and the transmission digest.
// The plaintext password is never stored.
func (s *Session) persistCredentials(username, digest string) {
	s.mu.Lock()
	s.settings.User.Username = username
	s.settings.User.Password = digest
	if s.email != "" {
		s.settings.User.Email = s.email
	}
	s.mu.Unlock()
	s.persistSettings()
}

func (s *Session) persistSettings() {
	if s.saveSettings == nil {
		return
	}
	if err := s.saveSettings(s.settings); err != nil {
		s.log.Warn("saving settings failed", "err", err)
	}
}

func (s *Session) persistPending(tasks []*model.Task) {
	if s.pendingStore == nil {
		return
	}
	if err := s.pendingStore.Save(tasks); err != nil {
		s.log.Warn("saving pending queue failed", "err", err)
	}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func daysLeft(info *model.LicenseInfo) int {
	if info == nil {
		return 0
	}
	return info.DaysLeft
}
