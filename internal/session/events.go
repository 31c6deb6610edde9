package session

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/xueke/download-client/internal/model"
)

// EventKind identifies a status event emitted by the session.
type EventKind string

const (
	EventConnected        EventKind = "connected"
	EventDisconnected     EventKind = "disconnected"
	EventLoginSuccess     EventKind = "login_success"
	EventLoginFailed      EventKind = "login_failed"
	EventLicenseValid     EventKind = "license_valid"
	EventLicenseInvalid   EventKind = "license_invalid"
	EventTaskSubmitted    EventKind = "task_submitted"
	EventTaskOfflineSaved EventKind = "task_offline_saved"
	EventTaskComplete     EventKind = "task_complete"
	EventTaskStatus       EventKind = "task_status"
	EventLogout           EventKind = "logout"
)

// StatusEvent is a typed status notification.
//
// Kind is always set; the remaining fields are populated depending on the
// kind. Task events carry Task, license events carry License, login events
// carry User, and failures carry the server's Reason.
type StatusEvent struct {
	Kind    EventKind
	Task    *model.Task
	License *model.LicenseInfo
	User    *model.UserInfo
	Reason  string
	Data    map[string]any
}

// StatusSink receives status events from the session.
type StatusSink interface {
	OnStatus(event StatusEvent)
}

// MessageSink receives free-form message events. The core emits none
// itself; the sink exists for protocol-level consumers.
type MessageSink interface {
	OnMessage(msg string)
}

// ErrorSink receives error notifications from the session.
type ErrorSink interface {
	OnError(err error)
}

// Notifier fans out events to registered sinks.
//
// Registration is idempotent: registering the same sink twice is a no-op.
// A sink that panics is logged and skipped; delivery continues to the
// remaining sinks and never propagates to the caller.
type Notifier struct {
	log *slog.Logger

	mu       sync.Mutex
	status   []StatusSink
	messages []MessageSink
	errors   []ErrorSink
}

// NewNotifier creates a notifier logging sink failures to log.
func NewNotifier(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{log: log}
}

// RegisterStatus adds a status sink. Re-registering is a no-op.
func (n *Notifier) RegisterStatus(sink StatusSink) {
	if sink == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.status {
		if sameSink(s, sink) {
			return
		}
	}
	n.status = append(n.status, sink)
}

// RegisterMessage adds a message sink. Re-registering is a no-op.
func (n *Notifier) RegisterMessage(sink MessageSink) {
	if sink == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.messages {
		if sameSink(s, sink) {
			return
		}
	}
	n.messages = append(n.messages, sink)
}

// RegisterError adds an error sink. Re-registering is a no-op.
func (n *Notifier) RegisterError(sink ErrorSink) {
	if sink == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.errors {
		if sameSink(s, sink) {
			return
		}
	}
	n.errors = append(n.errors, sink)
}

// NotifyStatus delivers a status event to every registered status sink.
func (n *Notifier) NotifyStatus(event StatusEvent) {
	n.mu.Lock()
	sinks := append([]StatusSink(nil), n.status...)
	n.mu.Unlock()

	for _, sink := range sinks {
		n.deliver(func() { sink.OnStatus(event) })
	}
}

// NotifyMessage delivers a message to every registered message sink.
func (n *Notifier) NotifyMessage(msg string) {
	n.mu.Lock()
	sinks := append([]MessageSink(nil), n.messages...)
	n.mu.Unlock()

	for _, sink := range sinks {
		n.deliver(func() { sink.OnMessage(msg) })
	}
}

// NotifyError delivers an error to every registered error sink.
func (n *Notifier) NotifyError(err error) {
	if err == nil {
		return
	}
	n.mu.Lock()
	sinks := append([]ErrorSink(nil), n.errors...)
	n.mu.Unlock()

	for _, sink := range sinks {
		n.deliver(func() { sink.OnError(err) })
	}
}

// sameSink reports whether two sinks are the same registered value.
// Sinks of uncomparable dynamic types (such as the Func adapters) are never
// considered equal, so they register unconditionally.
func sameSink(a, b any) bool {
	t := reflect.TypeOf(a)
	if t == nil || !t.Comparable() || reflect.TypeOf(b) != t {
		return false
	}
	return a == b
}

func (n *Notifier) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("event sink panicked", "panic", r)
		}
	}()
	fn()
}

// StatusFunc adapts a function to the StatusSink interface.
type StatusFunc func(event StatusEvent)

// OnStatus implements StatusSink.
func (f StatusFunc) OnStatus(event StatusEvent) { f(event) }

// ErrorFunc adapts a function to the ErrorSink interface.
type ErrorFunc func(err error)

// OnError implements ErrorSink.
func (f ErrorFunc) OnError(err error) { f(err) }
