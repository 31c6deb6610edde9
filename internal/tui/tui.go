// Package tui provides a Bubble Tea terminal user interface for the
// download client.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xueke/download-client/internal/model"
	"github.com/xueke/download-client/internal/session"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateConnecting State = iota
	StateLogin
	StateLicense
	StateSubmit
	StateWatching
	StateError
)

// LogLevel classifies a log line in the UI.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogSuccess
	LogWarning
	LogError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   LogLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	sess    *session.Session
	state   State
	spinner spinner.Model

	username textinput.Model
	password textinput.Model
	license  textinput.Model
	urls     textinput.Model
	email    textinput.Model
	focus    int

	logs  []LogEntry
	tasks []*model.Task
	err   error

	events chan session.StatusEvent
	errs   chan error

	width  int
	height int
}

// NewModel creates a new TUI model wired to the session's event sinks.
func NewModel(sess *session.Session) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Width = 40
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 64
	password.Width = 40

	license := textinput.New()
	license.Placeholder = "XUKE-XXXX-XXXX-XXXX"
	license.CharLimit = 64
	license.Width = 40

	urls := textinput.New()
	urls.Placeholder = "https://example.com/a, https://example.com/b"
	urls.CharLimit = 2000
	urls.Width = 60

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 120
	email.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	m := Model{
		sess:     sess,
		state:    StateConnecting,
		spinner:  sp,
		username: username,
		password: password,
		license:  license,
		urls:     urls,
		email:    email,
		events:   make(chan session.StatusEvent, 32),
		errs:     make(chan error, 32),
	}

	sess.Notifier().RegisterStatus(eventForwarder(m.events))
	sess.Notifier().RegisterError(errorForwarder(m.errs))

	return m
}

// eventForwarder bridges session events into the Bubble Tea loop.
type eventForwarder chan session.StatusEvent

func (f eventForwarder) OnStatus(e session.StatusEvent) {
	select {
	case f <- e:
	default: // UI lagging, drop rather than block the session
	}
}

type errorForwarder chan error

func (f errorForwarder) OnError(err error) {
	select {
	case f <- err:
	default:
	}
}

// Message types
type (
	// EventMsg carries a session status event.
	EventMsg struct {
		Event session.StatusEvent
	}

	// ErrMsg carries a session error notification.
	ErrMsg struct {
		Err error
	}

	// ConnectDoneMsg is sent when the initial connect attempt finishes.
	ConnectDoneMsg struct {
		OK bool
	}

	// LoginDoneMsg is sent when a login attempt finishes.
	LoginDoneMsg struct {
		OK bool
	}

	// LicenseDoneMsg is sent when a license validation finishes.
	LicenseDoneMsg struct {
		OK bool
	}

	// SubmitDoneMsg is sent when a task submission finishes.
	SubmitDoneMsg struct {
		TaskID string
		OK     bool
	}

	// RefreshMsg is a periodic prompt to refresh the task list.
	RefreshMsg struct{}
)

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.connect(),
		m.waitForEvent(),
		m.waitForError(),
	)
}

func (m Model) connect() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ConnectDoneMsg{OK: m.sess.Connect(ctx, "")}
	}
}

func (m Model) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return LoginDoneMsg{OK: m.sess.Login(ctx, username, password)}
	}
}

func (m Model) validate(key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return LicenseDoneMsg{OK: m.sess.ValidateLicense(ctx, key)}
	}
}

func (m Model) submit(urls []string, email string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		id, ok := m.sess.SubmitDownloadTask(ctx, urls, email)
		return SubmitDoneMsg{TaskID: id, OK: ok}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return EventMsg{Event: <-m.events}
	}
}

func (m Model) waitForError() tea.Cmd {
	return func() tea.Msg {
		return ErrMsg{Err: <-m.errs}
	}
}

func (m Model) refreshTasks() tea.Cmd {
	return tea.Tick(2*time.Second, func(_ time.Time) tea.Msg {
		return RefreshMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.sess.Disconnect()
			return m, tea.Quit

		case "esc":
			if m.state == StateWatching {
				m.state = StateSubmit
				m.focusField(0)
				return m, nil
			}
			m.sess.Disconnect()
			return m, tea.Quit

		case "tab", "shift+tab":
			m.cycleFocus(msg.String() == "shift+tab")
			return m, nil

		case "enter":
			if cmd := m.handleEnter(); cmd != nil {
				return m, tea.Batch(cmd, m.spinner.Tick)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ConnectDoneMsg:
		if msg.OK {
			m.state = StateLogin
			m.focusField(0)
		} else {
			m.state = StateError
			m.err = fmt.Errorf("server unreachable")
		}

	case LoginDoneMsg:
		if msg.OK {
			if m.sess.Status().LicenseValid {
				m.state = StateSubmit
			} else {
				m.state = StateLicense
			}
			m.focusField(0)
		}

	case LicenseDoneMsg:
		if msg.OK {
			m.state = StateSubmit
			m.focusField(0)
		}

	case SubmitDoneMsg:
		if msg.OK {
			m.state = StateWatching
			cmds = append(cmds, m.refreshTasks())
		}

	case RefreshMsg:
		if m.state == StateWatching {
			m.tasks = m.sess.AllTasks(context.Background())
			cmds = append(cmds, m.refreshTasks())
		}

	case EventMsg:
		m.appendEventLog(msg.Event)
		cmds = append(cmds, m.waitForEvent())

	case ErrMsg:
		if msg.Err != nil {
			m.appendLog(LogEntry{Message: msg.Err.Error(), Level: LogError})
		}
		cmds = append(cmds, m.waitForError())
	}

	cmds = append(cmds, m.updateInputs(msg)...)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEnter() tea.Cmd {
	switch m.state {
	case StateLogin:
		if m.username.Value() != "" && m.password.Value() != "" {
			return m.login(m.username.Value(), m.password.Value())
		}
	case StateLicense:
		if m.license.Value() != "" {
			return m.validate(m.license.Value())
		}
	case StateSubmit:
		urls := splitURLs(m.urls.Value())
		if len(urls) > 0 && m.email.Value() != "" {
			return m.submit(urls, m.email.Value())
		}
	}
	return nil
}

func (m *Model) activeInputs() []*textinput.Model {
	switch m.state {
	case StateLogin:
		return []*textinput.Model{&m.username, &m.password}
	case StateLicense:
		return []*textinput.Model{&m.license}
	case StateSubmit:
		return []*textinput.Model{&m.urls, &m.email}
	}
	return nil
}

func (m *Model) focusField(i int) {
	inputs := m.activeInputs()
	m.focus = i
	for j, input := range inputs {
		if j == i {
			input.Focus()
		} else {
			input.Blur()
		}
	}
}

func (m *Model) cycleFocus(backwards bool) {
	inputs := m.activeInputs()
	if len(inputs) == 0 {
		return
	}
	if backwards {
		m.focus = (m.focus - 1 + len(inputs)) % len(inputs)
	} else {
		m.focus = (m.focus + 1) % len(inputs)
	}
	m.focusField(m.focus)
}

func (m *Model) updateInputs(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	for _, input := range m.activeInputs() {
		var cmd tea.Cmd
		*input, cmd = input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (m *Model) appendEventLog(e session.StatusEvent) {
	switch e.Kind {
	case session.EventConnected:
		m.appendLog(LogEntry{Message: "Connected to server", Level: LogSuccess})
	case session.EventLoginSuccess:
		m.appendLog(LogEntry{Message: "Logged in", Level: LogSuccess})
	case session.EventLoginFailed:
		m.appendLog(LogEntry{Message: "Login failed: " + e.Reason, Level: LogError})
	case session.EventLicenseValid:
		msg := "License valid"
		if e.License != nil && e.License.DaysLeft > 0 {
			msg = fmt.Sprintf("License valid, %d days left", e.License.DaysLeft)
		}
		m.appendLog(LogEntry{Message: msg, Level: LogSuccess})
	case session.EventLicenseInvalid:
		m.appendLog(LogEntry{Message: "License rejected: " + e.Reason, Level: LogError})
	case session.EventTaskSubmitted:
		if e.Task != nil {
			m.appendLog(LogEntry{Message: "Task submitted: " + e.Task.TaskID, Level: LogSuccess})
		}
	case session.EventTaskOfflineSaved:
		if e.Task != nil {
			m.appendLog(LogEntry{Message: "Task saved offline: " + e.Task.TaskID, Level: LogWarning})
		}
	case session.EventTaskComplete:
		if e.Task != nil {
			m.appendLog(LogEntry{Message: "Task complete: " + e.Task.TaskID, Level: LogSuccess})
		}
	case session.EventTaskStatus:
		if e.Task != nil {
			m.appendLog(LogEntry{Message: fmt.Sprintf("Task %s: %s %d%%", e.Task.TaskID, e.Task.Status, e.Task.Progress), Level: LogInfo})
		}
	case session.EventLogout:
		m.appendLog(LogEntry{Message: "Logged out", Level: LogInfo})
	case session.EventDisconnected:
		m.appendLog(LogEntry{Message: "Disconnected", Level: LogInfo})
	}
}

func (m *Model) appendLog(entry LogEntry) {
	m.logs = append(m.logs, entry)
	// Keep only last 10 logs
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Xueke Download Client"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.statusLine()))
	b.WriteString("\n\n")

	switch m.state {
	case StateConnecting:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Connecting..."))
		b.WriteString("\n")
	case StateLogin:
		b.WriteString(m.viewLogin())
	case StateLicense:
		b.WriteString(m.viewLicense())
	case StateSubmit:
		b.WriteString(m.viewSubmit())
	case StateWatching:
		b.WriteString(m.viewWatching())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(m.renderLogs())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) statusLine() string {
	status := m.sess.Status()
	parts := []string{"server: " + status.ServerURL}
	if status.Authenticated {
		parts = append(parts, "user: "+status.Username)
	}
	if status.LicenseValid {
		parts = append(parts, "licensed")
	}
	if status.PendingTasks > 0 {
		parts = append(parts, fmt.Sprintf("queued: %d", status.PendingTasks))
	}
	return strings.Join(parts, " | ")
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Log in:"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewLicense() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Enter license key:"))
	b.WriteString("\n\n")
	b.WriteString(m.license.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Tasks submitted before validation are queued and sent afterwards."))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewSubmit() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Submit download task:"))
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("URLs (comma-separated):"))
	b.WriteString("\n")
	b.WriteString(m.urls.View())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Notification email:"))
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewWatching() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Your tasks:"))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(m.spinner.View())
		b.WriteString(dimStyle.Render(" waiting for task updates..."))
		b.WriteString("\n")
		return b.String()
	}

	for _, task := range m.tasks {
		line := fmt.Sprintf("  %s  %-12s", task.TaskID, task.Status)
		if task.Status.Active() {
			line += fmt.Sprintf(" %3d%%", task.Progress)
		}
		switch task.Status {
		case model.StatusCompleted:
			b.WriteString(successStyle.Render(line))
		case model.StatusFailed:
			b.WriteString(errorStyle.Render(line))
		default:
			b.WriteString(taskStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Error:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder
	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case LogError:
			style = errorStyle
			prefix = "✗"
		case LogWarning:
			style = warningStyle
			prefix = "!"
		case LogSuccess:
			style = successStyle
			prefix = "✓"
		default:
			style = infoStyle
			prefix = "›"
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateLogin, StateLicense, StateSubmit:
		return "enter: confirm • tab: next field • esc: quit"
	case StateWatching:
		return "esc: back to submit • ctrl+c: quit"
	}
	return "esc: quit"
}

func splitURLs(input string) []string {
	var urls []string
	for _, part := range strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == ' '
	}) {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "http://") || strings.HasPrefix(part, "https://") {
			urls = append(urls, part)
		}
	}
	return urls
}

// Run starts the TUI application against the given session.
func Run(sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
