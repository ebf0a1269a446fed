package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/rollcall/internal/attendance"
	"github.com/five82/rollcall/internal/logtail"
	"github.com/five82/rollcall/internal/prefs"
	"github.com/five82/rollcall/internal/session"
)

// View is one screen of the dashboard.
type View int

const (
	ViewWelcome View = iota
	ViewAttend
	ViewPeriods
	ViewLogs
)

var viewOrder = []View{ViewWelcome, ViewAttend, ViewPeriods, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewWelcome:
		return "Welcome"
	case ViewPeriods:
		return "Timetable"
	case ViewLogs:
		return "Logs"
	default:
		return "Attendance"
	}
}

// prefName is the spelling stored in prefs.toml.
func (v View) prefName() string {
	switch v {
	case ViewWelcome:
		return "welcome"
	case ViewPeriods:
		return "periods"
	case ViewLogs:
		return "logs"
	default:
		return "attend"
	}
}

func parseView(name string) View {
	for _, v := range viewOrder {
		if v.prefName() == name {
			return v
		}
	}
	return ViewAttend
}

// noticeFor is how long a capture notice stays in the toast line.
const noticeFor = 4 * time.Second

// Controller is what the UI drives. *session.Session implements it.
type Controller interface {
	Snapshot() session.Snapshot
	Capture(ctx context.Context) (attendance.Outcome, error)
	Refresh(ctx context.Context) error
}

var _ Controller = (*session.Session)(nil)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   Controller
	Logger    *zap.Logger
	Theme     string
	StartView string
	PrefsPath string
	LogPath   string
	Tick      time.Duration
	// Identity names the signed-in user in the header.
	Identity string
	// Now overrides the wall clock used for relative times.
	Now func() time.Time
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	log       *zap.Logger
	keys      keyMap
	prefsPath string
	logPath   string
	tick      time.Duration
	identity  string
	now       func() time.Time

	theme  Theme
	view   View
	width  int
	height int
	ready  bool

	snapshot    session.Snapshot
	lastUpdated time.Time

	spinner    spinner.Model
	capturing  bool
	refreshing bool

	notice      attendance.Notice
	noticeUntil time.Time

	logViewport viewport.Model
	logEntries  []logtail.Entry
	logFollow   bool
	logErr      error

	showHelp bool
}

// New builds the model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:       ctx,
		ctrl:      opts.Session,
		log:       log,
		keys:      DefaultKeyMap(),
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		tick:      tick,
		identity:  opts.Identity,
		now:       now,
		theme:     GetTheme(opts.Theme),
		view:      parseView(opts.StartView),
		spinner:   sp,
		logFollow: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick), m.spinner.Tick}
	if m.ctrl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctrl))
	}
	if m.view == ViewLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.bodyHeight())
		}
		m.ready = true
		m.logViewport.Width = msg.Width
		m.logViewport.Height = m.bodyHeight()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = session.Snapshot(msg)
		m.lastUpdated = m.now()
		return m, nil

	case captureDoneMsg:
		m.capturing = false
		m.handleCaptureDone(msg)
		return m, fetchSnapshotCmd(m.ctrl)

	case refreshDoneMsg:
		m.refreshing = false
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.log.Warn("manual refresh failed", zap.Error(msg.err))
		}
		return m, fetchSnapshotCmd(m.ctrl)

	case logsMsg:
		m.logErr = msg.err
		if msg.err == nil {
			m.logEntries = msg.entries
		}
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.stepView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.stepView(-1))
	case key.Matches(msg, m.keys.ViewWelcome):
		return m.switchView(ViewWelcome)
	case key.Matches(msg, m.keys.ViewAttend):
		return m.switchView(ViewAttend)
	case key.Matches(msg, m.keys.ViewPeriods):
		return m.switchView(ViewPeriods)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	case key.Matches(msg, m.keys.Refresh):
		return m.startRefresh()
	}

	if m.view == ViewLogs {
		return m.handleLogsKey(msg)
	}
	if key.Matches(msg, m.keys.Capture) {
		return m.startCapture()
	}
	return m, nil
}

func (m Model) stepView(delta int) View {
	idx := 0
	for i, v := range viewOrder {
		if v == m.view {
			idx = i
		}
	}
	n := len(viewOrder)
	return viewOrder[((idx+delta)%n+n)%n]
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.view = v
	m.savePrefs()
	if v == ViewLogs {
		return m, readLogsCmd(m.logPath)
	}
	return m, nil
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, StartView: m.view.prefName()}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save prefs failed", zap.Error(err))
	}
}

// startCapture runs one capture off the UI loop. A second press while one is
// running only shows a notice.
func (m Model) startCapture() (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	if m.capturing {
		m.showNotice(attendance.Notice{Title: "Please Wait", Description: "A capture is already being processed."})
		return m, nil
	}
	m.capturing = true
	m.noticeUntil = time.Time{}
	return m, captureCmd(m.ctx, m.ctrl)
}

func (m *Model) handleCaptureDone(msg captureDoneMsg) {
	switch {
	case errors.Is(msg.err, attendance.ErrBusy):
		m.showNotice(attendance.Notice{Title: "Please Wait", Description: "A capture is already being processed."})
	case errors.Is(msg.err, session.ErrClosed), errors.Is(msg.err, context.Canceled):
	default:
		// Pre-flight errors carry their notice in the outcome as well.
		if msg.outcome.Notice.Title != "" {
			m.showNotice(msg.outcome.Notice)
		}
	}
}

func (m *Model) showNotice(n attendance.Notice) {
	m.notice = n
	m.noticeUntil = m.now().Add(noticeFor)
}

func (m Model) noticeVisible() bool {
	return m.notice.Title != "" && m.now().Before(m.noticeUntil)
}

func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.ctrl == nil || m.refreshing {
		return m, nil
	}
	m.refreshing = true
	return m, refreshCmd(m.ctx, m.ctrl)
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.ctrl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctrl))
	}
	if m.view == ViewLogs && m.logFollow {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

// bodyHeight is the space left under the header and command bar.
func (m Model) bodyHeight() int {
	h := m.height - 2
	if h < 1 {
		return 1
	}
	return h
}

func (m Model) renderMain() string {
	body := m.renderContent()
	return m.renderHeader() + "\n" + m.renderCommandBar() + "\n" + body
}

func (m Model) renderContent() string {
	switch m.view {
	case ViewWelcome:
		return m.renderWelcome()
	case ViewPeriods:
		return m.renderPeriods()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderAttend()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg session.Snapshot

type captureDoneMsg struct {
	outcome attendance.Outcome
	err     error
}

type refreshDoneMsg struct{ err error }

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(ctrl Controller) tea.Cmd {
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(ctrl.Snapshot())
	}
}

func captureCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, captureTimeout)
		defer cancel()
		out, err := ctrl.Capture(ctx)
		return captureDoneMsg{outcome: out, err: err}
	}
}

func refreshCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		return refreshDoneMsg{err: ctrl.Refresh(ctx)}
	}
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogReadLimit)
		if err != nil {
			return logsMsg{err: err}
		}
		return logsMsg{entries: logtail.ParseLines(lines)}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context ends.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
