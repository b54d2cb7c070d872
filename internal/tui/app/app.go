package app

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/macdongler/dashboard/internal/client"
	"github.com/macdongler/dashboard/internal/ingest"
	"github.com/macdongler/dashboard/internal/tui/theme"
	"github.com/macdongler/dashboard/internal/tui/views/devices"
	"github.com/macdongler/dashboard/internal/tui/views/help"
	"github.com/macdongler/dashboard/internal/tui/views/logview"
	"github.com/macdongler/dashboard/internal/tui/views/progress"
	"github.com/macdongler/dashboard/internal/tui/views/status"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
)

// Options configure the root model.
type Options struct {
	Source client.Source
	// Health, when set, is probed for the producer's boot time.
	Health        *client.HTTPSource
	Interval      time.Duration
	SeenRetention int64
	Server        string
	Transport     string
	HelpStyle     string
	Logger        *zap.Logger
}

// batchResult tags a fetch with the session generation that issued it so
// batches fetched before a reset are dropped.
type batchResult struct {
	gen int
	msg client.BatchMsg
}

// Model is the root Bubble Tea model.
type Model struct {
	src      client.Source
	health   *client.HTTPSource
	interval time.Duration
	opts     ingest.Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	session  *ingest.Session
	gen      int
	fetching bool

	keys    KeyMap
	width   int
	height  int
	overlay Overlay

	// Sub-views.
	statusBar status.Model
	progress  progress.Model
	devices   devices.Model
	logs      logview.Model
	help      help.Model
}

// New creates the root model.
func New(o Options) Model {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	keys := DefaultKeyMap()
	opts := ingest.Options{SeenRetention: o.SeenRetention, Logger: log}
	return Model{
		src:       o.Source,
		health:    o.Health,
		interval:  o.Interval,
		opts:      opts,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		session:   ingest.NewSession(opts),
		keys:      keys,
		statusBar: status.New(o.Server, o.Transport),
		progress:  progress.New(),
		devices:   devices.New(),
		logs:      logview.New(),
		help:      help.New(o.HelpStyle, keys.Bindings()...),
	}
}

// Session exposes the current session, for tests and the headless mode.
func (m Model) Session() *ingest.Session { return m.session }

// Init issues the first fetch and the health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(client.ScheduleFetch(0), m.probe())
}

func (m Model) probe() tea.Cmd {
	if m.health == nil {
		return nil
	}
	return client.HealthCmd(m.ctx, m.health)
}

func (m Model) fetch() tea.Cmd {
	gen := m.gen
	cmd := client.FetchCmd(m.ctx, m.src, m.session.Watermark())
	return func() tea.Msg {
		return batchResult{gen: gen, msg: cmd().(client.BatchMsg)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.progress.Width = msg.Width - 4
		m.devices.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.TickMsg:
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.fetch()

	case batchResult:
		m.fetching = false
		if msg.gen != m.gen {
			m.log.Debug("dropping batch from previous session", zap.Int("batch_gen", msg.gen))
			return m, client.ScheduleFetch(0)
		}
		return m.apply(msg.msg)

	case client.HealthMsg:
		if msg.Err != nil {
			m.log.Debug("health probe failed", zap.Error(msg.Err))
			return m, nil
		}
		m.statusBar.BootTime = msg.Health.Booted()
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply feeds one fetch result into the session and schedules the next.
func (m Model) apply(msg client.BatchMsg) (tea.Model, tea.Cmd) {
	next := client.ScheduleFetch(client.NextDelay(m.src, m.interval, msg.Err))
	if msg.Err != nil {
		m.log.Debug("fetch failed", zap.Int64("watermark", m.session.Watermark()), zap.Error(msg.Err))
		m.statusBar.Fail(msg.Err)
		return m, next
	}
	m.statusBar.Succeed()

	rep := m.session.Process(msg.Batch)
	if rep.Dispatched > 0 || rep.Malformed > 0 {
		m.log.Debug("batch processed",
			zap.Int("received", rep.Received),
			zap.Int("dispatched", rep.Dispatched),
			zap.Int("duplicates", rep.Duplicates),
			zap.Int("malformed", rep.Malformed),
			zap.Duration("elapsed", msg.Elapsed),
		)
	}
	cmd := m.sync()
	return m, tea.Batch(cmd, next)
}

// sync copies session state into the sub-views.
func (m *Model) sync() tea.Cmd {
	st := m.session.State()
	m.statusBar.SetSession(m.session.Watermark(), m.session.SeenCount(), st.FoundCount())
	m.devices.SetRows(st.FoundCount(), st.Devices())
	return m.progress.Set(st.Progress(), st.CurrentDevice())
}

// reset discards the session and starts over from watermark zero. An
// in-flight fetch is left to finish and its batch is dropped.
func (m Model) reset() (tea.Model, tea.Cmd) {
	m.gen++
	m.session.Close()
	m.session = ingest.NewSession(m.opts)
	if c, ok := m.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			m.log.Debug("closing source on reset", zap.Error(err))
		}
	}
	m.logs.Select(m.logs.Active)
	m.log.Info("session reset", zap.String("session", m.session.ID().String()))
	cmd := m.sync()
	return m, tea.Batch(cmd, m.probe())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	book := m.session.State().Log()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.logs.ScrollUp(1, book)

	case key.Matches(msg, m.keys.Down):
		m.logs.ScrollDown(1)

	case key.Matches(msg, m.keys.Tab):
		m.logs.Next()

	case key.Matches(msg, m.keys.Log):
		m.logs.Select(ingest.ViewAll)

	case key.Matches(msg, m.keys.Errors):
		m.logs.Select(ingest.ViewErrors)

	case key.Matches(msg, m.keys.Warnings):
		m.logs.Select(ingest.ViewWarnings)

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		m.help.View(m.width)

	case key.Matches(msg, m.keys.Reset):
		return m.reset()
	}

	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	footer := theme.StyleDimmed.Render("  j/k:scroll  tab/1-3:log view  r:reset  ?:help  q:quit")
	top := lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		m.progress.View(),
	)

	if m.overlay == OverlayHelp {
		return lipgloss.JoinVertical(lipgloss.Left, top, m.help.View(m.width), footer)
	}

	deviceRows := (m.height - lipgloss.Height(top)) / 3
	if deviceRows < 3 {
		deviceRows = 3
	}
	table := m.devices.View(deviceRows)

	logHeight := m.height - lipgloss.Height(top) - lipgloss.Height(table) - 1
	book := m.session.State().Log()

	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		table,
		m.logs.View(book, m.width, logHeight),
		footer,
	)
}
