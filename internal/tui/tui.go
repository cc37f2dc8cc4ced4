// Package tui provides a Bubble Tea terminal user interface for playlist-archiver.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/playlist-archiver/internal/config"
	"github.com/handiism/playlist-archiver/internal/download"
	"github.com/handiism/playlist-archiver/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DB954")).
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

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	collectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateLoading
	StateReady
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	collections []*model.Collection
	plans       []download.CollectionPlan
	supervisor  *download.Supervisor
	events      chan download.ProgressEvent

	counters download.Counters

	// Options
	playlist bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. The manifest path input is prefilled
// from settings.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "spotify-playlists.json"
	ti.SetValue(settings.ManifestPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		playlist:  settings.CreatePlaylist,
		events:    make(chan download.ProgressEvent, 256),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the running supervisor.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// ManifestMsg is sent when the manifest has been loaded and planned.
	ManifestMsg struct {
		Collections []*model.Collection
		Plans       []download.CollectionPlan
		Err         error
	}

	// RunDoneMsg is sent when the supervisor returns.
	RunDoneMsg struct {
		Snapshot download.Snapshot
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			switch m.state {
			case StateInput, StateReady:
				return m, tea.Quit
			case StateRunning:
				m.cancel()
				m.logs = appendLog(m.logs, LogEntry{Message: "Interrupting, waiting for workers...", Level: download.LevelWarning})
			}

		case "enter":
			switch m.state {
			case StateInput:
				if m.textInput.Value() != "" {
					m.state = StateLoading
					return m, tea.Batch(m.loadManifest(), m.spinner.Tick)
				}
			case StateReady:
				m.state = StateRunning
				m.settings.CreatePlaylist = m.playlist
				m.supervisor = download.NewSupervisor(m.settings, download.NewDeps(m.settings, m.forward))
				return m, tea.Batch(m.startRun(), m.waitForEvent(), m.tickProgress())
			}

		case "p":
			if m.state == StateReady {
				m.playlist = !m.playlist
			}

		case "v":
			if m.state == StateReady {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.collections = nil
				m.plans = nil
				m.supervisor = nil
				m.counters = download.Counters{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ManifestMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.collections = msg.Collections
			m.plans = msg.Plans
			m.state = StateReady
			m.textInput.Blur()
		}

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = appendLog(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		}
		if msg.Event.Level == download.LevelSummary && msg.Event.Counters.Total > 0 {
			m.counters = msg.Event.Counters
		}
		if m.state == StateRunning {
			cmds = append(cmds, m.waitForEvent())
		}

	case RunDoneMsg:
		m.counters = msg.Snapshot.Total
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("interrupted after %d of %d items", m.counters.Done(), m.counters.Total)
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.supervisor != nil && m.state == StateRunning {
			m.counters = m.supervisor.Progress().Total
			cmds = append(cmds, m.progress.SetPercent(fraction(m.counters)), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func appendLog(logs []LogEntry, e LogEntry) []LogEntry {
	logs = append(logs, e)
	if len(logs) > maxLogs {
		logs = logs[len(logs)-maxLogs:]
	}
	return logs
}

func fraction(c download.Counters) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Done()) / float64(c.Total)
}

// forward hands supervisor events to the UI. Events are dropped rather than
// stalling a worker when the UI falls behind.
func (m Model) forward(e download.ProgressEvent) {
	select {
	case m.events <- e:
	default:
	}
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-m.events}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♫ Playlist Archiver"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Archive playlists and albums as tagged MP3 files"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Loading manifest..."))
		b.WriteString("\n")
	case StateReady:
		b.WriteString(m.viewReady())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Manifest file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output path: %s", m.settings.OutputPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewReady() string {
	var b strings.Builder

	var archived, pending, failed int
	for _, p := range m.plans {
		archived += p.Archived
		pending += p.Pending
		failed += p.Failed
	}

	b.WriteString(successStyle.Render(fmt.Sprintf("Found %d collection(s):", len(m.plans))))
	b.WriteString("\n")
	for _, p := range m.plans {
		b.WriteString(collectionStyle.Render(fmt.Sprintf("  ♪ %s", p.Collection.Name)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d archived, %d pending", p.Archived, p.Pending)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("%d archived, %d pending (%d failed before), %d workers",
		archived, pending, failed, m.settings.Workers)))
	b.WriteString("\n\n")

	playlistCheck := "[ ]"
	if m.playlist {
		playlistCheck = "[×]"
	}
	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Create playlists (p)\n", playlistCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.progress.ViewAs(fraction(m.counters)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Items: %d/%d | %d downloaded, %d failed, %d skipped",
		m.counters.Done(), m.counters.Total, m.counters.Success, m.counters.Fail, m.counters.Skip,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	return boxStyle.Render(fmt.Sprintf(
		"✨ Archive complete!\n\n"+
			"Collections: %d\n"+
			"Downloaded: %d\n"+
			"Failed: %d\n"+
			"Skipped: %d",
		len(m.collections),
		m.counters.Success,
		m.counters.Fail,
		m.counters.Skip,
	))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelSummary:
			style = subtitleStyle
			prefix = "Σ"
		case download.LevelInfo, download.LevelProgress:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: load manifest • esc: quit"
	case StateReady:
		return "enter: start • p: playlists • v: verbose • esc: quit"
	case StateRunning:
		return "esc: interrupt"
	case StateComplete, StateError:
		return "r: start over • q: quit"
	}
	return ""
}

// loadManifest reads the manifest and inspects the output tree.
func (m Model) loadManifest() tea.Cmd {
	path := m.textInput.Value()
	root := m.settings.OutputPath
	return func() tea.Msg {
		collections, err := model.LoadManifest(path, root)
		if err != nil {
			return ManifestMsg{Err: err}
		}
		return ManifestMsg{Collections: collections, Plans: download.Plan(collections)}
	}
}

// startRun runs the supervisor in the background.
func (m Model) startRun() tea.Cmd {
	ctx, sup, collections := m.ctx, m.supervisor, m.collections
	return func() tea.Msg {
		snapshot, err := sup.Run(ctx, collections)
		return RunDoneMsg{Snapshot: snapshot, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
