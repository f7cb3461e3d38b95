// Package tui provides a Bubble Tea terminal user interface for album-dl.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/album-dl/internal/config"
	"github.com/handiism/album-dl/internal/download"
	"github.com/handiism/album-dl/internal/model"
)

const (
	// maxLogs is how many progress lines stay on screen.
	maxLogs = 10

	// maxFailures is how many failed items the summary lists.
	maxFailures = 5

	pollInterval = 200 * time.Millisecond
)

var errCancelled = errors.New("cancelled by user")

// State is the screen the model is on.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// busy reports whether a listing or run is in flight.
func (s State) busy() bool { return s == StateInitializing || s == StateDownloading }

// finished reports whether the model waits for quit or restart.
func (s State) finished() bool { return s == StateComplete || s == StateError }

// LogEntry is one progress line on screen.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// stats mirrors Manager.GetProgress.
type stats struct {
	received, total int64
	files, allFiles int32
}

func (s stats) fraction() float64 {
	if s.allFiles == 0 {
		return 0
	}
	return float64(s.files) / float64(s.allFiles)
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	keys      KeyMap
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  config.Settings

	naming   model.NamingPolicy
	ext      model.Extension
	playlist bool
	verbose  bool

	// run counts downloads started from this model. Messages carry the run
	// that produced them and are dropped once the user has moved on.
	run     int
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan ProgressMsg
	manager *download.Manager

	job    *model.AlbumJob
	result *model.RunResult
	stats  stats
	logs   []LogEntry
	err    error
}

// Message types
type (
	// ProgressMsg carries one manager event.
	ProgressMsg struct {
		Run   int
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when the listing has been resolved.
	InitDoneMsg struct {
		Run     int
		Job     *model.AlbumJob
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when the run has finished.
	DownloadDoneMsg struct {
		Run      int
		Result   *model.RunResult
		Received int64
		Total    int64
		Files    int32
		TotalF   int32
	}

	// TickMsg polls the manager for byte and file counts.
	TickMsg struct{}
)

// NewModel creates a model whose option toggles start from settings.
// settings must be valid.
func NewModel(settings *config.Settings) Model {
	input := textinput.New()
	input.Placeholder = "https://www.ximalaya.com/album/123456"
	input.CharLimit = 500
	input.Width = 60
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = failStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50

	naming, _ := model.ParseNamingPolicy(settings.Naming)
	ext, _ := model.ParseExtension(settings.Extension)

	m := Model{
		keys:      DefaultKeyMap(),
		state:     StateInput,
		textInput: input,
		spinner:   spin,
		progress:  bar,
		settings:  *settings,
		naming:    naming,
		ext:       ext,
		playlist:  settings.CreatePlaylist,
		verbose:   settings.LogLevel == "debug",
		events:    make(chan ProgressMsg, 64),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if handled, cmd := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Run == m.run {
			m.appendLog(msg.Event)
		}
		cmds = append(cmds, m.listen())

	case InitDoneMsg:
		if msg.Run == m.run && m.state == StateInitializing {
			cmds = append(cmds, m.resolved(msg))
		}

	case DownloadDoneMsg:
		if msg.Run != m.run || m.state != StateDownloading {
			break
		}
		m.result = msg.Result
		m.stats = stats{received: msg.Received, total: msg.Total, files: msg.Files, allFiles: msg.TotalF}
		m.state = StateComplete
		if m.ctx.Err() != nil {
			m.fail(errCancelled)
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			r, t, f, all := m.manager.GetProgress()
			m.stats = stats{received: r, total: t, files: f, allFiles: all}
			cmds = append(cmds, m.progress.SetPercent(m.stats.fraction()), poll())
		}

	case progress.FrameMsg:
		bar, cmd := m.progress.Update(msg)
		m.progress = bar.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey applies a key press. It reports false when the key should fall
// through to the URL field.
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Abort):
		m.cancel()
		return true, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateInput {
			return true, tea.Quit
		}
		if m.state.busy() {
			m.cancel()
			m.fail(errCancelled)
		}
		return true, nil

	case m.state == StateInput:
		return m.handleInputKey(msg)

	case m.state.finished() && key.Matches(msg, m.keys.Quit):
		return true, tea.Quit

	case m.state.finished() && key.Matches(msg, m.keys.Restart):
		m.reset()
		return true, nil
	}
	return false, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Start):
		if strings.TrimSpace(m.textInput.Value()) == "" {
			return true, nil
		}
		m.state = StateInitializing
		return true, tea.Batch(m.resolve(), m.spinner.Tick)
	case key.Matches(msg, m.keys.Naming):
		m.naming = toggle(m.naming, model.NamingDefault, model.NamingTrack)
	case key.Matches(msg, m.keys.Format):
		m.ext = toggle(m.ext, model.ExtensionM4A, model.ExtensionMP3)
	case key.Matches(msg, m.keys.Playlist):
		m.playlist = !m.playlist
	case key.Matches(msg, m.keys.Verbose):
		m.verbose = !m.verbose
	default:
		return false, nil
	}
	return true, nil
}

func toggle[T comparable](v, a, b T) T {
	if v == a {
		return b
	}
	return a
}

func (m *Model) appendLog(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if n := len(m.logs); n > maxLogs {
		m.logs = m.logs[n-maxLogs:]
	}
}

func (m *Model) resolved(msg InitDoneMsg) tea.Cmd {
	if msg.Err != nil {
		m.fail(msg.Err)
		return nil
	}
	m.job = msg.Job
	m.manager = msg.Manager
	m.state = StateDownloading
	return tea.Batch(m.download(), poll())
}

func (m *Model) fail(err error) {
	m.state = StateError
	m.err = err
}

// reset returns to the input screen for another album.
func (m *Model) reset() {
	m.run++
	m.state = StateInput
	m.job, m.result, m.manager, m.err = nil, nil, nil, nil
	m.logs = nil
	m.stats = stats{}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// listen waits for the next manager event.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func poll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// options returns the pipeline options with the on-screen toggles applied.
func (m Model) options() download.Options {
	s := m.settings
	s.Naming = string(m.naming)
	s.Extension = string(m.ext)
	s.CreatePlaylist = m.playlist
	return s.PipelineOptions()
}

// resolve creates the manager and fetches the listing.
func (m Model) resolve() tea.Cmd {
	url := strings.TrimSpace(m.textInput.Value())
	ctx, events, opts, run := m.ctx, m.events, m.options(), m.run

	return func() tea.Msg {
		manager, err := download.NewManager(opts, func(event download.ProgressEvent) {
			select {
			case events <- ProgressMsg{Run: run, Event: event}:
			default:
				// UI is behind; workers must not block on it.
			}
		})
		if err != nil {
			return InitDoneMsg{Run: run, Err: err}
		}

		job, err := manager.Resolve(ctx, url)
		if err != nil {
			return InitDoneMsg{Run: run, Err: err}
		}
		return InitDoneMsg{Run: run, Job: job, Manager: manager}
	}
}

// download runs the job in the background.
func (m Model) download() tea.Cmd {
	ctx, manager, job, run := m.ctx, m.manager, m.job, m.run

	return func() tea.Msg {
		result := manager.Run(ctx, job, 0)
		received, total, files, totalFiles := manager.GetProgress()
		return DownloadDoneMsg{Run: run, Result: result, Received: received, Total: total, Files: files, TotalF: totalFiles}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	_, err := tea.NewProgram(NewModel(settings), tea.WithAltScreen()).Run()
	return err
}
