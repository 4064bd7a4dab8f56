package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	MigrateView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	jobs         []tasks.Job
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	summary      *tasks.RunSummary
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	yes  key.Binding
	no   key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		yes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "start"),
		),
		no: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.yes, k.no, k.quit},
	}
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	summary *tasks.RunSummary
	err     error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.Engine, jobs []tasks.Job) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return &Model{
		ctx:     ctx,
		view:    ConfirmView,
		engine:  engine,
		jobs:    jobs,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the spinner tick loop.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MigrateView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.summary = msg.summary
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		return m, tea.Quit
	case "y", "enter":
		m.view = MigrateView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		summary, err := m.engine.RunAll(m.ctx, m.jobs, m.progressChan)
		m.summary = summary
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{summary: m.summary, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{summary: m.summary, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Migrate %d playlist(s) to Spotify?", len(m.jobs)))

	var info string
	for i, job := range m.jobs {
		limit := "all tracks"
		if job.Limit > 0 {
			limit = fmt.Sprintf("first %d tracks", job.Limit)
		}
		info += fmt.Sprintf("%d. NetEase playlist %s (%s)\n", i+1, job.SourcePlaylistID, limit)
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render("Migrating Playlists")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.ResolveTracks:
		phase = fmt.Sprintf("Resolving tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating playlist on Spotify..."
	case tasks.AppendTracks:
		phase = fmt.Sprintf("Adding tracks (batch %d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Migration halted: %v\n\nPress q to quit", m.err))
	}

	if m.summary == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Migration Complete")
	info := fmt.Sprintf("\nCompleted: %d/%d playlists\n", m.summary.CompletedJobs(), len(m.summary.Reports))

	var details string
	for _, report := range m.summary.Reports {
		line := fmt.Sprintf("\n%s", report.Summary())
		if report.State == tasks.Failed {
			line = styles.warn.Render(line)
		}
		details += line

		unmatched := 0
		for _, o := range report.Outcomes {
			if o.Status == match.Unmatched {
				if unmatched == 0 {
					details += styles.warn.Render("\n  Unmatched:")
				}
				details += fmt.Sprintf("\n  • %s - %s", o.Track.PrimaryArtist(), o.Track.Title)
				unmatched++
			}
		}
	}

	helpKeys := []key.Binding{m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s%s\n\n%s", title, info, details, helpView)
}
