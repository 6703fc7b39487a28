package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/desertthunder/pictune/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunListView ViewState = iota
	TrackListView
	ConfirmView
	ExportView
	ResultView
)

// RunStore lists stored runs, newest first.
type RunStore interface {
	List(limit int) ([]models.Run, error)
}

// ExportFunc pushes a run to the destination service, reporting progress on events.
// It must not close events.
type ExportFunc func(ctx context.Context, run *models.Run, events chan<- tasks.Event) (*tasks.ExportResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	runs      RunStore
	export    ExportFunc
	public    bool
	width     int
	height    int
	runList   list.Model
	trackList list.Model
	selected  *models.Run
	events    chan tasks.Event
	done      chan Msg
	progress  tasks.Event
	log       []string
	result    *tasks.ExportResult
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model. Exported playlists are public when public is set.
func NewModel(ctx context.Context, runs RunStore, export ExportFunc, public bool) *Model {
	return &Model{
		ctx:       ctx,
		view:      RunListView,
		runs:      runs,
		export:    export,
		public:    public,
		runList:   newList("Runs", nil),
		trackList: newList("Tracks", nil),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return l
}

// Init initializes the TUI by loading stored runs.
func (m *Model) Init() tea.Cmd {
	return m.fetchRuns()
}

// State reports the current view.
func (m *Model) State() ViewState { return m.view }

// Err reports the last error shown to the user.
func (m *Model) Err() error { return m.err }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.runList.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		m.trackList.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case RunListView:
			return m.handleRunListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ExportView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgRunsFetched:
		data := msg.data.(runsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.runs))
		for i, r := range data.runs {
			items[i] = runItem{run: r}
		}
		m.runList.SetItems(items)
		m.runList.Title = fmt.Sprintf("Runs (%d)", len(data.runs))
		return m, nil

	case MsgProgressUpdate:
		ev := msg.data.(tasks.Event)
		m.progress = ev
		if line := EventLine(ev); ev.Kind != tasks.EventStarted && line != "" {
			m.log = append(m.log, line)
			if len(m.log) > 8 {
				m.log = m.log[len(m.log)-8:]
			}
		}
		return m, m.waitForProgress()

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.result = data.result
		m.err = data.err
		m.events, m.done = nil, nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == RunListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case RunListView:
		return m.renderRunList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleRunListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.runList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if item, ok := m.runList.SelectedItem().(runItem); ok {
			run := item.run
			m.selected = &run
			items := make([]list.Item, len(run.Tracks))
			for i, t := range run.Tracks {
				items[i] = trackItem{track: t}
			}
			m.trackList.SetItems(items)
			m.trackList.ResetSelected()
			m.trackList.Title = fmt.Sprintf("Tracks for '%s'", formatter.Title(&run))
			m.view = TrackListView
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = RunListView
		return m, nil
	case key.Matches(msg, m.keys.export):
		if m.selected != nil && len(m.selected.Tracks) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.quit):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.confirm):
		m.view = ExportView
		return m, m.startExport()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = RunListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.log = nil
		m.progress = tasks.Event{}
		return m, m.fetchRuns()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case RunListView:
		m.runList, cmd = m.runList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchRuns() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.runs.List(0)
		return runsFetchedMsg(runs, err)
	}
}

// startExport runs the export in the background. The worker closes events when it returns
// and then hands the final message over done.
func (m *Model) startExport() tea.Cmd {
	events := make(chan tasks.Event, 64)
	done := make(chan Msg, 1)
	m.events, m.done = events, done
	m.log = nil
	run := m.selected

	go func() {
		result, err := m.export(m.ctx, run, events)
		close(events)
		done <- exportCompleteMsg(result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	events, done := m.events, m.done
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		if ev, ok := <-events; ok {
			return progressUpdateMsg(ev)
		}
		return <-done
	}
}

func (m *Model) renderRunList() string {
	helpKeys := []key.Binding{m.keys.open, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.runList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.export, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	name := formatter.Title(m.selected)
	title := styles.title.Render(fmt.Sprintf("Create Spotify playlist '%s'?", name))
	info := fmt.Sprintf("\nRun: %s\nTracks: %d\nVisibility: %s\n",
		formatter.ShortID(m.selected.ID), len(m.selected.Tracks), shared.VisibilityString(m.public))

	helpKeys := []key.Binding{m.keys.confirm, m.keys.cancel}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting to Spotify")

	var phase string
	switch m.progress.Phase {
	case tasks.PhaseMatch:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.PhaseAssemble:
		phase = fmt.Sprintf("Adding tracks (%d/%d batches)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(strings.Join(m.log, "\n")))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Export failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	a := m.result.Assembly
	title := styles.outcome(a.Created, m.err == nil && a.Complete())

	var b strings.Builder
	fmt.Fprintf(&b, "\nMatched: %d/%d", m.result.Found(), len(m.result.Matches))
	if a.Created {
		fmt.Fprintf(&b, "\nPlaylist: %s\nAdded: %d/%d", a.Playlist.Name, a.Confirmed, a.Total)
		if a.Playlist.URL != "" {
			fmt.Fprintf(&b, "\nLink: %s", a.Playlist.URL)
		}
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n\n%s", styles.err.Render(m.err.Error()))
	}

	if unmatched := m.result.Unmatched(); len(unmatched) > 0 {
		fmt.Fprintf(&b, "\n\n%s", styles.warn.Render(fmt.Sprintf("No match for %d tracks:", len(unmatched))))
		for _, r := range unmatched {
			fmt.Fprintf(&b, "\n  • %s - %s", r.Source.Artist, r.Source.Title)
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), helpView)
}
