// Package tui renders a live view of a run and the final summary table.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"monobuild/src/broker"
	"monobuild/src/contracts"
)

// EventMsg delivers a decoded BuildEvent to the model.
type EventMsg contracts.BuildEvent

// eventsClosedMsg is sent when the event channel is closed.
type eventsClosedMsg struct{}

// buildRow is the latest known state of one build.
type buildRow struct {
	pkg       string
	buildNum  int
	status    string
	finished  bool
	succeeded bool
}

// WatchModel follows the BuildEvents of a single run.
type WatchModel struct {
	events  <-chan broker.Message
	cancel  context.CancelFunc
	spinner spinner.Model
	styles  *StyleConfig

	runID    string
	rows     map[string]*buildRow
	pass     int
	pending  int
	total    int
	done     bool
	exitCode int
	quit     bool
}

// NewWatchModel creates a model reading from events. cancel, when set, is
// called if the user quits before the run is done.
func NewWatchModel(events <-chan broker.Message, cancel context.CancelFunc) WatchModel {
	styles := DefaultStyles()
	return WatchModel{
		events: events,
		cancel: cancel,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Pending)),
		),
		styles: styles,
		rows:   make(map[string]*buildRow),
	}
}

// waitForEvent reads the next decodable message from ch.
func waitForEvent(ch <-chan broker.Message) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for msg := range ch {
			e, err := contracts.DecodeBuildEvent(msg.Value)
			if err != nil {
				continue
			}
			return EventMsg(e)
		}
		return eventsClosedMsg{}
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.update(msg)
}

func (m WatchModel) update(msg tea.Msg) (WatchModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.done {
				m.quit = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, tea.Quit
		}
	case EventMsg:
		m.apply(contracts.BuildEvent(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) apply(e contracts.BuildEvent) {
	if m.runID == "" {
		m.runID = e.RunID
	}
	switch e.Type {
	case contracts.EventTriggered:
		m.rows[e.Package] = &buildRow{pkg: e.Package, buildNum: e.BuildNum, status: "triggered"}
		m.total = len(m.rows)
		m.pending = m.total
	case contracts.EventFinished:
		row, ok := m.rows[e.Package]
		if !ok {
			row = &buildRow{pkg: e.Package}
			m.rows[e.Package] = row
		}
		row.buildNum = e.BuildNum
		row.status = e.Status
		row.finished = true
		row.succeeded = e.Status == "success"
	case contracts.EventProgress:
		m.pass = e.Pass
		m.pending = e.Pending
		m.total = e.Total
	case contracts.EventSummary:
		m.done = true
		m.pending = 0
		m.exitCode = e.ExitCode
	}
}

// Quit reports whether the user left before the run was done.
func (m WatchModel) Quit() bool { return m.quit }

func (m WatchModel) sortedRows() []*buildRow {
	rows := make([]*buildRow, 0, len(m.rows))
	for _, r := range m.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pkg < rows[j].pkg })
	return rows
}

func (m WatchModel) View() string {
	var b strings.Builder

	title := m.styles.TitleStyle().Render("monobuild")
	if m.runID != "" {
		title += m.styles.HelpStyle().Render("run " + Truncate(m.runID, 8, false))
	}
	b.WriteString(title)
	b.WriteString("\n")

	width := 0
	for pkg := range m.rows {
		if w := VisualWidth(pkg); w > width {
			width = w
		}
	}

	for _, r := range m.sortedRows() {
		icon := m.spinner.View()
		switch {
		case r.succeeded:
			icon = m.styles.StatusStyle(true, true).Render("✓")
		case r.finished:
			icon = m.styles.StatusStyle(true, false).Render("✗")
		}
		status := m.styles.StatusStyle(r.finished, r.succeeded).Render(r.status)
		fmt.Fprintf(&b, " %s %s #%-6d %s\n", icon, TruncateAndPad(r.pkg, width, false), r.buildNum, status)
	}

	var footer string
	switch {
	case m.done && m.exitCode == 0:
		footer = m.styles.StatusStyle(true, true).Render("All builds succeeded")
	case m.done:
		footer = m.styles.StatusStyle(true, false).Render("One or more builds failed")
	case m.total == 0:
		footer = m.spinner.View() + " Detecting changed packages..."
	default:
		footer = fmt.Sprintf("%d builds left... (pass %d)", m.pending, m.pass)
	}
	b.WriteString("\n")
	b.WriteString(footer)
	if !m.done {
		b.WriteString(m.styles.HelpStyle().Render("q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// RunWatch shows the watch view until the run's summary arrives, the event
// channel closes, ctx is done, or the user quits.
func RunWatch(ctx context.Context, events <-chan broker.Message, cancel context.CancelFunc) (WatchModel, error) {
	p := tea.NewProgram(NewWatchModel(events, cancel), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(WatchModel); ok {
		return m, err
	}
	return WatchModel{}, err
}
