// Package console is the operator console: live rooms, recent results and
// outcome statistics rendered with Bubble Tea, locally or over SSH.
package console

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
	"github.com/vovakirdan/defuse-exe/internal/storage"
)

const (
	maxRows         = 50
	refreshInterval = 2 * time.Second
)

// Lister reports live rooms.
type Lister interface {
	Statuses() []multiplayer.RoomStatus
}

// ResultStore is the read side of storage.Store.
type ResultStore interface {
	RecentRogueResults(limit int) ([]storage.RogueResult, error)
	RecentPuzzleResults(limit int) ([]storage.PuzzleResult, error)
	PuzzleOutcomeStats() (map[string]*storage.OutcomeStats, error)
}

// Source feeds the console. Store and Listers may be nil or empty.
type Source struct {
	Store   ResultStore
	Listers []Lister
}

type view int

const (
	viewRooms view = iota
	viewRogue
	viewPuzzle
	viewOutcomes
	viewCount
)

var viewTitles = [viewCount]string{"Live rooms", "Roguelite results", "Puzzle results", "Puzzle outcomes"}

// KeyMap defines the console key bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Next    key.Binding
	Prev    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Next, k.Prev, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Next, k.Prev}, {k.Refresh, k.Quit}}
}

// DefaultKeyMap returns default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "scroll up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "scroll down")),
		Next:    key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next view")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("S-tab", "prev view")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// snapshot is one load of every view's data.
type snapshot struct {
	rooms    []multiplayer.RoomStatus
	rogue    []storage.RogueResult
	puzzle   []storage.PuzzleResult
	outcomes []*storage.OutcomeStats
	err      error
	at       time.Time
}

type snapshotMsg snapshot

type refreshMsg time.Time

// Model is the Bubble Tea model of the console.
type Model struct {
	source   Source
	current  view
	data     snapshot
	table    table.Model
	help     help.Model
	keys     KeyMap
	width    int
	height   int
	operator string
	quitting bool
}

// NewModel creates a console for operator with the given terminal size.
func NewModel(src Source, operator string, width, height int) Model {
	m := Model{
		source:   src,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		width:    width,
		height:   height,
		operator: operator,
	}
	m.table = m.createTable()
	return m
}

// load reads every view's data synchronously.
func (s Source) load() snapshot {
	snap := snapshot{at: time.Now()}
	for _, l := range s.Listers {
		if l != nil {
			snap.rooms = append(snap.rooms, l.Statuses()...)
		}
	}
	if s.Store == nil {
		return snap
	}
	var err error
	if snap.rogue, err = s.Store.RecentRogueResults(maxRows); err != nil {
		snap.err = err
	}
	if snap.puzzle, err = s.Store.RecentPuzzleResults(maxRows); err != nil {
		snap.err = err
	}
	stats, err := s.Store.PuzzleOutcomeStats()
	if err != nil {
		snap.err = err
	}
	for _, st := range stats {
		snap.outcomes = append(snap.outcomes, st)
	}
	sort.Slice(snap.outcomes, func(i, j int) bool { return snap.outcomes[i].Outcome < snap.outcomes[j].Outcome })
	return snap
}

func (m Model) loadCmd() tea.Cmd {
	src := m.source
	return func() tea.Msg { return snapshotMsg(src.load()) }
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) columns() []table.Column {
	switch m.current {
	case viewRooms:
		return []table.Column{
			{Title: "Room", Width: 14}, {Title: "Mode", Width: 8}, {Title: "Phase", Width: 10},
			{Title: "Players", Width: 8}, {Title: "Conns", Width: 6}, {Title: "Tick", Width: 8},
			{Title: "Detail", Width: 20},
		}
	case viewRogue:
		return []table.Column{
			{Title: "Ended", Width: 13}, {Title: "Room", Width: 12}, {Title: "Outcome", Width: 9},
			{Title: "Wave", Width: 5}, {Title: "Time", Width: 7}, {Title: "Players", Width: 8},
			{Title: "MVP", Width: 16},
		}
	case viewPuzzle:
		return []table.Column{
			{Title: "Ended", Width: 13}, {Title: "Instance", Width: 12}, {Title: "Archetype", Width: 10},
			{Title: "Tier", Width: 5}, {Title: "Outcome", Width: 9}, {Title: "Solved", Width: 7},
			{Title: "Time", Width: 7}, {Title: "Penalties", Width: 9},
		}
	default:
		return []table.Column{
			{Title: "Outcome", Width: 10}, {Title: "Matches", Width: 8}, {Title: "Avg time", Width: 9},
			{Title: "Avg players", Width: 11}, {Title: "Avg penalties", Width: 13}, {Title: "Last", Width: 13},
		}
	}
}

func (m Model) rows() []table.Row {
	var rows []table.Row
	switch m.current {
	case viewRooms:
		for _, r := range m.data.rooms {
			rows = append(rows, table.Row{
				r.ID, r.Mode.String(), r.Phase,
				fmt.Sprint(r.Players), fmt.Sprint(r.Connections), fmt.Sprint(r.Tick), r.Detail,
			})
		}
	case viewRogue:
		for _, r := range m.data.rogue {
			mvp := "-"
			if len(r.Podium) > 0 {
				mvp = r.Podium[0].DisplayName
			}
			rows = append(rows, table.Row{
				stamp(r.EndedAt), r.RoomID, r.Outcome, fmt.Sprint(r.Wave),
				clock(int64(r.ElapsedMs)), fmt.Sprint(r.PlayerCount), mvp,
			})
		}
	case viewPuzzle:
		for _, r := range m.data.puzzle {
			rows = append(rows, table.Row{
				stamp(r.EndedAt), r.InstanceID, r.ArchetypeID, fmt.Sprint(r.Tier), r.Outcome,
				fmt.Sprintf("%d/%d", r.SolvedCount, r.ModuleCount), clock(r.DurationMs), fmt.Sprint(r.PenaltyCount),
			})
		}
	default:
		for _, s := range m.data.outcomes {
			rows = append(rows, table.Row{
				s.Outcome, fmt.Sprint(s.Matches), clock(int64(s.AvgDurationMs)),
				fmt.Sprintf("%.1f", s.AvgPlayers), fmt.Sprintf("%.1f", s.AvgPenalties), stamp(s.LastEnded),
			})
		}
	}
	return rows
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02 15:04")
}

// clock formats milliseconds as m:ss.
func clock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func (m Model) createTable() table.Model {
	height := m.height - 9
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(m.columns()),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("160")).
		Bold(false)
	t.SetStyles(s)
	t.SetRows(m.rows())
	return t
}

func (m *Model) switchView(delta int) {
	m.current = view((int(m.current) + delta + int(viewCount)) % int(viewCount))
	m.table = m.createTable()
}

// Init loads the first snapshot and starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), refreshCmd())
}

// Update handles messages for the console.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.switchView(1)
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.switchView(-1)
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.loadCmd()
		}
	case snapshotMsg:
		m.data = snapshot(msg)
		cursor := m.table.Cursor()
		m.table.SetRows(m.rows())
		if n := len(m.table.Rows()); cursor >= n && n > 0 {
			m.table.SetCursor(n - 1)
		}
		return m, nil
	case refreshMsg:
		return m, tea.Batch(m.loadCmd(), refreshCmd())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table = m.createTable()
		return m, nil
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("160")).Padding(0, 1)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	header := "DEFUSE.EXE operator console"
	if m.operator != "" {
		header += " - " + m.operator
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	tabs := make([]string, viewCount)
	for i, t := range viewTitles {
		if view(i) == m.current {
			tabs[i] = activeTabStyle.Render(t)
		} else {
			tabs[i] = tabStyle.Render(t)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(boxStyle.Render(mutedStyle.Italic(true).Render(m.emptyText())))
	} else {
		b.WriteString(boxStyle.Render(m.table.View()))
	}
	b.WriteString("\n")

	status := "loading..."
	if !m.data.at.IsZero() {
		status = "updated " + m.data.at.Format("15:04:05")
	}
	b.WriteString(mutedStyle.Render(status))
	if m.data.err != nil {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(m.data.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) emptyText() string {
	switch m.current {
	case viewRooms:
		if len(m.source.Listers) == 0 {
			return "Live rooms are only shown by a running server."
		}
		return "No rooms open."
	case viewOutcomes:
		return "No puzzle matches recorded yet."
	default:
		return "No results recorded yet."
	}
}

// Run runs the console on the local terminal.
func Run(src Source, width, height int) error {
	_, err := tea.NewProgram(NewModel(src, "", width, height), tea.WithAltScreen()).Run()
	return err
}
