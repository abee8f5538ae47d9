package console

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
	"github.com/vovakirdan/defuse-exe/internal/roguelite"
	"github.com/vovakirdan/defuse-exe/internal/storage"
)

type fakeLister []multiplayer.RoomStatus

func (f fakeLister) Statuses() []multiplayer.RoomStatus { return f }

type fakeStore struct {
	err error
}

func (f fakeStore) RecentRogueResults(int) ([]storage.RogueResult, error) {
	return []storage.RogueResult{{
		RoomID: "arena", Outcome: "victory", Wave: 9, ElapsedMs: 125000, PlayerCount: 2,
		Podium:  []roguelite.PlayerResult{{DisplayName: "Ann"}},
		EndedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}, nil
}

func (f fakeStore) RecentPuzzleResults(int) ([]storage.PuzzleResult, error) {
	return []storage.PuzzleResult{
		{InstanceID: "i-1", ArchetypeID: "classic", Tier: 2, Outcome: "defused", SolvedCount: 4, ModuleCount: 4, DurationMs: 61000},
		{InstanceID: "i-2", ArchetypeID: "vault", Tier: 3, Outcome: "exploded", SolvedCount: 1, ModuleCount: 5, PenaltyCount: 3},
	}, f.err
}

func (f fakeStore) PuzzleOutcomeStats() (map[string]*storage.OutcomeStats, error) {
	return map[string]*storage.OutcomeStats{
		"exploded": {Outcome: "exploded", Matches: 1},
		"defused":  {Outcome: "defused", Matches: 1, AvgDurationMs: 61000},
	}, nil
}

func loaded(t *testing.T, src Source) Model {
	t.Helper()
	m := NewModel(src, "op", 120, 40)
	next, _ := m.Update(snapshotMsg(src.load()))
	return next.(Model)
}

func press(m Model, k tea.KeyType) Model {
	next, _ := m.Update(tea.KeyMsg{Type: k})
	return next.(Model)
}

func TestSourceLoad(t *testing.T) {
	src := Source{
		Store: fakeStore{},
		Listers: []Lister{
			fakeLister{{ID: "arena", Mode: multiplayer.ModeRogue}},
			nil,
			fakeLister{{ID: "i-1", Mode: multiplayer.ModePuzzle}, {ID: "i-2", Mode: multiplayer.ModePuzzle}},
		},
	}
	snap := src.load()
	if len(snap.rooms) != 3 || snap.rooms[1].ID != "i-1" {
		t.Errorf("unexpected rooms %+v", snap.rooms)
	}
	if len(snap.rogue) != 1 || len(snap.puzzle) != 2 {
		t.Errorf("expected 1 rogue and 2 puzzle results, got %d/%d", len(snap.rogue), len(snap.puzzle))
	}
	if len(snap.outcomes) != 2 || snap.outcomes[0].Outcome != "defused" {
		t.Errorf("expected outcomes sorted by name, got %+v", snap.outcomes)
	}
	if snap.err != nil {
		t.Errorf("unexpected error %v", snap.err)
	}

	bad := Source{Store: fakeStore{err: errors.New("locked")}}
	if snap := bad.load(); snap.err == nil {
		t.Error("expected store error to be reported")
	}
}

func TestViewCycling(t *testing.T) {
	m := loaded(t, Source{Store: fakeStore{}, Listers: []Lister{fakeLister{{ID: "arena", Phase: "running"}}}})

	tests := []struct {
		want view
		rows int
		cell string
	}{
		{viewRogue, 1, "Ann"},
		{viewPuzzle, 2, "4/4"},
		{viewOutcomes, 2, "1:01"},
		{viewRooms, 1, "running"},
	}
	for _, tt := range tests {
		m = press(m, tea.KeyTab)
		if m.current != tt.want {
			t.Fatalf("expected view %d, got %d", tt.want, m.current)
		}
		rows := m.table.Rows()
		if len(rows) != tt.rows {
			t.Fatalf("view %d: expected %d rows, got %d", tt.want, tt.rows, len(rows))
		}
		if !strings.Contains(strings.Join(rows[0], "|"), tt.cell) {
			t.Errorf("view %d: expected %q in %v", tt.want, tt.cell, rows[0])
		}
	}

	m = press(m, tea.KeyShiftTab)
	if m.current != viewOutcomes {
		t.Errorf("expected shift+tab to go back to outcomes, got %d", m.current)
	}
}

func TestViewRendering(t *testing.T) {
	m := loaded(t, Source{})
	out := m.View()
	if !strings.Contains(out, "operator console - op") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "only shown by a running server") {
		t.Errorf("expected offline hint, got %q", out)
	}

	m = loaded(t, Source{Store: fakeStore{err: errors.New("locked")}})
	if !strings.Contains(m.View(), "locked") {
		t.Error("expected error in status line")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if next.(Model).View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestWindowResize(t *testing.T) {
	m := loaded(t, Source{Store: fakeStore{}})
	m = press(m, tea.KeyTab)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 10})
	m = next.(Model)
	if m.width != 60 || len(m.table.Rows()) != 1 {
		t.Errorf("resize lost state: width %d rows %d", m.width, len(m.table.Rows()))
	}
}

func TestClock(t *testing.T) {
	tests := map[int64]string{0: "0:00", -5: "0:00", 61000: "1:01", 600999: "10:00"}
	for ms, want := range tests {
		if got := clock(ms); got != want {
			t.Errorf("clock(%d) = %s, want %s", ms, got, want)
		}
	}
}

func TestNewSSHServer(t *testing.T) {
	srv, err := NewSSHServer(SSHConfig{
		Address:     "127.0.0.1:0",
		HostKeyPath: filepath.Join(t.TempDir(), "keys", "host_key"),
		Password:    "pw",
		Logger:      log.New(io.Discard),
	}, Source{})
	if err != nil {
		t.Fatalf("NewSSHServer failed: %v", err)
	}
	if srv.Addr() != "127.0.0.1:0" {
		t.Errorf("unexpected address %s", srv.Addr())
	}
}
