package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/defuse-exe/internal/httpapi"
	"github.com/vovakirdan/defuse-exe/internal/puzzle"
	"github.com/vovakirdan/defuse-exe/internal/roguelite"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Reopening runs the migrations again.
	store.Close()
	again, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	again.Close()
}

func TestStoreRogueResults(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	players := []roguelite.PlayerResult{
		{ID: "p-1", DisplayName: "Ann", DamageDealt: 900, WeaponIDs: []string{"plasma_pistol"}, TokenIDs: []string{}, Survived: true},
		{ID: "p-2", DisplayName: "Bo", DamageDealt: 300, WeaponIDs: []string{"energy_blade"}, TokenIDs: []string{}},
	}
	for i, outcome := range []roguelite.Outcome{roguelite.OutcomeDefeat, roguelite.OutcomeVictory, roguelite.OutcomeDefeat} {
		err := store.SaveRogueResult(roguelite.ResultData{
			RoomID:      "default",
			Seed:        "seed",
			Outcome:     outcome,
			Wave:        i + 1,
			ElapsedMs:   60000 * (i + 1),
			PlayerCount: 2,
			SharedLevel: 3,
			Players:     players,
			Podium:      players[:1],
			EndedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveRogueResult() failed: %v", err)
		}
	}

	results, err := store.RecentRogueResults(2)
	if err != nil {
		t.Fatalf("RecentRogueResults() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results with limit, got %d", len(results))
	}
	if results[0].Wave != 3 || results[1].Wave != 2 {
		t.Errorf("Results not newest first: waves %d, %d", results[0].Wave, results[1].Wave)
	}
	if results[1].Outcome != string(roguelite.OutcomeVictory) {
		t.Errorf("Expected victory, got %s", results[1].Outcome)
	}
	if len(results[0].Players) != 2 || results[0].Players[0].DamageDealt != 900 || results[0].Podium[0].ID != "p-1" {
		t.Errorf("Players did not round-trip: %+v", results[0].Players)
	}
	if !results[0].EndedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("EndedAt = %v", results[0].EndedAt)
	}
}

func TestStorePuzzleResultsAndStats(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	saves := []struct {
		outcome   puzzle.Outcome
		duration  int64
		penalties int
		tutorial  bool
	}{
		{puzzle.OutcomeDefused, 100000, 2, false},
		{puzzle.OutcomeDefused, 200000, 4, true},
		{puzzle.OutcomeExploded, 50000, 9, false},
	}
	for i, s := range saves {
		err := store.SavePuzzleResult(puzzle.ResultData{
			InstanceID:   "inst",
			Seed:         "inst-1",
			ArchetypeID:  "classic",
			Tier:         1,
			PlayerCount:  2,
			ModuleCount:  4,
			SolvedCount:  4,
			Outcome:      s.outcome,
			Reason:       "test",
			Tutorial:     s.tutorial,
			DurationMs:   s.duration,
			PenaltyCount: s.penalties,
			EndedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SavePuzzleResult() failed: %v", err)
		}
	}

	recent, err := store.RecentPuzzleResults(10)
	if err != nil {
		t.Fatalf("RecentPuzzleResults() failed: %v", err)
	}
	if len(recent) != 3 || recent[0].Outcome != string(puzzle.OutcomeExploded) {
		t.Fatalf("Unexpected recent results: %+v", recent)
	}
	if !recent[1].Tutorial || recent[2].Tutorial {
		t.Errorf("Tutorial flags did not round-trip")
	}

	stats, err := store.PuzzleOutcomeStats()
	if err != nil {
		t.Fatalf("PuzzleOutcomeStats() failed: %v", err)
	}
	defused := stats[string(puzzle.OutcomeDefused)]
	if defused == nil || defused.Matches != 2 || defused.AvgDurationMs != 150000 || defused.AvgPenalties != 3 {
		t.Errorf("Unexpected defused stats: %+v", defused)
	}
	if exploded := stats[string(puzzle.OutcomeExploded)]; exploded == nil || exploded.Matches != 1 {
		t.Errorf("Unexpected exploded stats: %+v", exploded)
	}
	if _, ok := stats[string(puzzle.OutcomeTimeout)]; ok {
		t.Error("No timeout matches were saved")
	}
}

func TestStoreTelemetry(t *testing.T) {
	store := openTestStore(t)
	events := []httpapi.TelemetryEvent{
		{InstanceID: "inst", UserID: "a", Event: "module_opened", Payload: json.RawMessage(`{"moduleId":"m-1"}`)},
		{InstanceID: "inst", Event: "idle"},
		{InstanceID: "other", Event: "idle"},
	}
	for _, ev := range events {
		if err := store.SaveTelemetry(ev); err != nil {
			t.Fatalf("SaveTelemetry() failed: %v", err)
		}
	}
	n, err := store.TelemetryCount("inst")
	if err != nil {
		t.Fatalf("TelemetryCount() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 telemetry events, got %d", n)
	}
}
