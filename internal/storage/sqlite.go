// Package storage provides SQLite-based persistence for finished games and
// client telemetry. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/defuse-exe/internal/httpapi"
	"github.com/vovakirdan/defuse-exe/internal/puzzle"
	"github.com/vovakirdan/defuse-exe/internal/roguelite"
)

const timeLayout = "2006-01-02 15:04:05"

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// RogueResult is one stored roguelite game.
type RogueResult struct {
	ID          int64
	RoomID      string
	Seed        string
	Outcome     string
	Wave        int
	ElapsedMs   int
	PlayerCount int
	SharedLevel int
	Players     []roguelite.PlayerResult
	Podium      []roguelite.PlayerResult
	EndedAt     time.Time
}

// PuzzleResult is one stored puzzle match.
type PuzzleResult struct {
	ID           int64
	InstanceID   string
	Seed         string
	ArchetypeID  string
	Tier         int
	PlayerCount  int
	ModuleCount  int
	SolvedCount  int
	Outcome      string
	Reason       string
	Tutorial     bool
	Stability    int
	DurationMs   int64
	PenaltyCount int
	EndedAt      time.Time
}

// OutcomeStats aggregates puzzle matches with the same outcome.
type OutcomeStats struct {
	Outcome       string
	Matches       int
	AvgDurationMs float64
	AvgPlayers    float64
	AvgPenalties  float64
	LastEnded     time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Saves arrive from several actor goroutines; one writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS rogue_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			seed TEXT NOT NULL,
			outcome TEXT NOT NULL,
			wave INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			player_count INTEGER NOT NULL DEFAULT 0,
			shared_level INTEGER NOT NULL DEFAULT 1,
			players TEXT NOT NULL DEFAULT '[]',
			podium TEXT NOT NULL DEFAULT '[]',
			ended_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_rogue_results_ended ON rogue_results(ended_at DESC);

		CREATE TABLE IF NOT EXISTS puzzle_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			seed TEXT NOT NULL,
			archetype_id TEXT NOT NULL,
			tier INTEGER NOT NULL,
			player_count INTEGER NOT NULL,
			module_count INTEGER NOT NULL,
			solved_count INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			tutorial INTEGER NOT NULL DEFAULT 0,
			stability INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			penalty_count INTEGER NOT NULL DEFAULT 0,
			ended_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_puzzle_results_ended ON puzzle_results(ended_at DESC);
		CREATE INDEX IF NOT EXISTS idx_puzzle_results_outcome ON puzzle_results(outcome);

		CREATE TABLE IF NOT EXISTS telemetry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT 'null',
			received_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_telemetry_instance ON telemetry(instance_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRogueResult implements roguelite.ResultSaver.
func (s *Store) SaveRogueResult(data roguelite.ResultData) error {
	players, err := json.Marshal(nonNil(data.Players))
	if err != nil {
		return fmt.Errorf("storage: cannot encode players: %w", err)
	}
	podium, err := json.Marshal(nonNil(data.Podium))
	if err != nil {
		return fmt.Errorf("storage: cannot encode podium: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO rogue_results
		 (room_id, seed, outcome, wave, elapsed_ms, player_count, shared_level, players, podium, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.RoomID,
		data.Seed,
		string(data.Outcome),
		data.Wave,
		data.ElapsedMs,
		data.PlayerCount,
		data.SharedLevel,
		string(players),
		string(podium),
		formatTime(data.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save rogue result: %w", err)
	}
	return nil
}

// SavePuzzleResult implements puzzle.ResultSaver.
func (s *Store) SavePuzzleResult(data puzzle.ResultData) error {
	_, err := s.db.Exec(
		`INSERT INTO puzzle_results
		 (instance_id, seed, archetype_id, tier, player_count, module_count, solved_count,
		  outcome, reason, tutorial, stability, duration_ms, penalty_count, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.InstanceID,
		data.Seed,
		data.ArchetypeID,
		data.Tier,
		data.PlayerCount,
		data.ModuleCount,
		data.SolvedCount,
		string(data.Outcome),
		data.Reason,
		data.Tutorial,
		data.Stability,
		data.DurationMs,
		data.PenaltyCount,
		formatTime(data.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save puzzle result: %w", err)
	}
	return nil
}

// SaveTelemetry implements httpapi.TelemetrySink.
func (s *Store) SaveTelemetry(ev httpapi.TelemetryEvent) error {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	_, err := s.db.Exec(
		`INSERT INTO telemetry (instance_id, user_id, event, payload, received_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.InstanceID, ev.UserID, ev.Event, string(payload), formatTime(ev.ReceivedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save telemetry: %w", err)
	}
	return nil
}

// Ensure Store implements every saver seam.
var (
	_ roguelite.ResultSaver = (*Store)(nil)
	_ puzzle.ResultSaver    = (*Store)(nil)
	_ httpapi.TelemetrySink = (*Store)(nil)
)

// RecentRogueResults retrieves the most recent roguelite games, newest first.
func (s *Store) RecentRogueResults(limit int) ([]RogueResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, room_id, seed, outcome, wave, elapsed_ms, player_count, shared_level,
		        players, podium, ended_at
		 FROM rogue_results
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query rogue results: %w", err)
	}
	defer rows.Close()

	var results []RogueResult
	for rows.Next() {
		var r RogueResult
		var players, podium string
		var endedAt any
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Seed, &r.Outcome, &r.Wave, &r.ElapsedMs,
			&r.PlayerCount, &r.SharedLevel, &players, &podium, &endedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
			return nil, fmt.Errorf("storage: cannot decode players of result %d: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(podium), &r.Podium); err != nil {
			return nil, fmt.Errorf("storage: cannot decode podium of result %d: %w", r.ID, err)
		}
		r.EndedAt = parseTime(endedAt)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// RecentPuzzleResults retrieves the most recent puzzle matches, newest first.
func (s *Store) RecentPuzzleResults(limit int) ([]PuzzleResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, instance_id, seed, archetype_id, tier, player_count, module_count, solved_count,
		        outcome, reason, tutorial, stability, duration_ms, penalty_count, ended_at
		 FROM puzzle_results
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query puzzle results: %w", err)
	}
	defer rows.Close()

	var results []PuzzleResult
	for rows.Next() {
		var r PuzzleResult
		var endedAt any
		if err := rows.Scan(&r.ID, &r.InstanceID, &r.Seed, &r.ArchetypeID, &r.Tier, &r.PlayerCount,
			&r.ModuleCount, &r.SolvedCount, &r.Outcome, &r.Reason, &r.Tutorial, &r.Stability,
			&r.DurationMs, &r.PenaltyCount, &endedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.EndedAt = parseTime(endedAt)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// PuzzleOutcomeStats aggregates stored puzzle matches by outcome.
func (s *Store) PuzzleOutcomeStats() (map[string]*OutcomeStats, error) {
	rows, err := s.db.Query(
		`SELECT outcome, COUNT(*), AVG(duration_ms), AVG(player_count), AVG(penalty_count), MAX(ended_at)
		 FROM puzzle_results
		 GROUP BY outcome`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get outcome stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*OutcomeStats)
	for rows.Next() {
		var st OutcomeStats
		var lastEnded any
		if err := rows.Scan(&st.Outcome, &st.Matches, &st.AvgDurationMs, &st.AvgPlayers, &st.AvgPenalties, &lastEnded); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		st.LastEnded = parseTime(lastEnded)
		stats[st.Outcome] = &st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return stats, nil
}

// TelemetryCount returns the number of stored telemetry events for an instance.
func (s *Store) TelemetryCount(instanceID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM telemetry WHERE instance_id = ?", instanceID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: cannot count telemetry: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(timeLayout, v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
