package puzzle

import "time"

//go:generate go tool mockgen -destination=mock_saver_test.go -package=puzzle . ResultSaver

// ResultData is the persisted record of a finished match.
type ResultData struct {
	InstanceID   string
	Seed         string
	ArchetypeID  string
	Tier         int
	PlayerCount  int
	ModuleCount  int
	SolvedCount  int
	Outcome      Outcome
	Reason       string
	Tutorial     bool
	Stability    int
	DurationMs   int64
	PenaltyCount int
	EndedAt      time.Time
}

// ResultSaver persists finished matches.
type ResultSaver interface {
	SavePuzzleResult(data ResultData) error
}

// resultData builds the record of a finished match, or reports false if the
// match has no result.
func (m *Match) resultData() (ResultData, bool) {
	if m.Result == nil || m.Bomb == nil {
		return ResultData{}, false
	}
	solved := 0
	for _, mod := range m.Bomb.Modules {
		if mod.Solved {
			solved++
		}
	}
	penalties := 0
	for _, p := range m.players {
		penalties += p.Penalties
	}
	return ResultData{
		InstanceID:   m.InstanceID,
		Seed:         m.Seed,
		ArchetypeID:  m.Bomb.ArchetypeID,
		Tier:         m.Bomb.DifficultyTier,
		PlayerCount:  len(m.players),
		ModuleCount:  len(m.Bomb.Modules),
		SolvedCount:  solved,
		Outcome:      m.Result.Outcome,
		Reason:       m.Result.Reason,
		Tutorial:     m.Tutorial,
		Stability:    m.Resources.Stability,
		DurationMs:   m.Elapsed(m.Result.EndedAt),
		PenaltyCount: penalties,
		EndedAt:      time.UnixMilli(m.Result.EndedAt).UTC(),
	}, true
}
