package roguelite

import (
	"slices"
	"time"
)

//go:generate go tool mockgen -destination=mock_saver_test.go -package=roguelite . ResultSaver

// ResultData is the persisted record of a finished game.
type ResultData struct {
	RoomID      string
	Seed        string
	Outcome     Outcome
	Wave        int
	ElapsedMs   int
	PlayerCount int
	SharedLevel int
	Players     []PlayerResult
	Podium      []PlayerResult
	EndedAt     time.Time
}

// ResultSaver persists finished games.
type ResultSaver interface {
	SaveRogueResult(data ResultData) error
}

// podium returns the top n players by damage dealt. Ties keep roster order.
func podium(players []PlayerResult, n int) []PlayerResult {
	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b PlayerResult) int {
		return b.DamageDealt - a.DamageDealt
	})
	return sorted[:min(n, len(sorted))]
}

// resultData builds the record of a finished game, or reports false if the
// game has not ended.
func (g *Game) resultData(roomID string, endedAt time.Time) (ResultData, bool) {
	if g.result == nil {
		return ResultData{}, false
	}
	return ResultData{
		RoomID:      roomID,
		Seed:        g.seed,
		Outcome:     g.result.Outcome,
		Wave:        g.result.Wave,
		ElapsedMs:   g.result.TimeElapsedMs,
		PlayerCount: len(g.state.Players),
		SharedLevel: g.state.SharedLevel,
		Players:     g.result.Players,
		Podium:      g.result.Podium,
		EndedAt:     endedAt.UTC(),
	}, true
}
