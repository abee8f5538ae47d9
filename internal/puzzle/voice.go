package puzzle

import (
	"math"
	"sort"
)

// SpeakStart records that userID started speaking at (unix ms).
func (m *Match) SpeakStart(userID string, at int64) error {
	if _, ok := m.players[userID]; !ok {
		return ErrNotJoined
	}
	if _, already := m.Voice.Speaking[userID]; already {
		return nil
	}
	m.Voice.Speaking[userID] = at
	if m.Phase == PhaseActive && m.Voice.TalkMode == TalkTokenizedBurst && m.drainEnabled(at) {
		m.Resources.CommsSeconds = math.Max(0, m.Resources.CommsSeconds-1)
	}
	return nil
}

// SpeakEnd records that userID stopped speaking.
func (m *Match) SpeakEnd(userID string, at int64) error {
	if _, ok := m.players[userID]; !ok {
		return ErrNotJoined
	}
	delete(m.Voice.Speaking, userID)
	return nil
}

// Speakers returns the ids of users speaking past the grace period, sorted.
func (m *Match) Speakers(now int64) []string {
	grace := int64(m.cat.Balance.GraceSeconds * 1000)
	out := make([]string, 0, len(m.Voice.Speaking))
	for id, start := range m.Voice.Speaking {
		if now-start >= grace {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Match) drainEnabled(now int64) bool {
	if m.Tutorial || m.commsBudget <= 0 {
		return false
	}
	return m.Voice.NoiseGateUntil <= now
}

// silenceWindow reports whether a silence window is open at now and returns
// its index and end time. The last five seconds of every thirty are silent.
func (m *Match) silenceWindow(now int64) (bool, int64, int64) {
	elapsed := now - m.startedAt
	if elapsed < 0 {
		return false, 0, 0
	}
	idx := elapsed / silencePeriodMs
	offset := elapsed % silencePeriodMs
	if offset < silencePeriodMs-silenceWindowMs {
		return false, idx, 0
	}
	return true, idx, m.startedAt + (idx+1)*silencePeriodMs
}

func (m *Match) drainComms(dt float64, now int64) {
	speakers := m.Speakers(now)
	n := len(speakers)
	b := m.cat.Balance

	if m.Voice.TalkMode == TalkSilenceWindows {
		open, idx, until := m.silenceWindow(now)
		if open {
			m.Voice.SilenceUntil = until
		} else {
			m.Voice.SilenceUntil = 0
		}
		if open && n > 0 && m.Voice.silencePenalized != idx && !m.Tutorial {
			m.Voice.silencePenalized = idx
			m.Penalty(speakers[0], 1, "spoke during a silence window", now)
			if m.Phase != PhaseActive {
				return
			}
		}
	}

	if m.Voice.TalkMode == TalkOneSpeaker && !m.Tutorial {
		if n > 1 && m.Voice.OverlapArmed {
			m.Voice.OverlapArmed = false
			m.Penalty(speakers[1], 2, "overlapping speakers", now)
			if m.Phase != PhaseActive {
				return
			}
		} else if n <= 1 {
			m.Voice.OverlapArmed = true
		}
	}

	if !m.drainEnabled(now) {
		return
	}

	if n > 0 {
		drain := b.DrainPerSecond * dt
		if n > 1 {
			drain *= b.OverlapMultiplier
		}
		if m.Voice.TalkMode == TalkTokenizedBurst {
			drain *= 0.5
		}
		m.Resources.CommsSeconds = math.Max(0, m.Resources.CommsSeconds-drain)
	}

	if m.Resources.CommsSeconds > 0 {
		return
	}
	if b.LockoutOnZero {
		m.finish(OutcomeExploded, "comms exhausted", now)
		return
	}
	if now-m.Voice.lastZeroPenalty >= zeroCommsPenaltyMs {
		m.Voice.lastZeroPenalty = now
		m.Penalty("", 1, "comms exhausted", now)
	}
}
