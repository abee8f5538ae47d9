// Package multiplayer provides the transport-neutral building blocks shared by
// both game servers: sessions with non-blocking sends, frame codecs, the
// single-actor room loop, and a registry of live rooms.
package multiplayer

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// SessionID uniquely identifies one client connection.
type SessionID string

// RoomMode tells the two simulations apart in status reports.
type RoomMode int

const (
	// ModeRogue is a roguelite room.
	ModeRogue RoomMode = iota

	// ModePuzzle is a puzzle-mode instance.
	ModePuzzle
)

// String returns a human-readable name for the room mode.
func (m RoomMode) String() string {
	switch m {
	case ModeRogue:
		return "rogue"
	case ModePuzzle:
		return "puzzle"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name.
func (m RoomMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name written by MarshalText.
func (m *RoomMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "rogue":
		*m = ModeRogue
	case "puzzle":
		*m = ModePuzzle
	default:
		return fmt.Errorf("unknown room mode %q", b)
	}
	return nil
}

// RoomStatus is a point-in-time summary of a room for operators.
type RoomStatus struct {
	ID          string    `json:"id"`
	Mode        RoomMode  `json:"mode"`
	Phase       string    `json:"phase"`
	Players     int       `json:"players"`
	Connections int       `json:"connections"`
	Tick        uint64    `json:"tick"`
	Detail      string    `json:"detail,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusCell publishes a room's latest status to readers outside the actor.
type StatusCell struct {
	p atomic.Pointer[RoomStatus]
}

// Store publishes s. Called from the owning actor only.
func (c *StatusCell) Store(s RoomStatus) {
	c.p.Store(&s)
}

// Load returns the last published status.
func (c *StatusCell) Load() RoomStatus {
	if s := c.p.Load(); s != nil {
		return *s
	}
	return RoomStatus{}
}

// IDSource hands out monotonic numeric ids.
type IDSource struct {
	prefix string
	n      atomic.Uint64
}

// NewIDSource creates an id source whose ids start with prefix.
func NewIDSource(prefix string) *IDSource {
	return &IDSource{prefix: prefix}
}

// Next returns the next id, e.g. "s-1".
func (s *IDSource) Next() SessionID {
	return SessionID(s.prefix + strconv.FormatUint(s.n.Add(1), 10))
}
