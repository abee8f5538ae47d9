package bomb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/defuse-exe/internal/rng"
)

// Capability is a player tag that unlocks abilities and private hints.
type Capability string

const (
	CapWireVision      Capability = "wire-vision"
	CapDialCalibration Capability = "dial-calibration"
	CapGlyphDecode     Capability = "glyph-decode"
	CapStabilizer      Capability = "stabilizer"
	CapScanner         Capability = "scanner"
	CapBuffer          Capability = "buffer"
	CapAnchor          Capability = "anchor"
	CapAuditor         Capability = "auditor"
)

// CapabilityOrder is the fixed round-robin order of capability assignment.
var CapabilityOrder = []Capability{
	CapWireVision,
	CapDialCalibration,
	CapGlyphDecode,
	CapStabilizer,
	CapScanner,
	CapBuffer,
	CapAnchor,
	CapAuditor,
}

var roleNames = []string{"Tech", "Analyst", "Operator", "Runner", "Stabilizer", "Scanner", "Anchor", "Auditor"}

var capabilityHints = map[Capability]string{
	CapWireVision:      "Wire labels are trustworthy this round.",
	CapDialCalibration: "Dial lock succeeds only inside safe range.",
	CapGlyphDecode:     "Repeated glyphs invert the remaining sequence.",
	CapStabilizer:      "Venting grants stability at the cost of time.",
	CapScanner:         "You can scan the casing for unsolved modules.",
	CapBuffer:          "A buffer pulse silences the comms drain for a few seconds.",
	CapAnchor:          "Anchoring the timer buys fifteen seconds, once.",
	CapAuditor:         "Audits reveal which modifiers are real.",
}

// PlayerRef identifies a player in join order.
type PlayerRef struct {
	UserID      string
	DisplayName string
}

// RoleBrief is the private briefing of one player.
type RoleBrief struct {
	UserID       string       `json:"userId"`
	RoleName     string       `json:"roleName"`
	Capabilities []Capability `json:"capabilities"`
	PrivateHints []string     `json:"privateHints"`
	Intel        []string     `json:"intel"`
}

// Has reports whether the brief grants c.
func (b RoleBrief) Has(c Capability) bool {
	for _, have := range b.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// AssignCapabilities distributes CapabilityOrder round-robin over players.
// Players left without a tag get one chosen by a hash of their id.
func AssignCapabilities(players []PlayerRef) map[string][]Capability {
	out := make(map[string][]Capability, len(players))
	for _, p := range players {
		out[p.UserID] = []Capability{}
	}
	if len(players) == 0 {
		return out
	}
	for i, c := range CapabilityOrder {
		p := players[i%len(players)]
		out[p.UserID] = append(out[p.UserID], c)
	}
	for _, p := range players {
		if len(out[p.UserID]) == 0 {
			idx := rng.HashString(p.UserID) % uint32(len(CapabilityOrder))
			out[p.UserID] = append(out[p.UserID], CapabilityOrder[idx])
		}
	}
	return out
}

// AssignRoles builds the brief of every player for spec.
func AssignRoles(players []PlayerRef, spec *Spec) map[string]RoleBrief {
	caps := AssignCapabilities(players)
	briefs := make(map[string]RoleBrief, len(players))
	for i, p := range players {
		owned := caps[p.UserID]
		brief := RoleBrief{
			UserID:       p.UserID,
			RoleName:     roleNames[i%len(roleNames)],
			Capabilities: owned,
			PrivateHints: []string{},
			Intel:        []string{},
		}
		for _, c := range owned {
			brief.PrivateHints = append(brief.PrivateHints, capabilityHints[c])
			brief.Intel = append(brief.Intel, intel(c, spec)...)
		}
		briefs[p.UserID] = brief
	}
	return briefs
}

// intel returns the secret facts a capability reveals about spec.
func intel(c Capability, spec *Spec) []string {
	var out []string
	for _, m := range spec.Modules {
		switch s := m.State.(type) {
		case *WiresState:
			if c == CapWireVision {
				labels := make([]string, len(s.SafeOrder))
				for i, idx := range s.SafeOrder {
					labels[i] = s.Wires[idx].Label
				}
				out = append(out, fmt.Sprintf("%s: cut %s", m.ID, strings.Join(labels, " > ")))
			}
		case *DialState:
			if c == CapDialCalibration {
				out = append(out, fmt.Sprintf("%s: lock between %s and %s", m.ID, dialSymbol(s, s.TargetMin), dialSymbol(s, s.TargetMax)))
			}
		case *GlyphState:
			if c == CapGlyphDecode {
				seq := make([]string, len(s.Sequence))
				for i, idx := range s.Sequence {
					seq[i] = fmt.Sprintf("%s(%d)", s.Glyphs[idx], idx+1)
				}
				out = append(out, fmt.Sprintf("%s: press %s", m.ID, strings.Join(seq, " ")))
			}
		case *ReactorState:
			if c == CapStabilizer {
				out = append(out, fmt.Sprintf("%s: safe heat %d-%d", m.ID, s.SafeMin, s.SafeMax))
			}
		case *SwitchesState:
			if c == CapScanner {
				out = append(out, fmt.Sprintf("%s: target %s", m.ID, bitString(s.Target, s.Count)))
			}
		case *MemoryState:
			if c == CapBuffer {
				seq := make([]string, len(s.Sequence))
				for i, pad := range s.Sequence {
					seq[i] = strconv.Itoa(pad + 1)
				}
				out = append(out, fmt.Sprintf("%s: pads %s", m.ID, strings.Join(seq, " ")))
			}
		case *ConduitState:
			if c == CapAnchor {
				routes := make([]string, len(s.Desired))
				for i, r := range s.Desired {
					routes[i] = r.From + ">" + r.To
				}
				out = append(out, fmt.Sprintf("%s: route %s", m.ID, strings.Join(routes, ", ")))
			}
		case *PowerState:
			if c == CapAuditor {
				out = append(out, fmt.Sprintf("%s: target polarity %s, vent below %d", m.ID, s.TargetPolarity, s.SafeVoltage+1))
			}
		}
	}
	if c == CapAuditor {
		ids := make([]string, 0, len(spec.Modifiers))
		for _, mod := range spec.Modifiers {
			ids = append(ids, mod.ID)
		}
		if len(ids) == 0 {
			out = append(out, "modifiers: none")
		} else {
			out = append(out, "modifiers: "+strings.Join(ids, ", "))
		}
	}
	return out
}

func dialSymbol(s *DialState, v int) string {
	if s.Alphabet == "A-F" {
		return strings.ToUpper(strconv.FormatInt(int64(v), 16))
	}
	return strconv.Itoa(v)
}

// bitString renders the low n bits of v, switch 1 first.
func bitString(v, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if v&(1<<i) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
