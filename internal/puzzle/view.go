package puzzle

import (
	"sort"

	"github.com/vovakirdan/defuse-exe/internal/bomb"
)

// StateView is the public match state broadcast to every connection.
type StateView struct {
	InstanceID string       `json:"instanceId"`
	Phase      Phase        `json:"phase"`
	Tutorial   bool         `json:"tutorial"`
	HostID     string       `json:"hostUserId"`
	Players    []PlayerView `json:"players"`
	Resources  Resources    `json:"resources"`
	Voice      VoiceView    `json:"voice"`
	Bomb       *BombView    `json:"bomb,omitempty"`
	Log        []LogEntry   `json:"eventLog"`
	Result     *Result      `json:"result,omitempty"`
}

// PlayerView is the public projection of a player.
type PlayerView struct {
	UserID         string   `json:"userId"`
	DisplayName    string   `json:"displayName"`
	Presence       string   `json:"presence"`
	RoleName       string   `json:"roleName,omitempty"`
	Capabilities   []string `json:"capabilities"`
	Actions        int      `json:"actions"`
	Penalties      int      `json:"penalties"`
	SupportActions int      `json:"supportActions"`
	Speaking       bool     `json:"speaking"`
}

// VoiceView is the public voice state.
type VoiceView struct {
	TalkMode       string   `json:"talkMode"`
	Speaking       []string `json:"speaking"`
	OverlapArmed   bool     `json:"overlapPenaltyArmed"`
	SilenceUntil   int64    `json:"silenceWindowUntil,omitempty"`
	NoiseGateUntil int64    `json:"noiseGateUntil,omitempty"`
}

// BombView is the bomb with module solutions removed.
type BombView struct {
	ArchetypeID    string          `json:"archetypeId"`
	DifficultyTier int             `json:"difficultyTier"`
	PlayerCount    int             `json:"playerCount"`
	Modules        []bomb.View     `json:"modules"`
	Graph          []bomb.Edge     `json:"graph"`
	RuleStack      []bomb.Rule     `json:"ruleStack"`
	Modifiers      []bomb.Modifier `json:"modifiers"`
}

// PrivateBrief is sent only to its owner.
type PrivateBrief struct {
	bomb.RoleBrief
	Unsolved []string `json:"unsolvedModules,omitempty"`
}

// View returns the public state.
func (m *Match) View() StateView {
	speaking := make([]string, 0, len(m.Voice.Speaking))
	for id := range m.Voice.Speaking {
		speaking = append(speaking, id)
	}
	sort.Strings(speaking)

	v := StateView{
		InstanceID: m.InstanceID,
		Phase:      m.Phase,
		Tutorial:   m.Tutorial,
		HostID:     m.HostID,
		Players:    make([]PlayerView, 0, len(m.players)),
		Resources:  m.Resources,
		Voice: VoiceView{
			TalkMode:       m.Voice.TalkMode,
			Speaking:       speaking,
			OverlapArmed:   m.Voice.OverlapArmed,
			SilenceUntil:   m.Voice.SilenceUntil,
			NoiseGateUntil: m.Voice.NoiseGateUntil,
		},
		Log:    append([]LogEntry(nil), m.Log...),
		Result: m.Result,
	}
	for _, p := range m.ordered() {
		_, talking := m.Voice.Speaking[p.UserID]
		v.Players = append(v.Players, PlayerView{
			UserID:         p.UserID,
			DisplayName:    p.DisplayName,
			Presence:       p.Presence,
			RoleName:       p.RoleName,
			Capabilities:   p.Capabilities,
			Actions:        p.Actions,
			Penalties:      p.Penalties,
			SupportActions: p.SupportCount,
			Speaking:       talking,
		})
	}
	if m.Bomb != nil {
		bv := &BombView{
			ArchetypeID:    m.Bomb.ArchetypeID,
			DifficultyTier: m.Bomb.DifficultyTier,
			PlayerCount:    m.Bomb.PlayerCount,
			Modules:        make([]bomb.View, len(m.Bomb.Modules)),
			Graph:          m.Bomb.Graph,
			RuleStack:      m.Bomb.RuleStack,
			Modifiers:      m.Bomb.Modifiers,
		}
		for i, mod := range m.Bomb.Modules {
			bv.Modules[i] = mod.View()
		}
		v.Bomb = bv
	}
	return v
}

// Brief returns the private brief of userID, or nil outside a match.
func (m *Match) Brief(userID string) *PrivateBrief {
	p, ok := m.players[userID]
	if !ok || p.brief == nil {
		return nil
	}
	return &PrivateBrief{RoleBrief: *p.brief}
}

func sortPlayers(ps []*Player) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].JoinOrder < ps[j].JoinOrder
	})
}
