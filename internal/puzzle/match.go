// Package puzzle implements the cooperative bomb-defusal match: the state
// machine, the per-module rules, the comms drain model and the instance actor
// that serves it to connected players.
package puzzle

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/vovakirdan/defuse-exe/internal/bomb"
	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/core"
)

// Phase is the match lifecycle state.
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhaseActive  Phase = "active"
	PhaseResults Phase = "results"
)

// Outcome is the terminal result of a match.
type Outcome string

const (
	OutcomeDefused  Outcome = "defused"
	OutcomeExploded Outcome = "exploded"
	OutcomeTimeout  Outcome = "timeout"
)

// Talk modes.
const (
	TalkSharedPool     = "shared_pool"
	TalkOneSpeaker     = "one_speaker_rule"
	TalkSilenceWindows = "silence_windows"
	TalkTokenizedBurst = "tokenized_burst"
)

// Errors returned for rejected requests. Game-rule violations are
// penalties, not errors.
var (
	ErrNotHost        = errors.New("only the host can do that")
	ErrWrongPhase     = errors.New("not allowed in the current phase")
	ErrNotJoined      = errors.New("join an instance first")
	ErrFull           = errors.New("instance is full")
	ErrNoPlayers      = errors.New("no players in the instance")
	ErrModuleLocked   = errors.New("module is locked")
	ErrModuleSolved   = errors.New("module is already solved")
	ErrUnknownAction  = errors.New("unknown action type")
	ErrUnknownAbility = errors.New("unknown ability")
)

const (
	maxLogEntries       = 30
	defaultTimerSeconds = 360
	defaultTalkBudget   = 90
	anchorBonusMs       = 15000
	ventTimerCostMs     = 10000
	ventVoltageDrop     = 15
	noiseGateMs         = 10000
	zeroCommsPenaltyMs  = 5000
	silencePeriodMs     = 30000
	silenceWindowMs     = 5000
)

// Player is one participant of an instance.
type Player struct {
	UserID        string   `json:"userId"`
	DisplayName   string   `json:"displayName"`
	Presence      string   `json:"presence"`
	JoinOrder     int      `json:"-"`
	RoleName      string   `json:"roleName,omitempty"`
	Capabilities  []string `json:"capabilities"`
	Actions       int      `json:"actions"`
	Penalties     int      `json:"penalties"`
	SupportCount  int      `json:"supportActions"`
	AnchorUsed    bool     `json:"-"`
	brief         *bomb.RoleBrief
	connected     bool
}

// Resources is the shared pool the team spends.
type Resources struct {
	TimerMs      int64   `json:"timerMsRemaining"`
	CommsSeconds float64 `json:"commsSecondsRemaining"`
	Stability    int     `json:"stability"`
}

// Voice is the talk-mode bookkeeping.
type Voice struct {
	TalkMode       string           `json:"talkMode"`
	Speaking       map[string]int64 `json:"-"` // user id -> speak start (unix ms)
	OverlapArmed   bool             `json:"overlapPenaltyArmed"`
	SilenceUntil   int64            `json:"silenceWindowUntil,omitempty"`
	NoiseGateUntil int64            `json:"noiseGateUntil,omitempty"`

	silencePenalized int64 // index of the window already penalized, -1 for none
	lastZeroPenalty  int64
}

// LogEntry is one line of the rolling event log.
type LogEntry struct {
	At      int64  `json:"at"`
	Kind    string `json:"kind"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message"`
}

// Result is the terminal record of a match.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	EndedAt int64   `json:"endedAt"`
}

// Options tunes a match.
type Options struct {
	MaxPlayers   int
	LockDuration int64  // ms
	FixedSeed    string // overrides the generated seed when set
}

// Match is the puzzle-mode state machine of one instance. It is not safe for
// concurrent use; the Instance actor owns it.
type Match struct {
	InstanceID string
	Phase      Phase
	Tutorial   bool
	Seed       string
	HostID     string
	Resources  Resources
	Voice      Voice
	Bomb       *bomb.Spec
	Log        []LogEntry
	Result     *Result

	cat          *config.Catalog
	opts         Options
	players      map[string]*Player
	joinCounter  int
	matchCounter int
	startedAt    int64
	lastTick     int64
	commsBudget  float64
}

// NewMatch creates an empty lobby.
func NewMatch(instanceID string, cat *config.Catalog, opts Options) *Match {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 10
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = 2000
	}
	return &Match{
		InstanceID: instanceID,
		Phase:      PhaseLobby,
		Voice:      Voice{TalkMode: TalkSharedPool, Speaking: map[string]int64{}, OverlapArmed: true, silencePenalized: -1},
		Log:        []LogEntry{},
		cat:        cat,
		opts:       opts,
		players:    make(map[string]*Player),
	}
}

// SetCatalog swaps the catalog used for the next match.
func (m *Match) SetCatalog(cat *config.Catalog) {
	m.cat = cat
}

// Player returns the player with userID, or nil.
func (m *Match) Player(userID string) *Player {
	return m.players[userID]
}

// PlayerCount returns the number of players in the instance.
func (m *Match) PlayerCount() int {
	return len(m.players)
}

// Join adds a player, or reconnects an existing one. New players may only
// join in the lobby.
func (m *Match) Join(userID, displayName string, now int64) error {
	if p, ok := m.players[userID]; ok {
		p.connected = true
		p.Presence = "online"
		if displayName != "" {
			p.DisplayName = displayName
		}
		return nil
	}
	if m.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(m.players) >= m.opts.MaxPlayers {
		return ErrFull
	}
	if displayName == "" {
		displayName = userID
	}
	m.joinCounter++
	m.players[userID] = &Player{
		UserID:       userID,
		DisplayName:  displayName,
		Presence:     "online",
		JoinOrder:    m.joinCounter,
		Capabilities: []string{},
		connected:    true,
	}
	if m.HostID == "" {
		m.HostID = userID
	}
	m.addLog(now, "join", userID, displayName+" joined")
	return nil
}

// Leave handles a disconnect. In the lobby the player is removed and the host
// role handed to the earliest remaining player; otherwise the player stays
// on the roster as offline.
func (m *Match) Leave(userID string, now int64) {
	p, ok := m.players[userID]
	if !ok {
		return
	}
	delete(m.Voice.Speaking, userID)
	if m.Phase != PhaseLobby {
		p.connected = false
		p.Presence = "offline"
		m.addLog(now, "leave", userID, p.DisplayName+" disconnected")
		return
	}
	delete(m.players, userID)
	m.addLog(now, "leave", userID, p.DisplayName+" left")
	if m.HostID == userID {
		m.HostID = ""
		for _, other := range m.ordered() {
			m.HostID = other.UserID
			break
		}
	}
}

// SetPresence records a presence status.
func (m *Match) SetPresence(userID, status string) error {
	p, ok := m.players[userID]
	if !ok {
		return ErrNotJoined
	}
	switch status {
	case "online", "away", "busy":
		p.Presence = status
	default:
		return fmt.Errorf("unknown presence status %q", status)
	}
	return nil
}

// StartMatch generates a bomb and enters the active phase.
func (m *Match) StartMatch(userID string, now int64) error {
	if err := m.checkStart(userID); err != nil {
		return err
	}
	m.matchCounter++
	seed := m.opts.FixedSeed
	if seed == "" {
		seed = fmt.Sprintf("%s-%d-%d", m.InstanceID, m.matchCounter, now)
	}
	return m.begin(seed, TierForPlayers(len(m.players)), false, now)
}

// StartTutorial starts a fixed-seed match at the given level.
func (m *Match) StartTutorial(userID string, level int, now int64) error {
	if err := m.checkStart(userID); err != nil {
		return err
	}
	level = core.Clamp(level, 1, 3)
	m.matchCounter++
	return m.begin("tutorial-"+strconv.Itoa(level), level, true, now)
}

func (m *Match) checkStart(userID string) error {
	if _, ok := m.players[userID]; !ok {
		return ErrNotJoined
	}
	if userID != m.HostID {
		return ErrNotHost
	}
	if m.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(m.players) == 0 {
		return ErrNoPlayers
	}
	return nil
}

func (m *Match) begin(seed string, tier int, tutorial bool, now int64) error {
	ordered := m.ordered()
	spec, err := bomb.Generate(seed, len(ordered), tier, m.cat)
	if err != nil {
		return err
	}

	refs := make([]bomb.PlayerRef, len(ordered))
	for i, p := range ordered {
		refs[i] = bomb.PlayerRef{UserID: p.UserID, DisplayName: p.DisplayName}
	}
	briefs := bomb.AssignRoles(refs, spec)
	for _, p := range ordered {
		b := briefs[p.UserID]
		p.brief = &b
		p.RoleName = b.RoleName
		p.Capabilities = make([]string, len(b.Capabilities))
		for i, c := range b.Capabilities {
			p.Capabilities[i] = string(c)
		}
		p.Actions, p.Penalties, p.SupportCount, p.AnchorUsed = 0, 0, 0, false
	}

	m.Seed = seed
	m.Tutorial = tutorial
	m.Bomb = spec
	m.Resources = InitialResources(len(ordered), tier, m.cat.Balance)
	m.commsBudget = m.Resources.CommsSeconds
	m.Voice = Voice{
		TalkMode:         bomb.ChooseTalkMode(m.cat, spec),
		Speaking:         map[string]int64{},
		OverlapArmed:     true,
		silencePenalized: -1,
	}
	m.Result = nil
	m.Log = []LogEntry{}
	m.startedAt = now
	m.lastTick = now
	m.Phase = PhaseActive

	kind := "match"
	if tutorial {
		kind = "tutorial"
	}
	m.addLog(now, kind, m.HostID, fmt.Sprintf("bomb armed: %d modules, archetype %s, talk mode %s", len(spec.Modules), spec.ArchetypeID, m.Voice.TalkMode))
	return nil
}

// PlayAgain returns a finished match to the lobby.
func (m *Match) PlayAgain(userID string, now int64) error {
	if _, ok := m.players[userID]; !ok {
		return ErrNotJoined
	}
	if m.Phase != PhaseResults {
		return ErrWrongPhase
	}
	for id, p := range m.players {
		if !p.connected {
			delete(m.players, id)
			continue
		}
		p.brief = nil
		p.RoleName = ""
		p.Capabilities = []string{}
		p.Actions, p.Penalties, p.SupportCount, p.AnchorUsed = 0, 0, 0, false
	}
	if _, ok := m.players[m.HostID]; !ok {
		m.HostID = ""
		for _, p := range m.ordered() {
			m.HostID = p.UserID
			break
		}
	}
	m.Phase = PhaseLobby
	m.Bomb = nil
	m.Result = nil
	m.Tutorial = false
	m.Seed = ""
	m.Log = []LogEntry{}
	m.Voice = Voice{TalkMode: TalkSharedPool, Speaking: map[string]int64{}, OverlapArmed: true, silencePenalized: -1}
	m.addLog(now, "lobby", userID, "back to lobby")
	return nil
}

// TierForPlayers maps a player count to a difficulty tier.
func TierForPlayers(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 6:
		return 2
	default:
		return 3
	}
}

// CommsScale is the talk budget multiplier for a player count.
func CommsScale(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n <= 3:
		return 0.9
	case n <= 6:
		return 1.1
	default:
		return 1.5
	}
}

// InitialResources derives the starting pool for a match.
func InitialResources(playerCount, tier int, b config.Balance) Resources {
	bucket := bomb.TierBucket(tier)
	timer, ok := b.TimerSecondsByTier[bucket]
	if !ok {
		timer = defaultTimerSeconds
	}
	talk, ok := b.TalkBudgetSecondsByTier[bucket]
	if !ok {
		talk = defaultTalkBudget
	}
	return Resources{
		TimerMs:      int64(timer) * 1000,
		CommsSeconds: math.Max(0, math.Round(float64(talk)*CommsScale(playerCount))),
		Stability:    b.StabilityStart,
	}
}

// Penalty applies a generic penalty. Stability reaching 0 explodes the bomb.
func (m *Match) Penalty(userID string, severity int, reason string, now int64) {
	if m.Phase != PhaseActive {
		return
	}
	m.Resources.Stability = max(0, m.Resources.Stability-severity)
	drain := float64(severity) * 2 * m.penaltyScale()
	m.Resources.CommsSeconds = math.Max(0, m.Resources.CommsSeconds-drain)
	if p, ok := m.players[userID]; ok {
		p.Penalties++
	}
	m.addLog(now, "penalty", userID, fmt.Sprintf("%s (-%d stability)", reason, severity))
	if m.Resources.Stability <= 0 {
		m.finish(OutcomeExploded, "stability depleted", now)
	}
}

func (m *Match) penaltyScale() float64 {
	if m.cat.Balance.PenaltyScale <= 0 {
		return 1
	}
	return m.cat.Balance.PenaltyScale
}

func (m *Match) finish(outcome Outcome, reason string, now int64) {
	if m.Phase != PhaseActive {
		return
	}
	m.Phase = PhaseResults
	m.Result = &Result{Outcome: outcome, Reason: reason, EndedAt: now}
	m.Voice.Speaking = map[string]int64{}
	m.addLog(now, "result", "", fmt.Sprintf("%s: %s", outcome, reason))
}

func (m *Match) checkSolved(now int64) {
	if m.Bomb != nil && m.Bomb.AllSolved() {
		m.finish(OutcomeDefused, "all modules solved", now)
	}
}

// Tick advances the timer and the comms drain to now.
func (m *Match) Tick(now int64) {
	if m.Phase != PhaseActive {
		return
	}
	elapsed := now - m.lastTick
	if elapsed < 0 {
		elapsed = 0
	}
	m.lastTick = now

	m.Resources.TimerMs = max(0, m.Resources.TimerMs-elapsed)
	if m.Resources.TimerMs == 0 {
		m.finish(OutcomeTimeout, "timer expired", now)
		return
	}
	m.drainComms(float64(elapsed)/1000, now)
}

// Elapsed returns the active time of the current match in ms.
func (m *Match) Elapsed(now int64) int64 {
	if m.startedAt == 0 {
		return 0
	}
	if m.Result != nil {
		return m.Result.EndedAt - m.startedAt
	}
	return now - m.startedAt
}

func (m *Match) addLog(now int64, kind, userID, msg string) {
	entry := LogEntry{At: now, Kind: kind, UserID: userID, Message: msg}
	m.Log = append([]LogEntry{entry}, m.Log...)
	if len(m.Log) > maxLogEntries {
		m.Log = m.Log[:maxLogEntries]
	}
}

// ordered returns players in join order.
func (m *Match) ordered() []*Player {
	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sortPlayers(out)
	return out
}
