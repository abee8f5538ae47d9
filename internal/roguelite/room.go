package roguelite

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

var (
	// ErrNotHost is returned when a non-host tries to start the game.
	ErrNotHost = errors.New("only the host can start the game")

	// ErrNotReady is returned by start_game while someone is not ready.
	ErrNotReady = errors.New("not all players are ready")

	// ErrGameRunning is returned for lobby actions while a game is running.
	ErrGameRunning = errors.New("a game is already running")

	// ErrRoomFull is returned when the roster is at capacity.
	ErrRoomFull = errors.New("room is full")
)

type member struct {
	session  multiplayer.SessionHandle
	playerID string
	settings Settings
}

// Room is the actor that owns one lobby and its current game. Every field
// below loop is only touched from the loop goroutine.
type Room struct {
	id     string
	loop   *multiplayer.Loop
	status multiplayer.StatusCell
	logger *log.Logger

	cfg     config.RogueConfig
	lobby   []*LobbyPlayer
	hostID  string
	conns   map[multiplayer.SessionID]*member
	game    *Game
	saver   ResultSaver
	clock   func() time.Time
	seeds   func() string
	onEmpty func(*Room)
	joins   int
	saved   bool
	reset   *time.Timer
}

type roomConfig struct {
	cfg     config.RogueConfig
	saver   ResultSaver
	logger  *log.Logger
	clock   func() time.Time
	seeds   func() string
	onEmpty func(*Room)
}

func newRoom(id string, rc roomConfig) *Room {
	r := &Room{
		id:      id,
		loop:    multiplayer.NewLoop(256),
		logger:  rc.logger.With("room", id),
		cfg:     rc.cfg,
		conns:   make(map[multiplayer.SessionID]*member),
		saver:   rc.saver,
		clock:   rc.clock,
		seeds:   rc.seeds,
		onEmpty: rc.onEmpty,
	}
	r.publish()
	return r
}

// ID returns the room id.
func (r *Room) ID() string {
	return r.id
}

// Status returns the last published status.
func (r *Room) Status() multiplayer.RoomStatus {
	return r.status.Load()
}

// Run processes messages and ticks until the room is stopped.
func (r *Room) Run() {
	r.loop.Run(r.onTick)
}

// Stop ends the actor.
func (r *Room) Stop() {
	r.loop.Stop()
}

// Done closes when the actor has stopped.
func (r *Room) Done() <-chan struct{} {
	return r.loop.Done()
}

// join adds s to the roster. Reports false if the room had already stopped.
func (r *Room) join(s multiplayer.SessionHandle, displayName string) (bool, error) {
	var joinErr error
	ok := r.loop.Call(func() {
		switch {
		case r.game != nil && r.game.State().Phase != PhaseResults:
			joinErr = ErrGameRunning
		case len(r.lobby) >= r.cfg.Limits.MaxPlayers && r.cfg.Limits.MaxPlayers > 0:
			joinErr = ErrRoomFull
		}
		if joinErr != nil {
			r.send(s, errorMsg(joinErr))
			if len(r.conns) == 0 {
				r.teardown()
			}
			return
		}
		r.joins++
		if displayName == "" {
			displayName = fmt.Sprintf("Player-%d", r.joins)
		}
		lp := &LobbyPlayer{
			ID:                 "p-" + uuid.NewString(),
			DisplayName:        displayName,
			CharacterID:        Characters[0].ID,
			StarterWeaponID:    Weapons[0].ID,
			BlacklistedWeapons: []string{},
			BlacklistedTokens:  []string{},
		}
		r.lobby = append(r.lobby, lp)
		if r.hostID == "" {
			r.hostID = lp.ID
		}
		r.conns[s.ID()] = &member{session: s, playerID: lp.ID, settings: DefaultSettings()}
		r.logger.Info("player joined", "player", lp.ID, "session", s.ID())
		r.send(s, JoinedMsg{Type: MsgJoined, PlayerID: lp.ID})
		r.broadcastLobby()
		r.publish()
	})
	return ok, joinErr
}

// leave detaches a session. The last connection leaving tears the room down.
func (r *Room) leave(id multiplayer.SessionID, reason multiplayer.CloseReason) {
	r.loop.Do(func() {
		m, ok := r.conns[id]
		if !ok {
			return
		}
		delete(r.conns, id)
		for i, lp := range r.lobby {
			if lp.ID == m.playerID {
				r.lobby = append(r.lobby[:i], r.lobby[i+1:]...)
				break
			}
		}
		r.logger.Info("player left", "player", m.playerID, "reason", reason)
		if len(r.conns) == 0 {
			r.teardown()
			return
		}
		if r.hostID == m.playerID {
			r.hostID = r.lobby[0].ID
			r.logger.Info("host handed over", "player", r.hostID)
		}
		if r.game != nil {
			r.game.SetHost(r.hostID)
			r.dispatch(r.game.Disconnect(m.playerID))
			r.afterMutation()
		}
		r.broadcastLobby()
		r.publish()
	})
}

func (r *Room) teardown() {
	if r.reset != nil {
		r.reset.Stop()
	}
	r.loop.StopTicker()
	r.loop.Stop()
	r.logger.Info("room closed")
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
}

// handle applies a client envelope from session id.
func (r *Room) handle(id multiplayer.SessionID, msg Inbound) {
	r.loop.Do(func() {
		m, ok := r.conns[id]
		if !ok {
			return
		}
		if err := r.apply(m, msg); err != nil {
			r.send(m.session, errorMsg(err))
		}
	})
}

func (r *Room) lobbyPlayer(id string) *LobbyPlayer {
	for _, lp := range r.lobby {
		if lp.ID == id {
			return lp
		}
	}
	return nil
}

func (r *Room) apply(m *member, msg Inbound) error {
	switch msg.Type {
	case MsgLobbyUpdate:
		if r.game != nil {
			return ErrGameRunning
		}
		r.updateLobby(r.lobbyPlayer(m.playerID), msg)
		r.broadcastLobby()
		return nil
	case MsgReady:
		if r.game != nil {
			return ErrGameRunning
		}
		r.lobbyPlayer(m.playerID).Ready = msg.Ready
		r.broadcastLobby()
		return nil
	case MsgStartGame:
		return r.start(m)
	case MsgInput:
		if r.game == nil {
			return ErrWrongPhase
		}
		return r.game.SetInput(m.playerID, msg.DX, msg.DY, msg.CursorX, msg.CursorY)
	case MsgUpdateSettings:
		if msg.Settings == nil {
			return errors.New("update_settings without settings")
		}
		m.settings = *msg.Settings
		if r.game != nil {
			return r.game.SetSettings(m.playerID, m.settings)
		}
		return nil
	case MsgPickUpgrade:
		if r.game == nil {
			return ErrNoOffer
		}
		events, err := r.game.PickUpgrade(m.playerID, msg.UpgradeID)
		if err != nil {
			return err
		}
		r.dispatch(events)
		r.broadcastState()
		return nil
	case MsgVoteContinue:
		if r.game == nil {
			return ErrWrongPhase
		}
		events, err := r.game.VoteContinue(m.playerID)
		if err != nil {
			return err
		}
		r.dispatch(events)
		r.afterMutation()
		r.broadcastState()
		return nil
	case MsgJoin:
		return errors.New("already joined a room")
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// updateLobby applies a lobby_update. Unknown ids are ignored and the
// blacklists are capped.
func (r *Room) updateLobby(lp *LobbyPlayer, msg Inbound) {
	if msg.CharacterID != nil {
		if _, ok := Character(*msg.CharacterID); ok {
			lp.CharacterID = *msg.CharacterID
		}
	}
	if msg.StarterWeaponID != nil && StarterWeapon(*msg.StarterWeaponID) {
		lp.StarterWeaponID = *msg.StarterWeaponID
	}
	if msg.Cosmetic != nil {
		lp.Cosmetic = *msg.Cosmetic
	}
	if msg.BlacklistedWeapons != nil {
		lp.BlacklistedWeapons = capKnown(msg.BlacklistedWeapons, r.cfg.Limits.MaxBlacklistedWeapons, func(id string) bool {
			_, ok := Weapon(id)
			return ok
		})
	}
	if msg.BlacklistedTokens != nil {
		lp.BlacklistedTokens = capKnown(msg.BlacklistedTokens, r.cfg.Limits.MaxBlacklistedTokens, func(id string) bool {
			_, ok := Token(id)
			return ok
		})
	}
}

func capKnown(ids []string, limit int, known func(string) bool) []string {
	out := []string{}
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		if known(id) {
			out = append(out, id)
		}
	}
	return out
}

func (r *Room) start(m *member) error {
	if m.playerID != r.hostID {
		return ErrNotHost
	}
	if r.game != nil {
		return ErrGameRunning
	}
	for _, lp := range r.lobby {
		if !lp.Ready {
			return ErrNotReady
		}
	}
	r.game = NewGame(r.cfg, r.seeds(), r.hostID, r.lobby)
	for _, c := range r.conns {
		if err := r.game.SetSettings(c.playerID, c.settings); err != nil {
			r.logger.Warn("applying settings failed", "player", c.playerID, "err", err)
		}
	}
	r.saved = false
	r.logger.Info("game started", "seed", r.game.Seed(), "players", len(r.lobby))
	r.afterMutation()
	r.broadcastState()
	return nil
}

func (r *Room) onTick(time.Time) {
	if r.game == nil {
		r.loop.StopTicker()
		return
	}
	ran := r.game.TickAllowed()
	r.dispatch(r.game.Tick())
	if ran || r.game.State().Phase == PhaseVoteContinue {
		r.broadcastState()
	}
	r.afterMutation()
}

// afterMutation runs the ticker while the game is live and, once it has
// ended, saves the result and schedules the return to the lobby.
func (r *Room) afterMutation() {
	if r.game == nil {
		r.loop.StopTicker()
		r.publish()
		return
	}
	switch r.game.State().Phase {
	case PhaseActive, PhaseVoteContinue:
		if !r.loop.Ticking() {
			r.loop.StartTicker(r.cfg.TickInterval())
		}
	case PhaseResults:
		r.loop.StopTicker()
		if !r.saved {
			r.saved = true
			r.save()
			r.scheduleReset()
		}
	}
	r.publish()
}

func (r *Room) scheduleReset() {
	game := r.game
	r.reset = time.AfterFunc(time.Duration(r.cfg.ResultsResetMs)*time.Millisecond, func() {
		r.loop.Do(func() {
			if r.game != game {
				return
			}
			r.game = nil
			for _, lp := range r.lobby {
				lp.Ready = false
			}
			r.logger.Info("room reset to lobby")
			r.broadcastLobby()
			r.publish()
		})
	})
}

func (r *Room) save() {
	data, ok := r.game.resultData(r.id, r.clock())
	if !ok {
		return
	}
	r.logger.Info("game finished", "outcome", data.Outcome, "wave", data.Wave, "seed", data.Seed)
	if r.saver == nil {
		return
	}
	go func() {
		if err := r.saver.SaveRogueResult(data); err != nil {
			r.logger.Error("saving result failed", "err", err)
		}
	}()
}

// dispatch sends engine events: broadcasts to everyone, targeted ones to the
// owning player's connection.
func (r *Room) dispatch(events []Event) {
	for _, ev := range events {
		if ev.To == "" {
			r.broadcast(ev.Msg)
			continue
		}
		for _, m := range r.conns {
			if m.playerID == ev.To {
				r.send(m.session, ev.Msg)
			}
		}
	}
}

func (r *Room) sessions() []multiplayer.SessionHandle {
	out := make([]multiplayer.SessionHandle, 0, len(r.conns))
	for _, m := range r.conns {
		out = append(out, m.session)
	}
	return out
}

func (r *Room) broadcast(v any) {
	if err := multiplayer.Broadcast(r.sessions(), v); err != nil {
		r.logger.Error("encoding envelope failed", "err", err)
	}
}

func (r *Room) broadcastLobby() {
	r.broadcast(LobbyMsg{Type: MsgLobby, Lobby: LobbyState{HostID: r.hostID, Players: r.lobby, Countdown: -1}})
}

func (r *Room) broadcastState() {
	if r.game != nil {
		r.broadcast(StateMsg{Type: MsgState, State: r.game.State()})
	}
}

func (r *Room) send(s multiplayer.SessionHandle, v any) {
	if err := multiplayer.SendTo(s, v); err != nil {
		r.logger.Error("encoding envelope failed", "session", s.ID(), "err", err)
	}
}

func (r *Room) publish() {
	st := multiplayer.RoomStatus{
		ID:          r.id,
		Mode:        multiplayer.ModeRogue,
		Phase:       string(PhaseLobby),
		Players:     len(r.lobby),
		Connections: len(r.conns),
		UpdatedAt:   r.clock(),
	}
	if r.game != nil {
		gs := r.game.State()
		st.Phase = string(gs.Phase)
		st.Tick = uint64(gs.Tick) //#nosec G115 -- tick counts up from zero
		st.Detail = fmt.Sprintf("wave %d, level %d, enemies %d", gs.Wave, gs.SharedLevel, len(gs.Enemies))
		if res := r.game.Result(); res != nil {
			st.Detail = string(res.Outcome) + fmt.Sprintf(" at wave %d", res.Wave)
		}
	}
	r.status.Store(st)
}
