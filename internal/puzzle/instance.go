package puzzle

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

// Voice bot event names.
const (
	VoiceSpeakStart = "SPEAK_START"
	VoiceSpeakEnd   = "SPEAK_END"
)

// ErrUnknownVoiceEvent is returned for voice events other than start and end.
var ErrUnknownVoiceEvent = errors.New("unknown voice event")

type conn struct {
	session multiplayer.SessionHandle
	userID  string
}

// Instance is the actor that owns one Match. Every field below loop is only
// touched from the loop goroutine.
type Instance struct {
	id     string
	loop   *multiplayer.Loop
	status multiplayer.StatusCell
	logger *log.Logger

	match    *Match
	conns    map[multiplayer.SessionID]*conn
	catalog  func() *config.Catalog
	saver    ResultSaver
	interval time.Duration
	clock    func() time.Time
	onEmpty  func(*Instance)
	ticks    uint64
	saved    bool
}

type instanceConfig struct {
	catalog  func() *config.Catalog
	saver    ResultSaver
	logger   *log.Logger
	interval time.Duration
	clock    func() time.Time
	opts     Options
	onEmpty  func(*Instance)
}

func newInstance(id string, cfg instanceConfig) *Instance {
	inst := &Instance{
		id:       id,
		loop:     multiplayer.NewLoop(256),
		logger:   cfg.logger.With("instance", id),
		match:    NewMatch(id, cfg.catalog(), cfg.opts),
		conns:    make(map[multiplayer.SessionID]*conn),
		catalog:  cfg.catalog,
		saver:    cfg.saver,
		interval: cfg.interval,
		clock:    cfg.clock,
		onEmpty:  cfg.onEmpty,
	}
	inst.publish()
	return inst
}

// ID returns the instance id.
func (i *Instance) ID() string {
	return i.id
}

// Status returns the last published status.
func (i *Instance) Status() multiplayer.RoomStatus {
	return i.status.Load()
}

// Run processes messages and ticks until the instance is stopped.
func (i *Instance) Run() {
	i.loop.Run(i.onTick)
}

// Stop ends the actor.
func (i *Instance) Stop() {
	i.loop.Stop()
}

// Done closes when the actor has stopped.
func (i *Instance) Done() <-chan struct{} {
	return i.loop.Done()
}

func (i *Instance) nowMs() int64 {
	return i.clock().UnixMilli()
}

// join attaches s as userID. Reports false if the instance had already stopped.
func (i *Instance) join(s multiplayer.SessionHandle, userID, displayName string) (bool, error) {
	var joinErr error
	ok := i.loop.Call(func() {
		joinErr = i.match.Join(userID, displayName, i.nowMs())
		if joinErr != nil {
			i.send(s, errorMsg(joinErr))
			if len(i.conns) == 0 {
				i.teardown()
			}
			return
		}
		i.conns[s.ID()] = &conn{session: s, userID: userID}
		i.logger.Info("player joined", "user", userID, "session", s.ID())
		i.send(s, JoinedMsg{Type: MsgJoined, InstanceID: i.id, UserID: userID})
		i.broadcast()
		i.publish()
	})
	return ok, joinErr
}

// leave detaches a session. The last connection leaving tears the instance down.
func (i *Instance) leave(id multiplayer.SessionID, reason multiplayer.CloseReason) {
	i.loop.Do(func() {
		c, ok := i.conns[id]
		if !ok {
			return
		}
		delete(i.conns, id)
		if !i.userConnected(c.userID) {
			i.match.Leave(c.userID, i.nowMs())
		}
		i.logger.Info("player left", "user", c.userID, "reason", reason)
		if len(i.conns) == 0 {
			i.teardown()
			return
		}
		i.broadcast()
		i.publish()
	})
}

func (i *Instance) userConnected(userID string) bool {
	for _, c := range i.conns {
		if c.userID == userID {
			return true
		}
	}
	return false
}

func (i *Instance) teardown() {
	i.loop.StopTicker()
	i.loop.Stop()
	i.logger.Info("instance closed")
	if i.onEmpty != nil {
		i.onEmpty(i)
	}
}

// handle applies a client envelope from session id.
func (i *Instance) handle(id multiplayer.SessionID, msg Inbound) {
	i.loop.Do(func() {
		c, ok := i.conns[id]
		if !ok {
			return
		}
		if err := i.apply(c, msg); err != nil {
			i.send(c.session, errorMsg(err))
			return
		}
		i.afterMutation()
	})
}

func (i *Instance) apply(c *conn, msg Inbound) error {
	now := i.nowMs()
	m := i.match
	switch msg.Type {
	case MsgPresence:
		return m.SetPresence(c.userID, msg.Status)
	case MsgStartMatch:
		if m.Phase == PhaseLobby {
			m.SetCatalog(i.catalog())
		}
		return m.StartMatch(c.userID, now)
	case MsgStartTutorial:
		if m.Phase == PhaseLobby {
			m.SetCatalog(i.catalog())
		}
		level := msg.Level
		if level == 0 {
			level = 1
		}
		return m.StartTutorial(c.userID, level, now)
	case MsgPlayAgain:
		return m.PlayAgain(c.userID, now)
	case MsgAction:
		if msg.Action == nil {
			return errors.New("action envelope without action")
		}
		return m.Apply(c.userID, *msg.Action, now)
	case MsgRequestScan:
		unsolved, err := m.RequestScan(c.userID, now)
		if err != nil {
			return err
		}
		if unsolved != nil {
			brief := m.Brief(c.userID)
			if brief != nil {
				brief.Unsolved = unsolved
				i.send(c.session, StatePatchMsg{Type: MsgStatePatch, State: m.View(), PrivateBrief: brief})
			}
		}
		return nil
	case MsgJoinInstance:
		return errors.New("already joined an instance")
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// voice applies a voice bot event.
func (i *Instance) voice(userID, event string, at int64) (bool, error) {
	var err error
	ok := i.loop.Call(func() {
		switch event {
		case VoiceSpeakStart:
			err = i.match.SpeakStart(userID, at)
		case VoiceSpeakEnd:
			err = i.match.SpeakEnd(userID, at)
		default:
			err = fmt.Errorf("%w %q", ErrUnknownVoiceEvent, event)
		}
		if err == nil {
			i.broadcast()
		}
	})
	return ok, err
}

func (i *Instance) onTick(now time.Time) {
	i.ticks++
	i.match.Tick(now.UnixMilli())
	i.afterMutation()
}

// afterMutation broadcasts, persists a terminal result once, and runs the
// ticker only while the match is active.
func (i *Instance) afterMutation() {
	i.broadcast()

	switch i.match.Phase {
	case PhaseActive:
		i.saved = false
		if !i.loop.Ticking() {
			i.loop.StartTicker(i.interval)
		}
	case PhaseResults:
		i.loop.StopTicker()
		if !i.saved {
			i.saved = true
			i.save()
		}
	default:
		i.loop.StopTicker()
		i.saved = false
	}
	i.publish()
}

func (i *Instance) save() {
	data, ok := i.match.resultData()
	if !ok {
		return
	}
	i.logger.Info("match finished", "outcome", data.Outcome, "reason", data.Reason, "seed", data.Seed)
	if i.saver == nil {
		return
	}
	go func() {
		if err := i.saver.SavePuzzleResult(data); err != nil {
			i.logger.Error("saving result failed", "err", err)
		}
	}()
}

func (i *Instance) broadcast() {
	view := i.match.View()
	for _, c := range i.conns {
		i.send(c.session, StatePatchMsg{
			Type:         MsgStatePatch,
			State:        view,
			PrivateBrief: i.match.Brief(c.userID),
		})
	}
}

func (i *Instance) send(s multiplayer.SessionHandle, v any) {
	if err := multiplayer.SendTo(s, v); err != nil {
		i.logger.Error("encoding envelope failed", "session", s.ID(), "err", err)
	}
}

func (i *Instance) publish() {
	m := i.match
	detail := ""
	if m.Phase != PhaseLobby {
		detail = fmt.Sprintf("stability %d, timer %ds, comms %.0fs", m.Resources.Stability, m.Resources.TimerMs/1000, m.Resources.CommsSeconds)
	}
	if m.Result != nil {
		detail = string(m.Result.Outcome) + ": " + m.Result.Reason
	}
	i.status.Store(multiplayer.RoomStatus{
		ID:          i.id,
		Mode:        multiplayer.ModePuzzle,
		Phase:       string(m.Phase),
		Players:     m.PlayerCount(),
		Connections: len(i.conns),
		Tick:        i.ticks,
		Detail:      detail,
		UpdatedAt:   i.clock(),
	})
}
