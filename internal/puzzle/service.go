package puzzle

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

var (
	// ErrUnknownInstance is returned when no instance has the given id.
	ErrUnknownInstance = errors.New("unknown instance")

	// ErrTokenRequired is returned when a join carries no valid token.
	ErrTokenRequired = errors.New("a valid token is required to join")
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Identify(token string) (userID, displayName string, err error)
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Logger       *log.Logger
	Catalog      *config.CatalogStore
	Saver        ResultSaver
	Auth         Authenticator
	RequireToken bool
	Puzzle       config.PuzzleConfig
	Clock        func() time.Time
}

// Service owns every puzzle instance and routes connections to them.
type Service struct {
	cfg       ServiceConfig
	logger    *log.Logger
	instances *multiplayer.Registry[*Instance]
	wg        sync.WaitGroup

	mu        sync.Mutex
	bySession map[multiplayer.SessionID]*Instance
}

// NewService creates a puzzle service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Puzzle.TickInterval <= 0 {
		cfg.Puzzle.TickInterval = 250 * time.Millisecond
	}
	s := &Service{
		cfg:       cfg,
		logger:    cfg.Logger,
		bySession: make(map[multiplayer.SessionID]*Instance),
	}
	s.instances = multiplayer.NewRegistry(s.create)
	return s
}

func (s *Service) create(id string) *Instance {
	inst := newInstance(id, instanceConfig{
		catalog:  s.cfg.Catalog.Catalog,
		saver:    s.cfg.Saver,
		logger:   s.logger,
		interval: s.cfg.Puzzle.TickInterval,
		clock:    s.cfg.Clock,
		opts: Options{
			MaxPlayers:   s.cfg.Puzzle.MaxPlayers,
			LockDuration: s.cfg.Puzzle.LockDuration.Milliseconds(),
		},
		onEmpty: s.remove,
	})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		inst.Run()
	}()
	s.logger.Info("instance created", "instance", id)
	return inst
}

func (s *Service) remove(inst *Instance) {
	s.instances.RemoveIf(inst.ID(), func(cur *Instance) bool { return cur == inst })
}

// Open registers a new connection. It joins an instance with join_instance.
func (s *Service) Open(multiplayer.SessionHandle) {}

// Receive decodes and routes one client frame.
func (s *Service) Receive(sess multiplayer.SessionHandle, frame []byte) {
	var msg Inbound
	if err := sess.Codec().Unmarshal(frame, &msg); err != nil {
		s.reject(sess, errors.New("malformed envelope"))
		return
	}

	s.mu.Lock()
	inst := s.bySession[sess.ID()]
	s.mu.Unlock()

	if msg.Type != MsgJoinInstance {
		if inst == nil {
			s.reject(sess, ErrNotJoined)
			return
		}
		inst.handle(sess.ID(), msg)
		return
	}
	if inst != nil {
		s.reject(sess, errors.New("already joined an instance"))
		return
	}
	s.join(sess, msg)
}

func (s *Service) join(sess multiplayer.SessionHandle, msg Inbound) {
	userID, name := msg.UserID, msg.DisplayName
	if s.cfg.RequireToken || msg.Token != "" {
		if s.cfg.Auth == nil {
			s.reject(sess, ErrTokenRequired)
			return
		}
		sub, tokenName, err := s.cfg.Auth.Identify(msg.Token)
		if err != nil {
			s.reject(sess, ErrTokenRequired)
			return
		}
		userID = sub
		if name == "" {
			name = tokenName
		}
	}
	if msg.InstanceID == "" || userID == "" {
		s.reject(sess, errors.New("instanceId and userId are required"))
		return
	}

	// A stopped instance may linger in the registry until its teardown
	// removes it; retry once against a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		inst, _ := s.instances.GetOrCreate(msg.InstanceID)
		ok, err := inst.join(sess, userID, name)
		if !ok {
			s.remove(inst)
			continue
		}
		if err == nil {
			s.mu.Lock()
			s.bySession[sess.ID()] = inst
			s.mu.Unlock()
		}
		return
	}
	s.reject(sess, ErrUnknownInstance)
}

// Close detaches a connection from its instance.
func (s *Service) Close(sess multiplayer.SessionHandle, reason multiplayer.CloseReason) {
	s.mu.Lock()
	inst := s.bySession[sess.ID()]
	delete(s.bySession, sess.ID())
	s.mu.Unlock()
	if inst != nil {
		inst.leave(sess.ID(), reason)
	}
}

func (s *Service) reject(sess multiplayer.SessionHandle, err error) {
	if encErr := multiplayer.SendTo(sess, errorMsg(err)); encErr != nil {
		s.logger.Error("encoding error envelope failed", "err", encErr)
	}
}

// VoiceEvent applies a voice bot event to an instance.
func (s *Service) VoiceEvent(instanceID, userID, event string, at int64) error {
	inst, ok := s.instances.Get(instanceID)
	if !ok {
		return ErrUnknownInstance
	}
	ran, err := inst.voice(userID, event, at)
	if !ran {
		return ErrUnknownInstance
	}
	return err
}

// Len returns the number of live instances.
func (s *Service) Len() int {
	return s.instances.Len()
}

// Statuses returns the status of every instance, ordered by id.
func (s *Service) Statuses() []multiplayer.RoomStatus {
	insts := s.instances.Snapshot()
	out := make([]multiplayer.RoomStatus, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.Status())
	}
	return out
}

// Shutdown stops every instance and waits for their actors to exit.
func (s *Service) Shutdown() {
	for _, inst := range s.instances.Snapshot() {
		inst.Stop()
		s.remove(inst)
	}
	s.wg.Wait()
}
