package roguelite

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

// DefaultRoomID is used when a join names no room.
const DefaultRoomID = "default"

// ErrNotJoined is returned for envelopes sent before join.
var ErrNotJoined = errors.New("join a room first")

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Logger *log.Logger
	Rogue  config.RogueConfig
	Saver  ResultSaver
	Clock  func() time.Time
	Seeds  func() string
}

// Service owns every roguelite room and routes connections to them.
type Service struct {
	cfg    ServiceConfig
	logger *log.Logger
	rooms  *multiplayer.Registry[*Room]
	wg     sync.WaitGroup

	mu        sync.Mutex
	bySession map[multiplayer.SessionID]*Room
}

// NewService creates a roguelite service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Seeds == nil {
		cfg.Seeds = uuid.NewString
	}
	s := &Service{
		cfg:       cfg,
		logger:    cfg.Logger,
		bySession: make(map[multiplayer.SessionID]*Room),
	}
	s.rooms = multiplayer.NewRegistry(s.create)
	return s
}

func (s *Service) create(id string) *Room {
	r := newRoom(id, roomConfig{
		cfg:     s.cfg.Rogue,
		saver:   s.cfg.Saver,
		logger:  s.logger,
		clock:   s.cfg.Clock,
		seeds:   s.cfg.Seeds,
		onEmpty: s.remove,
	})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.Run()
	}()
	s.logger.Info("room created", "room", id)
	return r
}

func (s *Service) remove(r *Room) {
	s.rooms.RemoveIf(r.ID(), func(cur *Room) bool { return cur == r })
}

// Open registers a new connection. It joins a room with join.
func (s *Service) Open(multiplayer.SessionHandle) {}

// Receive decodes and routes one client frame.
func (s *Service) Receive(sess multiplayer.SessionHandle, frame []byte) {
	var msg Inbound
	if err := sess.Codec().Unmarshal(frame, &msg); err != nil {
		s.reject(sess, errors.New("malformed envelope"))
		return
	}

	s.mu.Lock()
	room := s.bySession[sess.ID()]
	s.mu.Unlock()

	switch {
	case msg.Type == MsgJoin && room == nil:
		s.join(sess, msg)
	case room == nil:
		s.reject(sess, ErrNotJoined)
	case msg.Type == MsgLeave:
		s.detach(sess, multiplayer.CloseClientLeft)
	default:
		room.handle(sess.ID(), msg)
	}
}

func (s *Service) join(sess multiplayer.SessionHandle, msg Inbound) {
	id := msg.RoomID
	if id == "" {
		id = DefaultRoomID
	}
	// A stopped room may linger in the registry until its teardown removes
	// it; retry once against a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		room, _ := s.rooms.GetOrCreate(id)
		ok, err := room.join(sess, msg.DisplayName)
		if !ok {
			s.remove(room)
			continue
		}
		if err == nil {
			s.mu.Lock()
			s.bySession[sess.ID()] = room
			s.mu.Unlock()
		}
		return
	}
	s.reject(sess, errors.New("room unavailable"))
}

// Close detaches a connection from its room.
func (s *Service) Close(sess multiplayer.SessionHandle, reason multiplayer.CloseReason) {
	s.detach(sess, reason)
}

func (s *Service) detach(sess multiplayer.SessionHandle, reason multiplayer.CloseReason) {
	s.mu.Lock()
	room := s.bySession[sess.ID()]
	delete(s.bySession, sess.ID())
	s.mu.Unlock()
	if room != nil {
		room.leave(sess.ID(), reason)
	}
}

func (s *Service) reject(sess multiplayer.SessionHandle, err error) {
	if encErr := multiplayer.SendTo(sess, errorMsg(err)); encErr != nil {
		s.logger.Error("encoding error envelope failed", "err", encErr)
	}
}

// Len returns the number of live rooms.
func (s *Service) Len() int {
	return s.rooms.Len()
}

// Statuses returns the status of every room, ordered by id.
func (s *Service) Statuses() []multiplayer.RoomStatus {
	rooms := s.rooms.Snapshot()
	out := make([]multiplayer.RoomStatus, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Status())
	}
	return out
}

// Shutdown stops every room and waits for their actors to exit.
func (s *Service) Shutdown() {
	for _, r := range s.rooms.Snapshot() {
		r.Stop()
		s.remove(r)
	}
	s.wg.Wait()
}
