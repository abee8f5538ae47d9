package multiplayer

import "sync"

// SessionHandle is the transport-neutral interface for communicating with a session.
// It allows rooms to send frames without depending on the WebSocket layer.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Codec returns the wire codec the client negotiated.
	Codec() Codec

	// Send queues an encoded frame for the session.
	// Must be non-blocking; returns false if the session is closed.
	Send(frame []byte) bool

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}
}

// ChannelSession is a SessionHandle implementation using Go channels.
// The transport drains Frames() and writes them to the socket.
type ChannelSession struct {
	id       SessionID
	codec    Codec
	frames   chan []byte
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	dropped int
}

// NewChannelSession creates a new channel-based session handle.
// bufferSize controls how many frames can be queued before dropping.
func NewChannelSession(id SessionID, codec Codec, bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64 // Default buffer size
	}
	if codec == nil {
		codec = JSON
	}
	return &ChannelSession{
		id:     id,
		codec:  codec,
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Codec returns the negotiated codec.
func (s *ChannelSession) Codec() Codec {
	return s.codec
}

// Open reports whether the session still accepts frames.
func (s *ChannelSession) Open() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Send queues a frame for the session.
// If the buffer is full, the oldest frame is dropped to prevent blocking.
func (s *ChannelSession) Send(frame []byte) bool {
	if !s.Open() {
		return false
	}

	select {
	case s.frames <- frame:
		// Frame queued
	default:
		// Buffer full, drop oldest and retry
		select {
		case <-s.frames:
			s.countDrop()
		default:
		}
		// Try again (best effort)
		select {
		case s.frames <- frame:
		default:
			s.countDrop()
		}
	}
	return true
}

func (s *ChannelSession) countDrop() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Dropped returns how many frames were discarded for this slow consumer.
func (s *ChannelSession) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Frames returns the channel to receive queued frames from.
func (s *ChannelSession) Frames() <-chan []byte {
	return s.frames
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// SessionRegistry tracks every open transport session across both game modes.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[SessionID]SessionHandle
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[SessionID]SessionHandle),
	}
}

// Register adds a session to the registry.
func (r *SessionRegistry) Register(session SessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
}

// Unregister removes a session from the registry.
func (r *SessionRegistry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// CodecCounts returns the number of open sessions per frame codec.
func (r *SessionRegistry) CodecCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int, 2)
	for _, s := range r.sessions {
		counts[s.Codec().Name()]++
	}
	return counts
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast encodes v once per codec and sends it to every session.
// Closed sessions are skipped; encoding errors are returned after all sends.
func Broadcast(sessions []SessionHandle, v any) error {
	var firstErr error
	frames := make(map[string][]byte, 2)
	for _, s := range sessions {
		codec := s.Codec()
		frame, ok := frames[codec.Name()]
		if !ok {
			var err error
			frame, err = codec.Marshal(v)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			frames[codec.Name()] = frame
		}
		s.Send(frame)
	}
	return firstErr
}

// SendTo encodes v with the session's codec and queues it.
func SendTo(s SessionHandle, v any) error {
	frame, err := s.Codec().Marshal(v)
	if err != nil {
		return err
	}
	s.Send(frame)
	return nil
}
