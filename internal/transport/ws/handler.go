// Package ws adapts gorilla/websocket connections to multiplayer endpoints.
// Each connection gets a ChannelSession; a read pump feeds the endpoint and a
// write pump drains the session queue to the socket.
package ws

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
)

// Config tunes a Handler. Zero values get defaults.
type Config struct {
	Logger         *log.Logger
	IDs            *multiplayer.IDSource
	Sessions       *multiplayer.SessionRegistry
	AllowedOrigins []string // empty allows every origin
	BufferSize     int      // outbound frames queued per session
	MaxDropped     int      // frames dropped before a slow consumer is closed
	ReadLimit      int64
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// Handler upgrades requests and runs one endpoint session per connection.
type Handler struct {
	endpoint multiplayer.Endpoint
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// closeError carries the reason a pump stopped.
type closeError struct {
	reason multiplayer.CloseReason
	err    error
}

func (e *closeError) Error() string {
	if e.err == nil {
		return e.reason.String()
	}
	return e.reason.String() + ": " + e.err.Error()
}

func (e *closeError) Unwrap() error { return e.err }

// NewHandler creates a handler serving endpoint.
func NewHandler(endpoint multiplayer.Endpoint, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.IDs == nil {
		cfg.IDs = multiplayer.NewIDSource("s-")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.MaxDropped <= 0 {
		cfg.MaxDropped = 512
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 << 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		endpoint: endpoint,
		cfg:      cfg,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if len(h.cfg.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and blocks until the connection ends.
// The codec is chosen with the codec query parameter (json or msgpack).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	codec, err := multiplayer.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.wg.Add(1)
	defer h.wg.Done()
	h.serve(conn, codec)
}

func (h *Handler) serve(conn *websocket.Conn, codec multiplayer.Codec) {
	sess := multiplayer.NewChannelSession(h.cfg.IDs.Next(), codec, h.cfg.BufferSize)
	logger := h.logger.With("session", sess.ID(), "codec", codec.Name())
	if h.cfg.Sessions != nil {
		h.cfg.Sessions.Register(sess)
		defer h.cfg.Sessions.Unregister(sess.ID())
	}
	logger.Debug("connection opened")
	h.endpoint.Open(sess)

	conn.SetReadLimit(h.cfg.ReadLimit)
	eg, ctx := errgroup.WithContext(h.ctx)
	eg.Go(func() error { return h.readPump(conn, sess) })
	eg.Go(func() error {
		// Closing the socket here unblocks the read pump.
		defer conn.Close()
		return h.writePump(ctx, conn, sess)
	})
	err := eg.Wait()

	reason := multiplayer.CloseServerShutdown
	var ce *closeError
	if errors.As(err, &ce) {
		reason = ce.reason
	}
	sess.Close()
	h.endpoint.Close(sess, reason)
	logger.Debug("connection closed", "reason", reason, "err", err)
}

func (h *Handler) readPump(conn *websocket.Conn, sess *multiplayer.ChannelSession) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return &closeError{reason: multiplayer.CloseClientLeft}
			}
			if h.ctx.Err() != nil {
				return &closeError{reason: multiplayer.CloseServerShutdown}
			}
			return &closeError{reason: multiplayer.CloseReadError, err: err}
		}
		h.endpoint.Receive(sess, data)
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, sess *multiplayer.ChannelSession) error {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	msgType := websocket.TextMessage
	if sess.Codec().Binary() {
		msgType = websocket.BinaryMessage
	}
	deadline := func() time.Time { return time.Now().Add(h.cfg.WriteTimeout) }

	for {
		select {
		case <-ctx.Done():
			if h.ctx.Err() != nil {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline())
				return &closeError{reason: multiplayer.CloseServerShutdown}
			}
			return nil
		case <-sess.Done():
			return &closeError{reason: multiplayer.CloseServerShutdown}
		case frame := <-sess.Frames():
			_ = conn.SetWriteDeadline(deadline())
			if err := conn.WriteMessage(msgType, frame); err != nil {
				return &closeError{reason: multiplayer.CloseWriteError, err: err}
			}
			if sess.Dropped() > h.cfg.MaxDropped {
				msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline())
				return &closeError{reason: multiplayer.CloseSlowConsumer}
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline()); err != nil {
				return &closeError{reason: multiplayer.CloseWriteError, err: err}
			}
		}
	}
}

// Shutdown closes every open connection and waits for their endpoints to
// see Close, or for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
