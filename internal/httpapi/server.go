// Package httpapi is the HTTP surface of the server: health, the dev token
// exchange, voice bot ingestion, telemetry and the admin endpoints. The
// WebSocket handlers are mounted on the same router.
package httpapi

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vovakirdan/defuse-exe/internal/auth"
	"github.com/vovakirdan/defuse-exe/internal/bomb"
	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
	"github.com/vovakirdan/defuse-exe/internal/puzzle"
)

const maxBodyBytes = 64 << 10

// RoomLister reports live rooms or instances.
type RoomLister interface {
	Len() int
	Statuses() []multiplayer.RoomStatus
}

// VoiceSink applies voice bot events.
type VoiceSink interface {
	VoiceEvent(instanceID, userID, event string, at int64) error
}

// TokenIssuer signs dev tokens.
type TokenIssuer interface {
	Issue(u auth.User) (string, error)
}

// SessionCounter reports open transport sessions.
type SessionCounter interface {
	Count() int
	CodecCounts() map[string]int
}

// TelemetryEvent is one client telemetry record.
type TelemetryEvent struct {
	InstanceID string          `json:"instanceId"`
	UserID     string          `json:"userId"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"-"`
}

// TelemetrySink stores telemetry.
type TelemetrySink interface {
	SaveTelemetry(ev TelemetryEvent) error
}

// Config wires the router.
type Config struct {
	Logger     *log.Logger
	Rogue      RoomLister
	Puzzle     RoomLister
	Voice      VoiceSink
	Sessions   SessionCounter
	Catalog    *config.CatalogStore
	Telemetry  TelemetrySink
	Issuer     TokenIssuer
	DevMode    bool
	AdminToken string
	VoiceToken string
	RogueWS    http.Handler
	PuzzleWS   http.Handler
	Clock      func() time.Time
}

type server struct {
	cfg    Config
	logger *log.Logger
}

// NewRouter builds the router for cfg.
func NewRouter(cfg Config) *mux.Router {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &server{cfg: cfg, logger: cfg.Logger}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/exchange", s.exchange).Methods(http.MethodPost)
	r.HandleFunc("/api/voice/event", s.voiceEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/telemetry", s.telemetry).Methods(http.MethodPost)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/reload-config", s.reloadConfig).Methods(http.MethodPost)
	admin.HandleFunc("/simulate", s.simulate).Methods(http.MethodPost)
	admin.HandleFunc("/status", s.status).Methods(http.MethodGet)

	if cfg.RogueWS != nil {
		r.Handle("/ws", cfg.RogueWS)
		r.Handle("/ws/rogue", cfg.RogueWS)
	}
	if cfg.PuzzleWS != nil {
		r.Handle("/ws/puzzle", cfg.PuzzleWS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// tokenEqual compares secrets in constant time. An empty expected secret
// never matches.
func tokenEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func count(l RoomLister) int {
	if l == nil {
		return 0
	}
	return l.Len()
}

func statuses(l RoomLister) []multiplayer.RoomStatus {
	if l == nil {
		return []multiplayer.RoomStatus{}
	}
	return l.Statuses()
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"rooms":     count(s.cfg.Rogue),
		"instances": count(s.cfg.Puzzle),
	})
}

type exchangeRequest struct {
	Code        string `json:"code"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type exchangeResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        auth.User `json:"user"`
}

func (s *server) exchange(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.DevMode || s.cfg.Issuer == nil {
		writeError(w, http.StatusServiceUnavailable, "token exchange unavailable outside dev mode")
		return
	}
	var req exchangeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	u := auth.User{ID: req.UserID, DisplayName: req.DisplayName}
	if u.ID == "" {
		u.ID = "dev-" + uuid.NewString()[:8]
	}
	if u.DisplayName == "" {
		u.DisplayName = u.ID
	}
	token, err := s.cfg.Issuer.Issue(u)
	if err != nil {
		s.logger.Error("issuing token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "token exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, exchangeResponse{AccessToken: token, TokenType: "Bearer", User: u})
}

type voiceRequest struct {
	InstanceID  string `json:"instanceId"`
	UserID      string `json:"userId"`
	GuildID     string `json:"guildId"`
	ChannelID   string `json:"channelId"`
	Event       string `json:"event"`
	TimestampMs int64  `json:"timestampMs"`
	SourceToken string `json:"sourceToken"`
}

func (v voiceRequest) validate() error {
	switch {
	case v.InstanceID == "":
		return errors.New("instanceId is required")
	case v.UserID == "":
		return errors.New("userId is required")
	case v.Event != puzzle.VoiceSpeakStart && v.Event != puzzle.VoiceSpeakEnd:
		return fmt.Errorf("event must be %s or %s", puzzle.VoiceSpeakStart, puzzle.VoiceSpeakEnd)
	case v.TimestampMs <= 0:
		return errors.New("timestampMs must be positive")
	}
	return nil
}

func (s *server) voiceEvent(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Voice == nil || s.cfg.VoiceToken == "" {
		writeError(w, http.StatusServiceUnavailable, "voice events disabled")
		return
	}
	var req voiceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !tokenEqual(req.SourceToken, s.cfg.VoiceToken) {
		writeError(w, http.StatusUnauthorized, "invalid source token")
		return
	}
	err := s.cfg.Voice.VoiceEvent(req.InstanceID, req.UserID, req.Event, req.TimestampMs)
	switch {
	case errors.Is(err, puzzle.ErrUnknownInstance), errors.Is(err, puzzle.ErrNotJoined):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
	}
}

func (s *server) telemetry(w http.ResponseWriter, r *http.Request) {
	var ev TelemetryEvent
	if !decode(w, r, &ev) {
		return
	}
	if ev.InstanceID == "" || ev.Event == "" {
		writeError(w, http.StatusBadRequest, "instanceId and event are required")
		return
	}
	ev.ReceivedAt = s.cfg.Clock().UTC()
	if s.cfg.Telemetry != nil {
		if err := s.cfg.Telemetry.SaveTelemetry(ev); err != nil {
			s.logger.Error("saving telemetry failed", "err", err)
			writeError(w, http.StatusInternalServerError, "telemetry not stored")
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		if !tokenEqual(r.Header.Get("X-Admin-Token"), s.cfg.AdminToken) {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type catalogCounts struct {
	Archetypes int `json:"archetypes"`
	Modules    int `json:"modules"`
	Rules      int `json:"rules"`
}

func countsOf(cat *config.Catalog) catalogCounts {
	return catalogCounts{Archetypes: len(cat.Archetypes), Modules: len(cat.Modules), Rules: len(cat.Rules)}
}

func (s *server) reloadConfig(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog configured")
		return
	}
	cat, err := s.cfg.Catalog.Reload()
	if err != nil {
		s.logger.Warn("config reload failed, keeping previous catalog", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"kept":  countsOf(cat),
		})
		return
	}
	s.logger.Info("config reloaded", "archetypes", len(cat.Archetypes), "modules", len(cat.Modules))
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": true, "counts": countsOf(cat)})
}

func (s *server) simulate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog configured")
		return
	}
	var opts bomb.SimulateOptions
	if !decode(w, r, &opts) {
		return
	}
	report, err := bomb.Simulate(opts, s.cfg.Catalog.Catalog())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type connectionCounts struct {
	Total   int            `json:"total"`
	ByCodec map[string]int `json:"byCodec"`
}

func (s *server) status(w http.ResponseWriter, _ *http.Request) {
	conns := connectionCounts{ByCodec: map[string]int{}}
	if s.cfg.Sessions != nil {
		conns = connectionCounts{Total: s.cfg.Sessions.Count(), ByCodec: s.cfg.Sessions.CodecCounts()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":       statuses(s.cfg.Rogue),
		"instances":   statuses(s.cfg.Puzzle),
		"connections": conns,
	})
}

// statusRecorder keeps the response status for logging and still lets the
// WebSocket upgrader hijack the connection.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}
