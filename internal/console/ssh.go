package console

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
)

// SSHConfig holds configuration for the console SSH server.
type SSHConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key is generated at ~/.defuse/host_key.
	HostKeyPath string

	// Password, when set, must be given by every operator.
	Password string

	IdleTimeout time.Duration
	Logger      *log.Logger
}

// SSHServer serves the console over SSH with Wish.
type SSHServer struct {
	config SSHConfig
	source Source
	server *ssh.Server
	logger *log.Logger
}

// NewSSHServer creates a console SSH server reading from src.
func NewSSHServer(cfg SSHConfig, src Source) (*SSHServer, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	srv := &SSHServer{config: cfg, source: src, logger: cfg.Logger}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".defuse", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}
	if cfg.Password != "" {
		opts = append(opts, wish.WithPasswordAuth(srv.checkPassword))
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}
	srv.server = server
	return srv, nil
}

func (s *SSHServer) checkPassword(ctx ssh.Context, password string) bool {
	ok := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.Password)) == 1
	if !ok {
		s.logger.Warn("rejected operator", "user", ctx.User(), "remote", ctx.RemoteAddr().String())
	}
	return ok
}

// teaHandler creates a console program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}
	return NewModel(s.source, sess.User(), pty.Window.Width, pty.Window.Height), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("operator connected", "user", sess.User(), "remote", sess.RemoteAddr().String())
		next(sess)
		s.logger.Info("operator disconnected", "user", sess.User(), "remote", sess.RemoteAddr().String())
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH console", "address", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
