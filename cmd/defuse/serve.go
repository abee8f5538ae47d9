package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/defuse-exe/internal/auth"
	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/console"
	"github.com/vovakirdan/defuse-exe/internal/httpapi"
	"github.com/vovakirdan/defuse-exe/internal/multiplayer"
	"github.com/vovakirdan/defuse-exe/internal/puzzle"
	"github.com/vovakirdan/defuse-exe/internal/roguelite"
	"github.com/vovakirdan/defuse-exe/internal/storage"
	"github.com/vovakirdan/defuse-exe/internal/transport/ws"
)

var (
	flagServerConfig string
	flagRogueConfig  string
	flagAddr         string
	flagSSHAddr      string
	flagHostKey      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long: `Start the HTTP server that hosts both game modes.

Endpoints:
  /ws, /ws/rogue     roguelite rooms (JSON, or ?codec=msgpack)
  /ws/puzzle         puzzle instances
  /health            liveness and room counts
  /api/...           token exchange, voice events, telemetry, admin

When an SSH address is configured the operator console is served over SSH
as well. Secrets can be set with DEFUSE_ADMIN_TOKEN, DEFUSE_VOICE_TOKEN and
DEFUSE_JWT_SECRET.

Examples:
  defuse serve
  defuse serve --addr :9000 --ssh :23234
  defuse serve --server-config ./configs/server.yaml --db ./defuse.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServerConfig, "server-config", "", "Path to server.yaml")
	serveCmd.Flags().StringVar(&flagRogueConfig, "rogue-config", "", "Path to rogue.yaml")
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides server.yaml)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH console address (overrides server.yaml)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "SSH host key path (overrides server.yaml)")
}

func loadServerConfig(cmd *cobra.Command) (config.ServerConfig, error) {
	cfg, err := config.LoadServer(flagServerConfig)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = flagAddr
	}
	if cmd.Flags().Changed("ssh") {
		cfg.SSHAddr = flagSSHAddr
	}
	if cmd.Flags().Changed("host-key") {
		cfg.HostKeyPath = flagHostKey
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := loadServerConfig(cmd)
	if err != nil {
		return err
	}
	rogueCfg, err := config.LoadRogue(flagRogueConfig)
	if err != nil {
		return err
	}
	catalog, err := config.NewCatalogStore(flagConfigDir)
	if err != nil {
		return err
	}
	cat := catalog.Catalog()
	logger.Info("catalog loaded", "archetypes", len(cat.Archetypes), "modules", len(cat.Modules), "rules", len(cat.Rules))

	store, err := storage.Open(dbPath(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	var issuer *auth.Issuer
	if cfg.Auth.JWTSecret != "" {
		if issuer, err = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
			return err
		}
	}
	if cfg.Auth.RequireToken && issuer == nil {
		return errors.New("auth.require_token needs auth.jwt_secret")
	}

	rogue := roguelite.NewService(roguelite.ServiceConfig{
		Logger: logger.WithPrefix("rogue"),
		Rogue:  rogueCfg,
		Saver:  store,
	})
	puzzleCfg := puzzle.ServiceConfig{
		Logger:       logger.WithPrefix("puzzle"),
		Catalog:      catalog,
		Saver:        store,
		RequireToken: cfg.Auth.RequireToken,
		Puzzle:       cfg.Puzzle,
	}
	if issuer != nil {
		puzzleCfg.Auth = issuer
	}
	puzzles := puzzle.NewService(puzzleCfg)

	wsLogger := logger.WithPrefix("ws")
	sessions := multiplayer.NewSessionRegistry()
	ids := multiplayer.NewIDSource("s-")
	rogueWS := ws.NewHandler(rogue, ws.Config{Logger: wsLogger, IDs: ids, Sessions: sessions, AllowedOrigins: cfg.AllowedOrigins})
	puzzleWS := ws.NewHandler(puzzles, ws.Config{Logger: wsLogger, IDs: ids, Sessions: sessions, AllowedOrigins: cfg.AllowedOrigins})

	apiCfg := httpapi.Config{
		Logger:     logger.WithPrefix("http"),
		Rogue:      rogue,
		Puzzle:     puzzles,
		Voice:      puzzles,
		Sessions:   sessions,
		Catalog:    catalog,
		Telemetry:  store,
		DevMode:    cfg.Auth.DevMode,
		AdminToken: cfg.AdminToken,
		VoiceToken: cfg.VoiceSourceToken,
		RogueWS:    rogueWS,
		PuzzleWS:   puzzleWS,
	}
	if issuer != nil {
		apiCfg.Issuer = issuer
	}
	if cfg.AdminToken == "" {
		logger.Warn("admin token not set, admin endpoints disabled")
	}
	if cfg.VoiceSourceToken == "" {
		logger.Warn("voice source token not set, voice events disabled")
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(apiCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sshServer *console.SSHServer
	if cfg.SSHAddr != "" {
		sshServer, err = console.NewSSHServer(console.SSHConfig{
			Address:     cfg.SSHAddr,
			HostKeyPath: cfg.HostKeyPath,
			Password:    cfg.AdminToken,
			Logger:      logger.WithPrefix("ssh"),
		}, console.Source{Store: store, Listers: []console.Lister{rogue, puzzles}})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if sshServer != nil {
		g.Go(func() error {
			if err := sshServer.ListenAndServe(); err != nil {
				return fmt.Errorf("ssh server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		shutdown(logger, cfg.ShutdownTimeout, httpServer, sshServer, rogueWS, puzzleWS)
		rogue.Shutdown()
		puzzles.Shutdown()
		return nil
	})

	return g.Wait()
}

// shutdown closes live WebSocket sessions before the listeners so the
// services see every Close before their actors stop.
func shutdown(logger *log.Logger, timeout time.Duration, httpServer *http.Server, sshServer *console.SSHServer, handlers ...*ws.Handler) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, h := range handlers {
		if err := h.Shutdown(ctx); err != nil {
			logger.Warn("closing websocket sessions", "err", err)
		}
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if sshServer != nil {
		if err := sshServer.Shutdown(ctx); err != nil {
			logger.Warn("ssh shutdown", "err", err)
		}
	}
}
