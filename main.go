// Command idleclicker serves the idle clicker economy.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (and an optional .env file); flags
// override them. Ngrok tunneling is available for external access during
// development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/idleclicker/api"
	"github.com/wricardo/mcp-training/idleclicker/game/config"
	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/leaderboard"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
	"github.com/wricardo/mcp-training/idleclicker/game/session"
	"github.com/wricardo/mcp-training/idleclicker/transport/mcp"
	"github.com/wricardo/mcp-training/idleclicker/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Idle Clicker Server"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Settings is the process configuration read from the environment
type Settings struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	Host      string `env:"HOST" envDefault:"localhost"`
	ConfigDir string `env:"CONFIG_DIR" envDefault:"configs"`
	Economy   string `env:"ECONOMY"`
	Debug     bool   `env:"DEBUG"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Storage     string `env:"STORAGE" envDefault:"file"`
	SessionsDir string `env:"SESSIONS_DIR" envDefault:"sessions"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"idleclicker.db"`

	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"idle"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	SyncInterval    time.Duration `env:"SYNC_INTERVAL" envDefault:"5s"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// Addr returns the HTTP listen address
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// loadSettings reads Settings from the environment
func loadSettings() (Settings, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return settings, nil
}

// applyFlags overrides settings with flags given on the command line
func applyFlags(settings *Settings, cmd *cli.Command) {
	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("config-dir") {
		settings.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("economy") {
		settings.Economy = cmd.String("economy")
	}
	if cmd.IsSet("storage") {
		settings.Storage = cmd.String("storage")
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("ngrok") {
		settings.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		settings.NgrokAuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.NgrokDomain = cmd.String("ngrok-domain")
	}
}

// newLogger builds the process logger
func newLogger(settings Settings, out io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: settings.Debug}
	if strings.EqualFold(settings.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// services holds everything a running server needs
type services struct {
	settings    Settings
	logger      *slog.Logger
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	hub         *websocket.Hub
	closers     []func() error
}

// Close saves every world and releases storage
func (s *services) Close() error {
	var errs []error
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Running without a subcommand starts the HTTP server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "idleclicker",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing economy configurations"},
			&cli.StringFlag{Name: "economy", Usage: "Default economy for new players"},
			&cli.StringFlag{Name: "storage", Value: StorageFile, Usage: "World storage: file or sqlite"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withServices(ctx, cmd, runHTTPServer)
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withServices(ctx, cmd, runHTTPServer)
		},
	}
}

// setup resolves settings and installs the process logger
func setup(cmd *cli.Command) (Settings, *slog.Logger, error) {
	settings, err := loadSettings()
	if err != nil {
		return Settings{}, nil, err
	}
	applyFlags(&settings, cmd.Root())

	// stdout carries the MCP protocol in stdio mode
	logger := newLogger(settings, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("starting", "app", AppName, "version", Version, "mode", cmd.Name)
	return settings, logger, nil
}

// withServices builds services, runs fn and saves on the way out
func withServices(ctx context.Context, cmd *cli.Command, fn func(context.Context, *services) error) error {
	settings, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	svc, err := initializeServices(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("failed to close services", "error", err)
		}
		logger.Info("server stopped")
	}()

	return fn(ctx, svc)
}

// initializeServices wires storage, config, leaderboard, sessions and the game service
func initializeServices(ctx context.Context, settings Settings, logger *slog.Logger) (*services, error) {
	svc := &services{settings: settings, logger: logger}

	configManager, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if settings.Economy != "" {
		if err := configManager.SetDefault(settings.Economy); err != nil {
			return nil, fmt.Errorf("failed to select economy %q: %w", settings.Economy, err)
		}
	}

	switch settings.Storage {
	case StorageFile, "":
		persistence, err := session.NewFilePersistence(settings.SessionsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		svc.persistence = persistence
	case StorageSQLite:
		persistence, err := session.OpenSQLite(settings.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		svc.persistence = persistence
		svc.closers = append(svc.closers, persistence.Close)
	default:
		return nil, fmt.Errorf("unknown storage %q", settings.Storage)
	}

	board := newLeaderboard(ctx, settings, logger, svc)

	svc.hub = websocket.NewHub(logger.With("component", "websocket"))
	svc.sessions = session.NewManager(configManager,
		session.WithPersistence(svc.persistence),
		session.WithScheduler(engine.TickerScheduler{}),
		session.WithLogger(logger.With("component", "sessions")),
		session.WithTickListener(func(playerID string, report engine.TickReport) {
			svc.hub.BroadcastEvent(playerID, websocket.EventTick, report)
		}),
	)

	if err := svc.sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted worlds", "error", err)
	}

	svc.game = service.NewGameService(svc.sessions, configManager,
		service.WithLeaderboard(board),
		service.WithServiceLogger(logger.With("component", "service")),
	)
	return svc, nil
}

// newLeaderboard uses Redis when configured and reachable, otherwise memory
func newLeaderboard(ctx context.Context, settings Settings, logger *slog.Logger, svc *services) service.Leaderboard {
	if settings.RedisAddr == "" {
		return leaderboard.NewMemory()
	}

	client := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory leaderboard", "addr", settings.RedisAddr, "error", err)
		client.Close()
		return leaderboard.NewMemory()
	}

	svc.closers = append(svc.closers, client.Close)
	logger.Info("using redis leaderboard", "addr", settings.RedisAddr)
	return leaderboard.NewRedis(client, settings.RedisPrefix)
}

// newMux mounts the API and the /mcp endpoint
func newMux(svc *services, baseURL string) http.Handler {
	apiServer := api.NewServer(svc.game, svc.hub, api.WithLogger(svc.logger.With("component", "api")))
	mcpClient := mcp.NewClient(baseURL)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mux
}

// runHTTPServer serves the API, WebSocket and /mcp until ctx is done.
// With ngrok enabled it also serves through a public tunnel.
func runHTTPServer(ctx context.Context, svc *services) error {
	settings := svc.settings
	addr := settings.Addr()
	handler := newMux(svc, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		svc.logger.Info("HTTP server listening",
			"addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?player=<player_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		svc.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sessionCleanupRoutine(ctx, svc.sessions, settings.CleanupInterval, settings.SessionTTL, svc.logger)
		return nil
	})

	g.Go(func() error {
		storageSyncRoutine(ctx, svc.sessions, svc.persistence, settings.SyncInterval, svc.logger)
		return nil
	})

	if settings.NgrokEnabled {
		g.Go(func() error {
			runNgrok(ctx, settings, handler, svc.logger)
			return nil
		})
	}

	return g.Wait()
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and never stop the local server.
func runNgrok(ctx context.Context, settings Settings, handler http.Handler, logger *slog.Logger) {
	authToken := settings.NgrokAuthToken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", settings.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?player=<player_id>",
		"mcp", ngrokURL+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically unloads worlds that have not been
// accessed within ttl. They reload from storage on next access.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration, logger *slog.Logger) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("unloaded idle worlds", "count", removed)
			}
		}
	}
}

// storageSyncRoutine drops worlds from memory whose stored record was
// removed out of band.
func storageSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, logger *slog.Logger) {
	if persistence == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, persistence, logger)
		}
	}
}

// pruneOrphans removes in-memory worlds with no stored record
func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence, logger *slog.Logger) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			logger.Info("pruned world from memory (record deleted)", "player_id", s.ID)
		}
	}
	return pruned
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it opens the worlds itself and serves
// an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	externalURL := "http://" + settings.Addr()
	logger.Info("checking for external API server", "url", externalURL)
	if apiAvailable(externalURL) {
		logger.Info("external API server found, using it for MCP", "url", externalURL)
		return serveStdio(externalURL, logger)
	}

	svc, err := initializeServices(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("failed to close services", "error", err)
		}
	}()
	return runStdioMCPWithInternalServer(ctx, svc)
}

// apiAvailable reports whether an API server answers at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer serves the API on a random loopback port and
// points the MCP stdio server at it.
func runStdioMCPWithInternalServer(ctx context.Context, svc *services) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()
	svc.logger.Info("starting internal HTTP server for MCP stdio", "url", baseURL)

	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, svc.settings.CleanupInterval, svc.settings.SessionTTL, svc.logger)

	httpServer := &http.Server{Handler: newMux(svc, baseURL)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svc.logger.Error("internal HTTP server error", "error", err)
		}
	}()
	defer httpServer.Close()

	return serveStdio(baseURL, svc.logger)
}

func serveStdio(baseURL string, logger *slog.Logger) error {
	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
