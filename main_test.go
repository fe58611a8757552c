package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	dir := t.TempDir()
	return Settings{
		Host:            "127.0.0.1",
		Port:            8080,
		ConfigDir:       dir,
		Storage:         StorageFile,
		SessionsDir:     filepath.Join(dir, "sessions"),
		SQLitePath:      filepath.Join(dir, "idle.db"),
		SessionTTL:      time.Hour,
		CleanupInterval: time.Hour,
		SyncInterval:    time.Second,
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedAppName := "Idle Clicker Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("NGROK_ENABLED", "true")

	settings, err := loadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Storage != StorageSQLite {
		t.Errorf("Expected sqlite storage, got %s", settings.Storage)
	}
	if settings.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m session TTL, got %s", settings.SessionTTL)
	}
	if !settings.NgrokEnabled {
		t.Error("Expected ngrok to be enabled")
	}
	if settings.RedisPrefix != "idle" {
		t.Errorf("Expected default redis prefix idle, got %s", settings.RedisPrefix)
	}
	if settings.SyncInterval != 5*time.Second {
		t.Errorf("Expected default sync interval 5s, got %s", settings.SyncInterval)
	}
}

func TestLoadSettings_InvalidDuration(t *testing.T) {
	t.Setenv("CLEANUP_INTERVAL", "soon")

	if _, err := loadSettings(); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestSettingsAddr(t *testing.T) {
	settings := Settings{Host: "0.0.0.0", Port: 9000}
	if settings.Addr() != "0.0.0.0:9000" {
		t.Errorf("Expected 0.0.0.0:9000, got %s", settings.Addr())
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Settings{LogFormat: "JSON"}, &buf)
	logger.Info("hello", "player_id", "alice")
	logger.Debug("hidden")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("Expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["player_id"] != "alice" {
		t.Errorf("Expected player_id alice, got %v", line["player_id"])
	}

	buf.Reset()
	debugLogger := newLogger(Settings{LogFormat: "text", Debug: true}, &buf)
	debugLogger.Debug("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Errorf("Expected debug output, got %q", buf.String())
	}
}

func TestInitializeServices(t *testing.T) {
	for _, storage := range []string{StorageFile, StorageSQLite} {
		t.Run(storage, func(t *testing.T) {
			settings := testSettings(t)
			settings.Storage = storage
			ctx := context.Background()

			svc, err := initializeServices(ctx, settings, discardLogger())
			if err != nil {
				t.Fatalf("Failed to initialize services: %v", err)
			}
			if svc.game == nil || svc.hub == nil || svc.sessions == nil {
				t.Fatal("Expected services to be initialized")
			}

			if _, err := svc.game.CreatePlayer(ctx, service.CreatePlayerRequest{ID: "alice", DisplayName: "Alice"}); err != nil {
				t.Fatalf("Failed to create player: %v", err)
			}
			if err := svc.Close(); err != nil {
				t.Fatalf("Failed to close services: %v", err)
			}

			// A fresh process sees the saved world
			reopened, err := initializeServices(ctx, settings, discardLogger())
			if err != nil {
				t.Fatalf("Failed to reinitialize services: %v", err)
			}
			defer reopened.Close()

			if reopened.sessions.Count() != 1 {
				t.Errorf("Expected 1 loaded world, got %d", reopened.sessions.Count())
			}
			info, err := reopened.game.GetPlayer(ctx, "alice")
			if err != nil {
				t.Fatalf("Failed to get player: %v", err)
			}
			if info.DisplayName != "Alice" {
				t.Errorf("Expected display name Alice, got %s", info.DisplayName)
			}
		})
	}
}

func TestInitializeServices_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"missing config dir", func(s *Settings) { s.ConfigDir = "/non/existent/path" }},
		{"unknown storage", func(s *Settings) { s.Storage = "tape" }},
		{"unknown economy", func(s *Settings) { s.Economy = "nonexistent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(t)
			tt.modify(&settings)

			if _, err := initializeServices(context.Background(), settings, discardLogger()); err == nil {
				t.Error("Expected initialization error")
			}
		})
	}
}

func TestInitializeServices_RedisFallback(t *testing.T) {
	settings := testSettings(t)
	settings.RedisAddr = "127.0.0.1:1"

	svc, err := initializeServices(context.Background(), settings, discardLogger())
	if err != nil {
		t.Fatalf("Expected fallback to memory leaderboard, got %v", err)
	}
	defer svc.Close()

	entries, err := svc.game.GlobalLeaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to read leaderboard: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty leaderboard, got %d entries", len(entries))
	}
}

func TestInitializeServices_Economy(t *testing.T) {
	settings := testSettings(t)
	if err := os.WriteFile(filepath.Join(settings.ConfigDir, "hardcore.toml"), []byte("name = \"hardcore\"\n\n[click]\nbase = 7\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	settings.Economy = "hardcore"

	svc, err := initializeServices(context.Background(), settings, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.game.CreatePlayer(ctx, service.CreatePlayerRequest{ID: "bob"}); err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	result, err := svc.game.Click(ctx, "bob")
	if err != nil {
		t.Fatalf("Failed to click: %v", err)
	}
	if !result.Success || result.State == nil {
		t.Fatalf("Expected successful click with state, got %+v", result)
	}
	if result.State.Player.Points != 7 {
		t.Errorf("Expected 7 points from the hardcore click, got %d", result.State.Player.Points)
	}
}

func TestPruneOrphans(t *testing.T) {
	settings := testSettings(t)
	ctx := context.Background()

	svc, err := initializeServices(ctx, settings, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	for _, id := range []string{"alice", "bob"} {
		if _, err := svc.game.CreatePlayer(ctx, service.CreatePlayerRequest{ID: id}); err != nil {
			t.Fatalf("Failed to create player %s: %v", id, err)
		}
	}

	if pruned := pruneOrphans(svc.sessions, svc.persistence, discardLogger()); pruned != 0 {
		t.Errorf("Expected nothing pruned, got %d", pruned)
	}

	if err := os.Remove(filepath.Join(settings.SessionsDir, "bob.json")); err != nil {
		t.Fatalf("Failed to remove world file: %v", err)
	}

	if pruned := pruneOrphans(svc.sessions, svc.persistence, discardLogger()); pruned != 1 {
		t.Errorf("Expected 1 pruned world, got %d", pruned)
	}
	if svc.sessions.Count() != 1 {
		t.Errorf("Expected 1 world in memory, got %d", svc.sessions.Count())
	}
}

func TestNewMux(t *testing.T) {
	settings := testSettings(t)
	svc, err := initializeServices(context.Background(), settings, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	handler := newMux(svc, "http://"+settings.Addr())

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})

	t.Run("mcp tools list", func(t *testing.T) {
		body := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("deploy_boost")) {
			t.Errorf("Expected deploy_boost tool in response, got %s", w.Body.String())
		}
	})
}

func TestSessionCleanupRoutine_StopsOnCancel(t *testing.T) {
	settings := testSettings(t)
	svc, err := initializeServices(context.Background(), settings, discardLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, svc.sessions, 10*time.Millisecond, time.Hour, discardLogger())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cleanup routine did not stop after cancel")
	}
}
