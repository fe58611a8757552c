package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

var testEpoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// stubConfigs implements service.ConfigManager with in-memory economies
type stubConfigs struct {
	economies map[string]*engine.EconomyConfig
}

func newStubConfigs() *stubConfigs {
	fast := engine.DefaultEconomyConfig()
	fast.Name = "fast"
	fast.Click.Base = 10
	return &stubConfigs{economies: map[string]*engine.EconomyConfig{
		"default": engine.DefaultEconomyConfig(),
		"fast":    fast,
	}}
}

func (s *stubConfigs) LoadConfig(name string) (*engine.EconomyConfig, error) {
	config, ok := s.economies[name]
	if !ok {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (s *stubConfigs) ListConfigs() ([]*service.ConfigInfo, error) { return nil, nil }

func (s *stubConfigs) GetDefault() *engine.EconomyConfig { return s.economies["default"] }

func (s *stubConfigs) SaveConfig(name string, config *engine.EconomyConfig) error {
	s.economies[name] = config
	return nil
}

func newTestManager(opts ...Option) (*Manager, *engine.ManualClock) {
	clock := engine.NewManualClock(testEpoch)
	opts = append([]Option{WithClock(clock), WithRandFactory(func(string) engine.Rand { return engine.NewRand(1) })}, opts...)
	return NewManager(newStubConfigs(), opts...), clock
}

func TestManager_Create(t *testing.T) {
	manager, _ := newTestManager()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("Neo", "the one", "")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "neo" {
			t.Errorf("Expected normalized ID neo, got %s", session.ID)
		}
		if session.DisplayName != "THE ONE" {
			t.Errorf("Expected display name THE ONE, got %s", session.DisplayName)
		}
		if !session.CreatedAt.Equal(testEpoch) {
			t.Errorf("Expected creation at epoch, got %v", session.CreatedAt)
		}
	})

	t.Run("named economy", func(t *testing.T) {
		session, err := manager.Create("trinity", "", "fast")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		click, _ := session.Engine.Click()
		if click.Yield != 10 {
			t.Errorf("Expected fast economy yield 10, got %d", click.Yield)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		if _, err := manager.Create("NEO", "", ""); !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"", "   ", "has space", "../etc", "name.json"} {
			if _, err := manager.Create(id, "", ""); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Expected ErrInvalidSessionID for %q, got %v", id, err)
			}
		}
	})

	t.Run("unknown economy", func(t *testing.T) {
		if _, err := manager.Create("morpheus", "", "nope"); err == nil {
			t.Error("Expected error for unknown economy")
		}
		if manager.Count() != 2 {
			t.Errorf("Expected failed create to leave 2 worlds, got %d", manager.Count())
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager, _ := newTestManager()

	first, err := manager.GetOrCreate("p1", "neo", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	first.Engine.Click()

	second, err := manager.GetOrCreate("P1", "other", "fast")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if second != first {
		t.Error("Expected the same world on second call")
	}
	if second.Engine.View().Player.Points != 1 {
		t.Error("Expected state to be kept")
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if !errors.Is(ErrSessionNotFound, service.ErrPlayerNotFound) {
		t.Error("Expected ErrSessionNotFound to match service.ErrPlayerNotFound")
	}
}

func TestManager_Delete(t *testing.T) {
	manager, _ := newTestManager()
	session, _ := manager.Create("p1", "", "")

	if err := manager.Delete("P1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := session.Engine.Click(); !errors.Is(err, engine.ErrClosed) {
		t.Errorf("Expected deleted world to be closed, got %v", err)
	}
	if err := manager.Delete("p1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := manager.DeleteFromMemory("p1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager, _ := newTestManager()
	for _, id := range []string{"a", "b", "c"} {
		manager.Create(id, "", "")
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	ids := map[string]bool{}
	for _, s := range sessions {
		ids[s.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !ids[id] {
			t.Errorf("Expected %s in list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager, clock := newTestManager()
	stale, _ := manager.Create("stale", "", "")
	manager.Create("fresh", "", "")

	clock.Advance(2 * time.Hour)
	manager.UpdateLastAccessed("fresh")

	if removed := manager.CleanupExpiredSessions(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if _, err := manager.Get("stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected stale world gone, got %v", err)
	}
	if _, err := stale.Engine.Click(); !errors.Is(err, engine.ErrClosed) {
		t.Errorf("Expected stale world closed, got %v", err)
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh world kept, got %v", err)
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager, clock := newTestManager()
	session, _ := manager.Create("p1", "", "")

	clock.Advance(time.Minute)
	if err := manager.UpdateLastAccessed("p1"); err != nil {
		t.Fatalf("UpdateLastAccessed failed: %v", err)
	}
	if !session.LastAccessedAt.Equal(testEpoch.Add(time.Minute)) {
		t.Errorf("Expected last access at +1m, got %v", session.LastAccessedAt)
	}
	if err := manager.UpdateLastAccessed("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Scheduler(t *testing.T) {
	clock := engine.NewManualClock(testEpoch)
	sched := engine.NewManualScheduler(clock)

	var mu sync.Mutex
	reports := map[string]int{}
	manager := NewManager(newStubConfigs(),
		WithClock(clock),
		WithScheduler(sched),
		WithRandFactory(func(string) engine.Rand { return engine.NewRand(1) }),
		WithTickListener(func(playerID string, report engine.TickReport) {
			mu.Lock()
			defer mu.Unlock()
			reports[playerID]++
		}),
	)

	manager.Create("p1", "", "")
	if sched.Jobs() != 1 {
		t.Fatalf("Expected 1 scheduled world, got %d", sched.Jobs())
	}

	sched.Step(3)
	if reports["p1"] != 3 {
		t.Errorf("Expected 3 tick reports, got %d", reports["p1"])
	}

	manager.Delete("p1")
	if sched.Jobs() != 0 {
		t.Errorf("Expected deleted world to stop ticking, got %d jobs", sched.Jobs())
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager, _ := newTestManager()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.GetOrCreate("shared", "", "")
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			session.Engine.Click()
		}()
	}
	wg.Wait()

	if manager.Count() != 1 {
		t.Errorf("Expected 1 world, got %d", manager.Count())
	}
	session, _ := manager.Get("shared")
	if points := session.Engine.View().Player.Points; points != 20 {
		t.Errorf("Expected 20 points, got %d", points)
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager, _ := newTestManager()
	a, _ := manager.Create("a", "", "")
	b, _ := manager.Create("b", "", "")

	a.Engine.Click()
	a.Engine.Click()
	b.Engine.Click()

	if a.Engine.View().Player.Points != 2 || b.Engine.View().Player.Points != 1 {
		t.Error("Expected worlds to be independent")
	}
}
