package engine

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

var testEpoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// scriptedRand replays fixed draws. Once exhausted, Float64 returns 0.999 so
// no chance-based event fires, and Intn returns 0.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.999
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *ManualClock, *scriptedRand) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	rnd := &scriptedRand{}
	all := append([]Option{WithClock(clock), WithRand(rnd)}, opts...)
	eng, err := NewEngine(DefaultEconomyConfig(), Identity{ID: "p1", DisplayName: "neo"}, all...)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng, clock, rnd
}

// newEngineWithState starts an engine from a hand-built state
func newEngineWithState(t *testing.T, state State, opts ...Option) (*Engine, *ManualClock, *scriptedRand) {
	t.Helper()
	raw, err := json.Marshal(Snapshot{Version: SnapshotVersion, State: state})
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}
	return newTestEngine(t, append([]Option{WithSnapshot(raw)}, opts...)...)
}

func withPoints(points int64) State {
	state := NewState(DefaultEconomyConfig(), Identity{ID: "p1", DisplayName: "neo"})
	state.Player.Points = points
	return *state
}

func TestNewEngine(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	view := eng.View()
	if view.Player.DisplayName != "NEO" {
		t.Errorf("Expected display name NEO, got %q", view.Player.DisplayName)
	}
	if view.Player.Points != 0 || view.Player.Prestige != 0 {
		t.Errorf("Expected empty balances, got %+v", view.Player.Player)
	}
	if view.Player.Rank.Name != "Novice" {
		t.Errorf("Expected Novice rank, got %s", view.Player.Rank.Name)
	}
	if len(view.Quests) != 4 {
		t.Errorf("Expected 4 default quests, got %d", len(view.Quests))
	}
	if view.Wager.Phase != WagerIdle {
		t.Errorf("Expected idle wager, got %s", view.Wager.Phase)
	}
}

func TestNewEngine_Invalid(t *testing.T) {
	if _, err := NewEngine(DefaultEconomyConfig(), Identity{}); err == nil {
		t.Error("Expected error for empty identity")
	}
	cfg := DefaultEconomyConfig()
	cfg.Tiers = nil
	if _, err := NewEngine(cfg, Identity{ID: "p1"}); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestEngine_Click(t *testing.T) {
	t.Run("base yield", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		res, err := eng.Click()
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		if res.Yield != 1 || res.Points != 1 || res.Critical {
			t.Errorf("Expected yield 1 without crit, got %+v", res)
		}
		if clicks := eng.View().Player.LifetimeClicks; clicks != 1 {
			t.Errorf("Expected 1 lifetime click, got %d", clicks)
		}
	})

	t.Run("prestige and radium", func(t *testing.T) {
		state := withPoints(1000)
		state.Player.Prestige = 2
		eng, _, _ := newEngineWithState(t, state)

		if _, err := eng.DeployBoost(BoostRadium); err != nil {
			t.Fatalf("Deploy failed: %v", err)
		}
		res, err := eng.Click()
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		// (1 + 2*2) * 2
		if res.Yield != 10 {
			t.Errorf("Expected yield 10, got %d", res.Yield)
		}
	})

	t.Run("cobalt crit", func(t *testing.T) {
		eng, _, rnd := newEngineWithState(t, withPoints(3500))
		if _, err := eng.DeployBoost(BoostCobalt); err != nil {
			t.Fatalf("Deploy failed: %v", err)
		}

		rnd.floats = []float64{0.10}
		res, _ := eng.Click()
		if !res.Critical || res.Yield != 5 {
			t.Errorf("Expected critical yield 5, got %+v", res)
		}

		rnd.floats = []float64{0.20}
		res, _ = eng.Click()
		if res.Critical || res.Yield != 1 {
			t.Errorf("Expected plain yield 1, got %+v", res)
		}
	})

	t.Run("advances clicks quest", func(t *testing.T) {
		eng, _, _ := newTestEngine(t)
		for i := 0; i < 3; i++ {
			eng.Click()
		}
		if q := findQuest(eng.View().Quests, "q1"); q.Current != 3 {
			t.Errorf("Expected q1 progress 3, got %d", q.Current)
		}
	})
}

func TestEngine_RankExcludesVault(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(200))

	if got := eng.View().Player.Rank.Name; got != "Classic" {
		t.Fatalf("Expected Classic at 200 points, got %s", got)
	}
	if err := eng.VaultDeposit(150); err != nil {
		t.Fatalf("VaultDeposit failed: %v", err)
	}

	view := eng.View()
	if view.Player.Points != 50 || view.Player.Vault != 150 {
		t.Errorf("Expected 50/150, got %d/%d", view.Player.Points, view.Player.Vault)
	}
	if view.Player.Rank.Name != "Novice" {
		t.Errorf("Expected vault to be excluded from rank, got %s", view.Player.Rank.Name)
	}

	if err := eng.VaultWithdraw(200); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if err := eng.VaultWithdraw(150); err != nil {
		t.Fatalf("VaultWithdraw failed: %v", err)
	}
	if got := eng.View().Player.Points; got != 200 {
		t.Errorf("Expected 200 points after withdraw, got %d", got)
	}
}

func TestEngine_DeployBoost(t *testing.T) {
	t.Run("insufficient funds leaves state unchanged", func(t *testing.T) {
		eng, _, _ := newEngineWithState(t, withPoints(100))
		rev := eng.Revision()
		if _, err := eng.DeployBoost(BoostBarium); !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("Expected ErrInsufficientFunds, got %v", err)
		}
		view := eng.View()
		if view.Player.Points != 100 || len(view.Boosts) != 0 || eng.Revision() != rev {
			t.Errorf("Expected unchanged state, got points=%d boosts=%d", view.Player.Points, len(view.Boosts))
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		eng, _, _ := newEngineWithState(t, withPoints(100000))
		if _, err := eng.DeployBoost("unobtainium"); !errors.Is(err, ErrUnknownBoost) {
			t.Errorf("Expected ErrUnknownBoost, got %v", err)
		}
	})

	t.Run("debits and advances lab quest", func(t *testing.T) {
		eng, _, _ := newEngineWithState(t, withPoints(1000))
		boost, err := eng.DeployBoost(BoostBarium)
		if err != nil {
			t.Fatalf("Deploy failed: %v", err)
		}
		if !boost.ExpiresAt.Equal(testEpoch.Add(time.Minute)) {
			t.Errorf("Expected expiry at +60s, got %v", boost.ExpiresAt)
		}
		view := eng.View()
		if view.Player.Points != 850 {
			t.Errorf("Expected 850 points, got %d", view.Player.Points)
		}
		if q := findQuest(view.Quests, "q4"); q.Current != 1 {
			t.Errorf("Expected lab quest progress 1, got %d", q.Current)
		}
	})
}

func TestEngine_PassiveIncome(t *testing.T) {
	eng, clock, _ := newEngineWithState(t, withPoints(10000))

	eng.DeployBoost(BoostBarium)
	eng.DeployBoost(BoostBarium)
	eng.DeployBoost(BoostPlutonium)
	base := eng.View().Player.Points

	if got := eng.View().Player.PassiveIncome; got != 20 {
		t.Errorf("Expected passive income 20 with duplicate barium counted once, got %d", got)
	}

	clock.Advance(time.Second)
	report := eng.Tick()
	if report.Passive != 20 {
		t.Errorf("Expected tick to pay 20, got %d", report.Passive)
	}
	if got := eng.View().Player.Points; got != base+20 {
		t.Errorf("Expected %d points, got %d", base+20, got)
	}

	clock.Advance(time.Minute)
	report = eng.Tick()
	if report.Expired != 3 || report.Passive != 0 {
		t.Errorf("Expected 3 expired and no income, got %+v", report)
	}
	if len(eng.View().Boosts) != 0 {
		t.Error("Expected expired boosts to be purged")
	}
}

func TestEngine_BannedPlayer(t *testing.T) {
	state := withPoints(10000)
	state.Privileged = true
	eng, clock, _ := newEngineWithState(t, state)
	eng.DeployBoost(BoostBarium)

	if err := eng.BanAlias(" neo "); err != nil {
		t.Fatalf("BanAlias failed: %v", err)
	}
	if !eng.View().Player.Banned {
		t.Fatal("Expected player to be banned by display name")
	}

	gated := map[string]func() error{
		"click":    func() error { _, err := eng.Click(); return err },
		"boost":    func() error { _, err := eng.DeployBoost(BoostRadium); return err },
		"wager":    func() error { _, err := eng.Wager(10); return err },
		"chat":     func() error { _, err := eng.PostGlobalMessage("hi"); return err },
		"create":   func() error { _, err := eng.CreateClan("ALPHA"); return err },
		"join":     func() error { _, err := eng.JoinClan("x"); return err },
		"deposit":  func() error { _, err := eng.DepositToClan("x", 10); return err },
		"withdraw": func() error { return eng.WithdrawFromClan("x", 10) },
		"recruit":  func() error { _, err := eng.BroadcastRecruitment("x"); return err },
		"ascend":   func() error { _, err := eng.Ascend(); return err },
	}
	for name, fn := range gated {
		if err := fn(); !errors.Is(err, ErrBanned) {
			t.Errorf("%s: expected ErrBanned, got %v", name, err)
		}
	}

	before := eng.View().Player.Points
	clock.Advance(time.Second)
	if report := eng.Tick(); report.Passive != 0 {
		t.Errorf("Expected no passive income while banned, got %d", report.Passive)
	}
	if eng.View().Player.Points != before {
		t.Error("Expected balance unchanged while banned")
	}

	if err := eng.VaultDeposit(100); err != nil {
		t.Errorf("Expected vault moves to stay open, got %v", err)
	}
	if _, err := eng.Redeem("COINS"); err != nil {
		t.Errorf("Expected redeem to stay open, got %v", err)
	}

	if err := eng.UnbanAlias("NEO"); err != nil {
		t.Fatalf("UnbanAlias failed: %v", err)
	}
	if _, err := eng.Click(); err != nil {
		t.Errorf("Expected click after unban, got %v", err)
	}
}

func TestEngine_BanByID(t *testing.T) {
	state := withPoints(0)
	state.BanList = map[string]bool{"P1": true}
	eng, _, _ := newEngineWithState(t, state)

	if _, err := eng.Click(); !errors.Is(err, ErrBanned) {
		t.Errorf("Expected ErrBanned for banned id, got %v", err)
	}
}

func TestEngine_Wager(t *testing.T) {
	tests := []struct {
		name    string
		roll    float64
		xenon   bool
		outcome WagerOutcome
		payout  int64
	}{
		{"jackpot", 0.01, false, OutcomeJackpot, 1000},
		{"success", 0.30, false, OutcomeSuccess, 200},
		{"boundary is success", 0.05, false, OutcomeSuccess, 200},
		{"loss", 0.70, false, OutcomeLoss, 0},
		{"boundary is loss", 0.45, false, OutcomeLoss, 0},
		{"shielded", 0.70, true, OutcomeShielded, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, rnd := newEngineWithState(t, withPoints(5000))
			if tt.xenon {
				eng.DeployBoost(BoostXenon)
			}
			before := eng.View().Player.Points

			rnd.floats = []float64{tt.roll}
			res, err := eng.Wager(100)
			if err != nil {
				t.Fatalf("Wager failed: %v", err)
			}
			if res.Outcome != tt.outcome || res.Payout != tt.payout {
				t.Errorf("Expected %s/%d, got %s/%d", tt.outcome, tt.payout, res.Outcome, res.Payout)
			}
			if got := eng.View().Player.Points; got != before-100+tt.payout {
				t.Errorf("Expected %d points, got %d", before-100+tt.payout, got)
			}
		})
	}
}

func TestEngine_WagerShieldConsumed(t *testing.T) {
	eng, _, rnd := newEngineWithState(t, withPoints(5000))
	eng.DeployBoost(BoostXenon)

	rnd.floats = []float64{0.9, 0.9}
	first, _ := eng.Wager(100)
	second, _ := eng.Wager(100)

	if first.Outcome != OutcomeShielded {
		t.Errorf("Expected first loss shielded, got %s", first.Outcome)
	}
	if second.Outcome != OutcomeLoss {
		t.Errorf("Expected shield to be consumed, got %s", second.Outcome)
	}
	if len(eng.View().Boosts) != 0 {
		t.Error("Expected xenon entry removed after use")
	}
}

func TestEngine_WagerShieldConsumesStackedEntries(t *testing.T) {
	eng, _, rnd := newEngineWithState(t, withPoints(5000))
	eng.DeployBoost(BoostXenon)
	eng.DeployBoost(BoostXenon)

	rnd.floats = []float64{0.9, 0.9}
	first, _ := eng.Wager(100)
	second, _ := eng.Wager(100)

	if first.Outcome != OutcomeShielded {
		t.Errorf("Expected first loss shielded, got %s", first.Outcome)
	}
	if second.Outcome != OutcomeLoss {
		t.Errorf("Expected every xenon entry consumed by one loss, got %s", second.Outcome)
	}
	if len(eng.View().Boosts) != 0 {
		t.Errorf("Expected no xenon entries left, got %d", len(eng.View().Boosts))
	}
	if got := eng.View().Player.Points; got != 5000-2400-100 {
		t.Errorf("Expected %d points, got %d", 5000-2400-100, got)
	}
}

func TestEngine_WagerPayoutSaturates(t *testing.T) {
	tests := []struct {
		name    string
		points  int64
		roll    float64
		outcome WagerOutcome
	}{
		{"jackpot", math.MaxInt64 / 5, 0.01, OutcomeJackpot},
		{"success", math.MaxInt64/2 + 1, 0.30, OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, rnd := newEngineWithState(t, withPoints(tt.points))
			rnd.floats = []float64{tt.roll}

			res, err := eng.Wager(tt.points)
			if err != nil {
				t.Fatalf("Wager failed: %v", err)
			}
			if res.Outcome != tt.outcome {
				t.Errorf("Expected %s, got %s", tt.outcome, res.Outcome)
			}
			if res.Payout != math.MaxInt64 {
				t.Errorf("Expected payout clamped to %d, got %d", int64(math.MaxInt64), res.Payout)
			}
			if got := eng.View().Player.Points; got != math.MaxInt64 {
				t.Errorf("Expected balance clamped to %d, got %d", int64(math.MaxInt64), got)
			}
		})
	}
}

func TestEngine_WagerDistribution(t *testing.T) {
	const n = 100000
	eng, _, _ := newEngineWithState(t, withPoints(n), WithRand(NewRand(42)))

	counts := map[WagerOutcome]int{}
	for i := 0; i < n; i++ {
		res, err := eng.Wager(1)
		if err != nil {
			t.Fatalf("Wager %d failed: %v", i, err)
		}
		counts[res.Outcome]++
	}

	expected := map[WagerOutcome]float64{
		OutcomeJackpot: 0.05,
		OutcomeSuccess: 0.40,
		OutcomeLoss:    0.55,
	}
	for outcome, want := range expected {
		got := float64(counts[outcome]) / n
		if math.Abs(got-want) > 0.01 {
			t.Errorf("Expected %s near %.2f, got %.4f", outcome, want, got)
		}
	}
	if counts[OutcomeShielded] != 0 {
		t.Errorf("Expected no shielded outcomes without xenon, got %d", counts[OutcomeShielded])
	}
}

func TestEngine_RadiumLifetime(t *testing.T) {
	eng, clock, _ := newEngineWithState(t, withPoints(600))
	if _, err := eng.DeployBoost(BoostRadium); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if got := eng.View().Player.Points; got != 100 {
		t.Errorf("Expected 100 points, got %d", got)
	}

	now := clock.Now()
	if !eng.boosts.IsActive(BoostRadium, now) {
		t.Error("Expected radium active at deploy time")
	}
	if eng.boosts.IsActive(BoostRadium, now.Add(60*time.Second)) {
		t.Error("Expected radium inactive at +60s")
	}

	clock.Advance(60 * time.Second)
	report := eng.Tick()
	if report.Expired != 1 {
		t.Errorf("Expected 1 expired entry, got %d", report.Expired)
	}
	if len(eng.View().Boosts) != 0 {
		t.Error("Expected radium entry purged")
	}
}

func TestEngine_WagerRejections(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(50))
	if _, err := eng.Wager(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	if _, err := eng.Wager(51); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if got := eng.View().Player.Points; got != 50 {
		t.Errorf("Expected balance unchanged, got %d", got)
	}
}

func TestEngine_WagerStatus(t *testing.T) {
	eng, clock, rnd := newEngineWithState(t, withPoints(500))
	rnd.floats = []float64{0.01}
	eng.Wager(100)

	if s := eng.WagerStatus(); s.Phase != WagerResolving || s.Result != nil {
		t.Errorf("Expected resolving without result, got %+v", s)
	}
	clock.Advance(1500 * time.Millisecond)
	s := eng.WagerStatus()
	if s.Phase != WagerRevealed || s.Result == nil || s.Result.Outcome != OutcomeJackpot {
		t.Errorf("Expected revealed jackpot, got %+v", s)
	}
	clock.Advance(2 * time.Second)
	if s := eng.WagerStatus(); s.Phase != WagerIdle {
		t.Errorf("Expected idle, got %s", s.Phase)
	}
}

func TestEngine_Ascend(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(4499))
	if _, err := eng.Ascend(); !errors.Is(err, ErrAscensionLocked) {
		t.Errorf("Expected ErrAscensionLocked, got %v", err)
	}

	state := withPoints(10000)
	state.Player.Vault = 300
	state.Player.LifetimeClicks = 42
	eng, _, _ = newEngineWithState(t, state)
	eng.DeployBoost(BoostBarium)

	prestige, err := eng.Ascend()
	if err != nil {
		t.Fatalf("Ascend failed: %v", err)
	}
	if prestige != 1 {
		t.Errorf("Expected prestige 1, got %d", prestige)
	}
	view := eng.View()
	if view.Player.Points != 0 || view.Player.Vault != 0 || view.Player.LifetimeClicks != 0 || len(view.Boosts) != 0 {
		t.Errorf("Expected reset run, got %+v boosts=%d", view.Player.Player, len(view.Boosts))
	}
	if view.Player.ClickPower != 3 {
		t.Errorf("Expected click power 3 after one ascension, got %d", view.Player.ClickPower)
	}
}

func TestEngine_Quests(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if _, err := eng.ClaimQuest("q1"); !errors.Is(err, ErrNotEligible) {
		t.Errorf("Expected ErrNotEligible, got %v", err)
	}
	if _, err := eng.ClaimQuest("nope"); !errors.Is(err, ErrQuestNotFound) {
		t.Errorf("Expected ErrQuestNotFound, got %v", err)
	}

	for i := 0; i < 510; i++ {
		eng.Click()
	}
	if q := findQuest(eng.View().Quests, "q1"); q.Current != 500 {
		t.Errorf("Expected progress clamped at 500, got %d", q.Current)
	}

	q, err := eng.ClaimQuest("q1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !q.Claimed {
		t.Error("Expected quest marked claimed")
	}
	if got := eng.View().Player.Points; got != 510+1000 {
		t.Errorf("Expected %d points, got %d", 1510, got)
	}
	if _, err := eng.ClaimQuest("q1"); !errors.Is(err, ErrNotEligible) {
		t.Errorf("Expected second claim to fail, got %v", err)
	}
}

func TestEngine_GlobalChat(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if _, err := eng.PostGlobalMessage("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	for i := 0; i < 60; i++ {
		if _, err := eng.PostGlobalMessage("hello"); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
	}
	feed := eng.GlobalFeed()
	if len(feed) != 50 {
		t.Errorf("Expected feed bounded to 50, got %d", len(feed))
	}
	if !feed[0].FromPlayer || feed[0].Sender != "NEO" {
		t.Errorf("Expected player message, got %+v", feed[0])
	}
	if q := findQuest(eng.View().Quests, "q3"); q.Current != 15 {
		t.Errorf("Expected chat quest at target 15, got %d", q.Current)
	}
}

func TestEngine_Rename(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(6000))
	eng.CreateClan("alpha")

	if err := eng.Rename("  trinity "); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	view := eng.View()
	if view.Player.DisplayName != "TRINITY" {
		t.Errorf("Expected TRINITY, got %s", view.Player.DisplayName)
	}
	if view.Clan.Members[0].Name != "TRINITY" {
		t.Errorf("Expected clan member renamed, got %s", view.Clan.Members[0].Name)
	}
	if err := eng.Rename(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}

func TestEngine_Leaderboard(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(3000))

	board := eng.Leaderboard()
	if len(board.Players) != 11 {
		t.Fatalf("Expected 11 leaderboard rows, got %d", len(board.Players))
	}
	found := false
	for i, entry := range board.Players {
		if entry.Score < 0 {
			t.Errorf("Unexpected negative score %d", entry.Score)
		}
		if !entry.IsPlayer && (entry.Score < 1500 || entry.Score > 5000) {
			t.Errorf("Mock score %d out of range", entry.Score)
		}
		if i > 0 && entry.Score > board.Players[i-1].Score {
			t.Error("Expected leaderboard sorted by score")
		}
		if entry.IsPlayer {
			found = true
		}
	}
	if !found {
		t.Error("Expected player on leaderboard")
	}

	again := eng.Leaderboard()
	if again.Players[0].Score != board.Players[0].Score {
		t.Error("Expected mock leaderboard to be stable between calls")
	}
}

func TestEngine_LeaderboardLeavesStreamAlone(t *testing.T) {
	newWorld := func() *Engine {
		eng, _, _ := newEngineWithState(t, withPoints(100000), WithRand(NewRand(99)))
		return eng
	}
	viewed, untouched := newWorld(), newWorld()

	board := viewed.Leaderboard()
	for i := 0; i < 50; i++ {
		a, errA := viewed.Wager(10)
		b, errB := untouched.Wager(10)
		if errA != nil || errB != nil {
			t.Fatalf("Wager failed: %v / %v", errA, errB)
		}
		if a.Roll != b.Roll || a.Outcome != b.Outcome {
			t.Fatalf("Wager %d diverged after a leaderboard read: %v/%s vs %v/%s", i, a.Roll, a.Outcome, b.Roll, b.Outcome)
		}
	}

	other := untouched.Leaderboard()
	scores := func(b Leaderboard) map[string]int64 {
		out := map[string]int64{}
		for _, entry := range b.Players {
			if !entry.IsPlayer {
				out[entry.Name] = entry.Score
			}
		}
		return out
	}
	want, got := scores(board), scores(other)
	for name, score := range want {
		if got[name] != score {
			t.Errorf("Expected %s to score %d for the same player, got %d", name, score, got[name])
		}
	}
}

func TestEngine_SnapshotSink(t *testing.T) {
	var snaps []*Snapshot
	sink := SnapshotSinkFunc(func(s *Snapshot) error {
		snaps = append(snaps, s)
		return nil
	})
	eng, _, _ := newTestEngine(t, WithSnapshotSink(sink))

	eng.Click()
	eng.Click()
	eng.Wager(1_000_000) // rejected, no snapshot

	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Revision != 1 || snaps[1].Revision != 2 {
		t.Errorf("Expected revisions 1,2 got %d,%d", snaps[0].Revision, snaps[1].Revision)
	}
	if snaps[1].Player.Points != 2 {
		t.Errorf("Expected snapshot with 2 points, got %d", snaps[1].Player.Points)
	}

	snaps[1].Player.Points = 999
	if eng.View().Player.Points != 2 {
		t.Error("Expected snapshot to be a copy")
	}
}

func TestEngine_SnapshotSinkError(t *testing.T) {
	sink := SnapshotSinkFunc(func(*Snapshot) error { return errors.New("disk full") })
	eng, _, _ := newTestEngine(t, WithSnapshotSink(sink))

	if _, err := eng.Click(); err != nil {
		t.Errorf("Expected sink failure not to fail the action, got %v", err)
	}
}

func TestEngine_RestoreFromSnapshot(t *testing.T) {
	eng, _, _ := newEngineWithState(t, withPoints(6000))
	eng.CreateClan("alpha")
	eng.DepositToClan(eng.View().Player.ClanID, 500)
	raw, err := json.Marshal(eng.Snapshot())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	restored, _, _ := newTestEngine(t, WithSnapshot(raw))
	view := restored.View()
	if view.Player.Points != 500 {
		t.Errorf("Expected 500 points, got %d", view.Player.Points)
	}
	if view.Clan == nil || view.Clan.Balance != 500 || view.Clan.ClanPoints != 2 {
		t.Errorf("Expected restored clan with balance 500, got %+v", view.Clan)
	}
	if restored.Revision() != eng.Revision() {
		t.Errorf("Expected revision %d, got %d", eng.Revision(), restored.Revision())
	}
}

func TestEngine_Close(t *testing.T) {
	eng, clock, _ := newEngineWithState(t, withPoints(6000))
	clan, _ := eng.CreateClan("alpha")
	eng.BroadcastRecruitment(clan.ID)

	eng.Close()
	if _, err := eng.Click(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if IsRejection(ErrClosed) {
		t.Error("Expected ErrClosed not to be a business rejection")
	}
	clock.Advance(10 * time.Second)
	if report := eng.Tick(); report.Bots.Joins != 0 {
		t.Error("Expected pending joins dropped on close")
	}
}

func TestEngine_StartWithManualScheduler(t *testing.T) {
	eng, clock, _ := newEngineWithState(t, withPoints(1000))
	eng.DeployBoost(BoostBarium)
	base := eng.View().Player.Points

	sched := NewManualScheduler(clock)
	eng.Start(sched)
	sched.Step(3)

	if got := eng.View().Player.Points; got != base+15 {
		t.Errorf("Expected %d after 3 ticks, got %d", base+15, got)
	}
	if !clock.Now().Equal(testEpoch.Add(3 * time.Second)) {
		t.Errorf("Expected clock advanced 3s, got %v", clock.Now())
	}

	eng.Close()
	if sched.Jobs() != 0 {
		t.Error("Expected tick job removed on close")
	}
}

func TestEngine_ConcurrentAccess(t *testing.T) {
	eng, err := NewEngine(DefaultEconomyConfig(), Identity{ID: "p1", DisplayName: "neo"}, WithRand(NewRand(7)))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				eng.Click()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				eng.Tick()
				_ = eng.View()
			}
		}()
	}
	wg.Wait()

	if clicks := eng.View().Player.LifetimeClicks; clicks != 1000 {
		t.Errorf("Expected 1000 clicks, got %d", clicks)
	}
}

func findQuest(quests []Quest, id string) Quest {
	for _, q := range quests {
		if q.ID == id {
			return q
		}
	}
	return Quest{}
}
