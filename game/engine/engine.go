package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ClickResult is the outcome of a single click
type ClickResult struct {
	Yield    int64 `json:"yield"`
	Critical bool  `json:"critical"`
	Points   int64 `json:"points"`
}

// TickReport summarizes one simulation tick
type TickReport struct {
	Expired int       `json:"expired"`
	Passive int64     `json:"passive"`
	Bots    BotReport `json:"bots"`
	At      time.Time `json:"at"`
}

// LeaderboardEntry is one row of the player leaderboard
type LeaderboardEntry struct {
	Name     string   `json:"name"`
	Score    int64    `json:"score"`
	Rank     RankTier `json:"rank"`
	IsPlayer bool     `json:"is_player,omitempty"`
}

// ClanStanding is one row of the clan leaderboard
type ClanStanding struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClanPoints int64  `json:"clan_points"`
	Members    int    `json:"members"`
}

// Leaderboard ranks the player among simulated players, plus the clan ranking
type Leaderboard struct {
	Players []LeaderboardEntry `json:"players"`
	Clans   []ClanStanding     `json:"clans"`
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRand sets the random source
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// WithSnapshotSink sets where snapshots go after each mutation
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSnapshot restores the world from raw snapshot bytes instead of starting fresh
func WithSnapshot(raw []byte) Option {
	return func(e *Engine) { e.raw = raw }
}

// Engine is the single-writer façade over one world. Every exported method
// holds the same mutex for its whole duration.
type Engine struct {
	mu       sync.Mutex
	config   *EconomyConfig
	identity Identity
	state    *State
	revision int64
	closed   bool

	clock  Clock
	rand   Rand
	sink   SnapshotSink
	logger *slog.Logger
	raw    []byte

	ledger *Ledger
	boosts *BoostManager
	quests *QuestTracker
	clans  *ClanRegistry
	wager  *WagerEngine
	bots   *BotActivityGenerator
	codes  *CodeRegistry

	lastWager *WagerResult
	mockBoard []LeaderboardEntry
	stopTicks func()
}

// NewEngine creates an engine for identity using config
func NewEngine(config *EconomyConfig, identity Identity, opts ...Option) (*Engine, error) {
	if err := ValidateEconomyConfig(config); err != nil {
		return nil, err
	}
	if strings.TrimSpace(identity.ID) == "" {
		return nil, fmt.Errorf("identity id is required")
	}

	e := &Engine{
		config:   config,
		identity: identity,
		clock:    SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		e.rand = NewRand(0)
	}

	snapshot, recovered := LoadSnapshot(e.raw, config, identity)
	e.raw = nil
	if len(recovered) > 0 {
		e.logger.Warn("recovered corrupt snapshot fields", "player_id", identity.ID, "fields", recovered)
	}
	state := snapshot.State
	e.state = &state
	e.revision = snapshot.Revision
	e.bind()

	return e, nil
}

// bind rebuilds the components around the current state
func (e *Engine) bind() {
	e.ledger = NewLedger(&e.state.Player)
	e.quests = NewQuestTracker(e.state)
	e.boosts = NewBoostManager(e.state, e.config.Boosts, e.ledger, e.quests)
	e.clans = NewClanRegistry(e.state, e.config, e.ledger, e.quests, e.boosts)
	e.wager = NewWagerEngine(e.config.Wager, e.ledger, e.boosts, e.rand)
	e.bots = NewBotActivityGenerator(e.state, e.config, e.rand, e.clans)
	e.codes = NewCodeRegistry(e.state, e.config.Codes, e.ledger, e.boosts)
	e.lastWager = nil
}

// Config returns the economy configuration
func (e *Engine) Config() *EconomyConfig { return e.config }

// PlayerID returns the id of the world's player
func (e *Engine) PlayerID() string { return e.identity.ID }

// Revision returns the number of committed mutations
func (e *Engine) Revision() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Start runs Tick every TickInterval on scheduler until Close. Observers
// receive each report after the lock is released.
func (e *Engine) Start(scheduler Scheduler, observers ...func(TickReport)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.stopTicks != nil {
		return
	}
	e.stopTicks = scheduler.Every(e.config.TickInterval.Std(), func() {
		report := e.Tick()
		if report.At.IsZero() {
			return
		}
		for _, observe := range observers {
			observe(report)
		}
	})
}

// Close stops the tick loop and drops delayed effects. Later calls fail with ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.stopTicks != nil {
		e.stopTicks()
		e.stopTicks = nil
	}
	e.bots.Drop()
	e.lastWager = nil
}

// Tick sweeps expired boosts, pays passive income unless banned and runs simulated actors
func (e *Engine) Tick() TickReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return TickReport{}
	}

	now := e.clock.Now()
	report := TickReport{At: now}
	report.Expired = e.boosts.SweepExpired(now)
	if !e.banned() {
		if income := e.boosts.Effects(now).PassiveIncome; income > 0 {
			if err := e.ledger.Credit(income); err == nil {
				report.Passive = income
			}
		}
	}
	report.Bots = e.bots.Step(now)

	if report.Expired > 0 || report.Passive > 0 || report.Bots.Active() {
		e.commit(now)
	}
	return report
}

// Click credits one click's yield
func (e *Engine) Click() (ClickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return ClickResult{}, err
	}

	fx := e.boosts.Effects(now)
	yield := e.clickPower(fx)
	critical := false
	for _, crit := range fx.Criticals {
		if e.rand.Float64() < crit.Chance {
			yield = int64(float64(yield) * crit.Multiplier)
			critical = true
		}
	}
	if err := e.ledger.Credit(yield); err != nil {
		return ClickResult{}, err
	}
	e.state.Player.LifetimeClicks++
	e.quests.Advance(QuestClicks, 1)

	e.commit(now)
	return ClickResult{Yield: yield, Critical: critical, Points: e.state.Player.Points}, nil
}

// DeployBoost buys and activates a boost
func (e *Engine) DeployBoost(kind BoostKind) (ActiveBoost, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return ActiveBoost{}, err
	}

	boost, err := e.boosts.Deploy(kind, now)
	if err != nil {
		return ActiveBoost{}, err
	}
	e.logger.Debug("boost deployed", "player_id", e.identity.ID, "kind", kind, "expires_at", boost.ExpiresAt)
	e.commit(now)
	return boost, nil
}

// VaultDeposit moves points into the vault
func (e *Engine) VaultDeposit(amount int64) error {
	return e.mutate(false, func(time.Time) error { return e.ledger.MoveToVault(amount) })
}

// VaultWithdraw moves points out of the vault
func (e *Engine) VaultWithdraw(amount int64) error {
	return e.mutate(false, func(time.Time) error { return e.ledger.MoveFromVault(amount) })
}

// Wager stakes amount on the gamble terminal
func (e *Engine) Wager(amount int64) (WagerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return WagerResult{}, err
	}

	result, err := e.wager.Place(amount, now)
	if err != nil {
		return WagerResult{}, err
	}
	e.lastWager = &result
	e.logger.Debug("wager settled", "player_id", e.identity.ID, "amount", amount, "outcome", result.Outcome)
	e.commit(now)
	return result, nil
}

// WagerStatus reports the presentation phase of the latest wager
func (e *Engine) WagerStatus() WagerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wager.Status(e.lastWager, e.clock.Now())
}

// Ascend trades the current run for one prestige level
func (e *Engine) Ascend() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return 0, err
	}
	if e.state.Player.Points < e.config.AscensionThreshold() {
		return 0, ErrAscensionLocked
	}

	p := &e.state.Player
	p.Prestige++
	p.Points = 0
	p.Vault = 0
	p.LifetimeClicks = 0
	e.boosts.Clear()
	e.logger.Info("player ascended", "player_id", p.ID, "prestige", p.Prestige)

	e.commit(now)
	return p.Prestige, nil
}

// Redeem applies a redemption code
func (e *Engine) Redeem(code string) (RedeemResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(false)
	if err != nil {
		return RedeemResult{}, err
	}

	result, err := e.codes.Redeem(code, now)
	if err != nil {
		return RedeemResult{}, err
	}
	e.commit(now)
	return result, nil
}

// ClaimQuest pays out a completed quest
func (e *Engine) ClaimQuest(id string) (Quest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(false)
	if err != nil {
		return Quest{}, err
	}

	quest, err := e.quests.Claim(id, e.ledger)
	if err != nil {
		return quest, err
	}
	e.commit(now)
	return quest, nil
}

// PostGlobalMessage posts to the global feed as the player
func (e *Engine) PostGlobalMessage(text string) (ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return ChatMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	msg := e.playerMessage(text, now)
	e.state.GlobalFeed = appendBounded(e.state.GlobalFeed, msg, e.config.FeedLimit)
	e.quests.Advance(QuestChat, 1)
	e.commit(now)
	return msg, nil
}

// GlobalFeed returns the most recent global messages
func (e *Engine) GlobalFeed() []ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ChatMessage{}, e.state.GlobalFeed...)
}

// Rename changes the player's display name
func (e *Engine) Rename(displayName string) error {
	return e.mutate(false, func(time.Time) error {
		name := strings.ToUpper(strings.TrimSpace(displayName))
		if name == "" || utf8.RuneCountInString(name) > e.config.Clans.NameMaxLength {
			return ErrInvalidName
		}
		e.state.Player.DisplayName = name
		return nil
	})
}

// CreateClan founds a clan owned by the player
func (e *Engine) CreateClan(name string) (*Clan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return nil, err
	}

	clan, err := e.clans.Create(name, now)
	if err != nil {
		return nil, err
	}
	e.logger.Info("clan created", "player_id", e.identity.ID, "clan_id", clan.ID, "name", clan.Name)
	e.commit(now)
	return cloneClan(clan), nil
}

// JoinClan adds the player to clanID
func (e *Engine) JoinClan(clanID string) (*Clan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return nil, err
	}

	clan, err := e.clans.Join(clanID, now)
	if err != nil {
		return nil, err
	}
	e.commit(now)
	return cloneClan(clan), nil
}

// LeaveClan removes the player from clanID
func (e *Engine) LeaveClan(clanID string) error {
	return e.mutate(false, func(time.Time) error { return e.clans.Leave(clanID, e.state.Player.ID) })
}

// DepositToClan moves points into the clan bank and returns the credited amount
func (e *Engine) DepositToClan(clanID string, amount int64) (int64, error) {
	var credited int64
	err := e.mutate(true, func(now time.Time) error {
		var err error
		credited, err = e.clans.Deposit(clanID, amount, now)
		return err
	})
	return credited, err
}

// WithdrawFromClan moves points from the clan bank to the player
func (e *Engine) WithdrawFromClan(clanID string, amount int64) error {
	return e.mutate(true, func(time.Time) error { return e.clans.Withdraw(clanID, amount) })
}

// BroadcastRecruitment advertises clanID on the global feed and schedules a
// simulated join attempt after the recruitment delay.
func (e *Engine) BroadcastRecruitment(clanID string) (ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return ChatMessage{}, err
	}
	clan, err := e.clans.memberClan(clanID)
	if err != nil {
		return ChatMessage{}, err
	}

	msg := e.playerMessage(fmt.Sprintf("RECRUITMENT: Join cluster [%s]! Efficient operators wanted. JOIN BELOW!", clan.Name), now)
	msg.JoinClanID = clan.ID
	e.state.GlobalFeed = appendBounded(e.state.GlobalFeed, msg, e.config.FeedLimit)
	e.bots.ScheduleJoin(clan.ID, now.Add(e.config.Bots.RecruitDelay.Std()))
	e.commit(now)
	return msg, nil
}

// PostClanMessage posts to a clan channel as the player
func (e *Engine) PostClanMessage(clanID, channelID, text string) (ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(true)
	if err != nil {
		return ChatMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	clan, err := e.clans.memberClan(clanID)
	if err != nil {
		return ChatMessage{}, err
	}

	msg, err := e.clans.PostMessage(clan, channelID, e.playerMessage(text, now))
	if err != nil {
		return ChatMessage{}, err
	}
	e.commit(now)
	return msg, nil
}

// KickMember removes a member from the player's clan
func (e *Engine) KickMember(clanID, memberID string) error {
	return e.mutate(false, func(time.Time) error { return e.clans.Kick(clanID, memberID) })
}

// SetMemberRole assigns a role inside the player's clan
func (e *Engine) SetMemberRole(clanID, memberID, roleID string) error {
	return e.mutate(false, func(time.Time) error { return e.clans.SetRole(clanID, memberID, roleID) })
}

// AddChannel creates a channel in the player's clan
func (e *Engine) AddChannel(clanID, name string) (*Channel, error) {
	var channel *Channel
	err := e.mutate(false, func(time.Time) error {
		var err error
		channel, err = e.clans.AddChannel(clanID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Channel{ID: channel.ID, Name: channel.Name, Messages: []ChatMessage{}}, nil
}

// Clan returns a copy of a clan
func (e *Engine) Clan(clanID string) (*Clan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clan, err := e.clans.Get(clanID)
	if err != nil {
		return nil, err
	}
	return cloneClan(clan), nil
}

// SearchClans fuzzy-matches clan names
func (e *Engine) SearchClans(query string) []*Clan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneClans(e.clans.Search(query))
}

// Leaderboard ranks the player against simulated players and lists clans by points
func (e *Engine) Leaderboard() Leaderboard {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mockBoard == nil {
		// drawn from a per-player source so reads never shift the world's stream
		src := NewRand(seedFor(e.identity.ID))
		bots := e.config.Bots
		for _, name := range bots.Names {
			score := randRange(src, bots.LeaderboardScoreMin, bots.LeaderboardScoreMax+1)
			e.mockBoard = append(e.mockBoard, LeaderboardEntry{Name: name, Score: score, Rank: ResolveTier(e.config.Tiers, score)})
		}
	}

	p := e.state.Player
	players := append([]LeaderboardEntry{{
		Name:     p.DisplayName,
		Score:    p.Points,
		Rank:     ResolveTier(e.config.Tiers, p.Points),
		IsPlayer: true,
	}}, e.mockBoard...)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })

	board := Leaderboard{Players: players, Clans: []ClanStanding{}}
	for _, c := range e.clans.Ranking() {
		board.Clans = append(board.Clans, ClanStanding{ID: c.ID, Name: c.Name, ClanPoints: c.ClanPoints, Members: len(c.Members)})
	}
	return board
}

// View returns the read model of the world
func (e *Engine) View() StateView {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	e.boosts.SweepExpired(now)

	view := StateView{
		Player:     e.playerView(now),
		Boosts:     e.boosts.Active(now),
		Quests:     e.quests.List(),
		GlobalFeed: append([]ChatMessage{}, e.state.GlobalFeed...),
		Wager:      e.wager.Status(e.lastWager, now),
		Now:        now,
	}
	if clan := e.clans.Current(); clan != nil {
		view.Clan = cloneClan(clan)
	}
	return view
}

// Snapshot returns a deep copy of the world
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(e.clock.Now())
}

func (e *Engine) playerView(now time.Time) PlayerView {
	p := e.state.Player
	fx := e.boosts.Effects(now)
	next, progress := NextTier(e.config.Tiers, p.Points)
	return PlayerView{
		Player:        p,
		Rank:          ResolveTier(e.config.Tiers, p.Points),
		NextRank:      next,
		TierProgress:  progress,
		ClickPower:    e.clickPower(fx),
		PassiveIncome: fx.PassiveIncome,
		Banned:        e.banned(),
		Privileged:    e.state.Privileged,
	}
}

func (e *Engine) clickPower(fx Effects) int64 {
	base := e.config.Click.Base + e.config.Click.PrestigeBonus*e.state.Player.Prestige
	return int64(float64(base) * fx.ClickMultiplier)
}

func (e *Engine) playerMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		Sender:     e.state.Player.DisplayName,
		Text:       text,
		Rank:       ResolveTier(e.config.Tiers, e.state.Player.Points),
		FromPlayer: true,
		Timestamp:  now,
	}
}

// banned reports whether the player's display name or id is on the ban list
func (e *Engine) banned() bool {
	bans := e.state.BanList
	return bans[NormalizeCode(e.state.Player.DisplayName)] || bans[NormalizeCode(e.state.Player.ID)]
}

// begin must be called with the lock held. It sweeps expired boosts and
// rejects the call when the world is closed or, for gated actions, banned.
func (e *Engine) begin(gated bool) (time.Time, error) {
	if e.closed {
		return time.Time{}, ErrClosed
	}
	now := e.clock.Now()
	e.boosts.SweepExpired(now)
	if gated && e.banned() {
		return now, ErrBanned
	}
	return now, nil
}

// mutate runs fn under the lock and commits when it succeeds
func (e *Engine) mutate(gated bool, fn func(now time.Time) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now, err := e.begin(gated)
	if err != nil {
		return err
	}
	if err := fn(now); err != nil {
		return err
	}
	e.commit(now)
	return nil
}

// commit must be called with the lock held after a successful mutation
func (e *Engine) commit(now time.Time) {
	e.revision++
	if clan := e.clans.Current(); clan != nil {
		if m := findMember(clan, e.state.Player.ID); m != nil {
			m.Name = e.state.Player.DisplayName
			m.Rank = ResolveTier(e.config.Tiers, e.state.Player.Points)
		}
	}
	if e.sink == nil {
		return
	}
	if err := e.sink.SaveSnapshot(e.snapshot(now)); err != nil {
		e.logger.Warn("snapshot sink failed", "player_id", e.identity.ID, "revision", e.revision, "error", err)
	}
}

func (e *Engine) snapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Version:  SnapshotVersion,
		Revision: e.revision,
		SavedAt:  now,
		State:    cloneState(e.state),
	}
}

func cloneClans(clans []*Clan) []*Clan {
	out := make([]*Clan, len(clans))
	for i, c := range clans {
		out[i] = cloneClan(c)
	}
	return out
}
