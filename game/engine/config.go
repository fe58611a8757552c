package engine

import (
	"fmt"
	"strings"
	"time"
)

// Validation limits
const (
	MaxTiers          = 64
	MaxClanCapacity   = 500
	MaxFeedLimit      = 1000
	MaxClanNameLength = 64
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("60s", "1h") in both JSON and TOML.
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// BoostSpec is one row of the boost table. Costs and durations are fixed per kind.
type BoostSpec struct {
	Kind        BoostKind   `json:"kind" toml:"kind"`
	Name        string      `json:"name" toml:"name"`
	Description string      `json:"description" toml:"description"`
	Cost        int64       `json:"cost" toml:"cost"`
	Duration    Duration    `json:"duration" toml:"duration"`
	Effect      BoostEffect `json:"effect" toml:"effect"`
	Rate        int64       `json:"rate,omitempty" toml:"rate"`
	Multiplier  float64     `json:"multiplier,omitempty" toml:"multiplier"`
	Chance      float64     `json:"chance,omitempty" toml:"chance"`
}

// CodeEffect is what a redemption code grants
type CodeEffect string

const (
	CodeGrantPoints CodeEffect = "points"
	CodeGrantBoost  CodeEffect = "boost"
	CodePrivilege   CodeEffect = "privilege"
)

// CodeSpec is one entry of the redemption registry
type CodeSpec struct {
	Code          string     `json:"code" toml:"code"`
	Effect        CodeEffect `json:"effect" toml:"effect"`
	Points        int64      `json:"points,omitempty" toml:"points"`
	Boost         BoostKind  `json:"boost,omitempty" toml:"boost"`
	BoostDuration Duration   `json:"boost_duration,omitempty" toml:"boost_duration"`
	Reusable      bool       `json:"reusable,omitempty" toml:"reusable"`
	Message       string     `json:"message,omitempty" toml:"message"`
}

// ClickConfig tunes per-click yield: floor((Base + PrestigeBonus*prestige) * multiplier)
type ClickConfig struct {
	Base          int64 `json:"base" toml:"base"`
	PrestigeBonus int64 `json:"prestige_bonus" toml:"prestige_bonus"`
}

// ClanConfig tunes clan creation and the bank
type ClanConfig struct {
	CreationCost  int64 `json:"creation_cost" toml:"creation_cost"`
	Capacity      int   `json:"capacity" toml:"capacity"`
	PointUnit     int64 `json:"point_unit" toml:"point_unit"`
	NameMaxLength int   `json:"name_max_length" toml:"name_max_length"`
}

// WagerConfig tunes the gamble terminal
type WagerConfig struct {
	JackpotChance     float64  `json:"jackpot_chance" toml:"jackpot_chance"`
	SuccessChance     float64  `json:"success_chance" toml:"success_chance"`
	JackpotMultiplier int64    `json:"jackpot_multiplier" toml:"jackpot_multiplier"`
	SuccessMultiplier int64    `json:"success_multiplier" toml:"success_multiplier"`
	RevealDelay       Duration `json:"reveal_delay" toml:"reveal_delay"`
	SettleDelay       Duration `json:"settle_delay" toml:"settle_delay"`
}

// BotConfig tunes the simulated actors
type BotConfig struct {
	DepositChance       float64  `json:"deposit_chance" toml:"deposit_chance"`
	DepositAmount       int64    `json:"deposit_amount" toml:"deposit_amount"`
	ClanChatChance      float64  `json:"clan_chat_chance" toml:"clan_chat_chance"`
	GlobalChatChance    float64  `json:"global_chat_chance" toml:"global_chat_chance"`
	ReplyChance         float64  `json:"reply_chance" toml:"reply_chance"`
	RecruitChance       float64  `json:"recruit_chance" toml:"recruit_chance"`
	RecruitDelay        Duration `json:"recruit_delay" toml:"recruit_delay"`
	GlobalScoreMax      int64    `json:"global_score_max" toml:"global_score_max"`
	RecruitScoreMax     int64    `json:"recruit_score_max" toml:"recruit_score_max"`
	LeaderboardScoreMin int64    `json:"leaderboard_score_min" toml:"leaderboard_score_min"`
	LeaderboardScoreMax int64    `json:"leaderboard_score_max" toml:"leaderboard_score_max"`
	Names               []string `json:"names" toml:"names"`
	GlobalPool          []string `json:"global_pool" toml:"global_pool"`
	ReplyPool           []string `json:"reply_pool" toml:"reply_pool"`
	ClanPool            []string `json:"clan_pool" toml:"clan_pool"`
}

// EconomyConfig is the table-driven tuning of a world, loaded once at startup
type EconomyConfig struct {
	Name          string      `json:"name" toml:"name"`
	Description   string      `json:"description" toml:"description"`
	TickInterval  Duration    `json:"tick_interval" toml:"tick_interval"`
	FeedLimit     int         `json:"feed_limit" toml:"feed_limit"`
	AscensionTier int         `json:"ascension_tier" toml:"ascension_tier"`
	Click         ClickConfig `json:"click" toml:"click"`
	Clans         ClanConfig  `json:"clans" toml:"clans"`
	Wager         WagerConfig `json:"wager" toml:"wager"`
	Bots          BotConfig   `json:"bots" toml:"bots"`
	Tiers         []RankTier  `json:"tiers" toml:"tiers"`
	Boosts        []BoostSpec `json:"boosts" toml:"boosts"`
	Codes         []CodeSpec  `json:"codes" toml:"codes"`
	Quests        []Quest     `json:"quests" toml:"quests"`
}

// AscensionThreshold is the minimum spendable balance required to ascend
func (c *EconomyConfig) AscensionThreshold() int64 {
	return c.Tiers[c.AscensionTier].MinPoints
}

// Boost returns the table row for kind
func (c *EconomyConfig) Boost(kind BoostKind) (BoostSpec, bool) {
	for _, spec := range c.Boosts {
		if spec.Kind == kind {
			return spec, true
		}
	}
	return BoostSpec{}, false
}

// ValidateEconomyConfig validates an economy configuration for correctness
func ValidateEconomyConfig(config *EconomyConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.TickInterval <= 0 {
		return fmt.Errorf("config validation: tick_interval must be positive")
	}
	if config.FeedLimit < 1 || config.FeedLimit > MaxFeedLimit {
		return fmt.Errorf("config validation: feed_limit must be between 1 and %d, got %d", MaxFeedLimit, config.FeedLimit)
	}

	// Tiers
	if len(config.Tiers) == 0 || len(config.Tiers) > MaxTiers {
		return fmt.Errorf("config validation: between 1 and %d tiers required, got %d", MaxTiers, len(config.Tiers))
	}
	for i, tier := range config.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("config validation: tier %d has no name", i)
		}
		if tier.MinPoints < 0 {
			return fmt.Errorf("config validation: tier %q has negative min_points", tier.Name)
		}
		if i > 0 && tier.MinPoints <= config.Tiers[i-1].MinPoints {
			return fmt.Errorf("config validation: tiers must be strictly increasing, %q (%d) follows %q (%d)",
				tier.Name, tier.MinPoints, config.Tiers[i-1].Name, config.Tiers[i-1].MinPoints)
		}
	}
	if config.AscensionTier < 0 || config.AscensionTier >= len(config.Tiers) {
		return fmt.Errorf("config validation: ascension_tier %d out of range", config.AscensionTier)
	}

	// Click
	if config.Click.Base < 1 || config.Click.PrestigeBonus < 0 {
		return fmt.Errorf("config validation: click.base must be >= 1 and click.prestige_bonus >= 0")
	}

	// Clans
	if config.Clans.CreationCost < 0 {
		return fmt.Errorf("config validation: clans.creation_cost must not be negative")
	}
	if config.Clans.Capacity < 1 || config.Clans.Capacity > MaxClanCapacity {
		return fmt.Errorf("config validation: clans.capacity must be between 1 and %d, got %d", MaxClanCapacity, config.Clans.Capacity)
	}
	if config.Clans.PointUnit < 1 {
		return fmt.Errorf("config validation: clans.point_unit must be positive")
	}
	if config.Clans.NameMaxLength < 1 || config.Clans.NameMaxLength > MaxClanNameLength {
		return fmt.Errorf("config validation: clans.name_max_length must be between 1 and %d", MaxClanNameLength)
	}

	// Wager
	w := config.Wager
	if !isProbability(w.JackpotChance) || !isProbability(w.SuccessChance) || w.JackpotChance+w.SuccessChance > 1 {
		return fmt.Errorf("config validation: wager chances must be probabilities summing to at most 1")
	}
	if w.JackpotMultiplier < 1 || w.SuccessMultiplier < 1 {
		return fmt.Errorf("config validation: wager multipliers must be >= 1")
	}
	if w.RevealDelay < 0 || w.SettleDelay < 0 {
		return fmt.Errorf("config validation: wager delays must not be negative")
	}

	// Boosts
	seen := make(map[BoostKind]bool)
	for _, spec := range config.Boosts {
		if spec.Kind == "" {
			return fmt.Errorf("config validation: boost without kind")
		}
		if seen[spec.Kind] {
			return fmt.Errorf("config validation: duplicate boost %q", spec.Kind)
		}
		seen[spec.Kind] = true
		if spec.Cost < 0 || spec.Duration <= 0 {
			return fmt.Errorf("config validation: boost %q needs cost >= 0 and a positive duration", spec.Kind)
		}
		switch spec.Effect {
		case EffectPassiveIncome:
			if spec.Rate <= 0 {
				return fmt.Errorf("config validation: passive boost %q needs a positive rate", spec.Kind)
			}
		case EffectClickMultiplier, EffectDepositMultiplier:
			if spec.Multiplier < 1 {
				return fmt.Errorf("config validation: boost %q needs multiplier >= 1", spec.Kind)
			}
		case EffectCritical:
			if spec.Multiplier < 1 || !isProbability(spec.Chance) {
				return fmt.Errorf("config validation: critical boost %q needs multiplier >= 1 and chance in [0,1]", spec.Kind)
			}
		case EffectShield:
		default:
			return fmt.Errorf("config validation: boost %q has unknown effect %q", spec.Kind, spec.Effect)
		}
	}

	// Codes
	codes := make(map[string]bool)
	for _, code := range config.Codes {
		normalized := NormalizeCode(code.Code)
		if normalized == "" {
			return fmt.Errorf("config validation: empty redemption code")
		}
		if codes[normalized] {
			return fmt.Errorf("config validation: duplicate redemption code %q", normalized)
		}
		codes[normalized] = true
		switch code.Effect {
		case CodeGrantPoints, CodePrivilege:
		case CodeGrantBoost:
			if !seen[code.Boost] || code.BoostDuration <= 0 {
				return fmt.Errorf("config validation: code %q grants unknown boost %q or has no duration", normalized, code.Boost)
			}
		default:
			return fmt.Errorf("config validation: code %q has unknown effect %q", normalized, code.Effect)
		}
		if code.Points < 0 {
			return fmt.Errorf("config validation: code %q grants negative points", normalized)
		}
	}

	// Quests
	if err := validateQuests(config.Quests); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// Bots
	b := config.Bots
	for name, p := range map[string]float64{
		"deposit_chance":     b.DepositChance,
		"clan_chat_chance":   b.ClanChatChance,
		"global_chat_chance": b.GlobalChatChance,
		"reply_chance":       b.ReplyChance,
		"recruit_chance":     b.RecruitChance,
	} {
		if !isProbability(p) {
			return fmt.Errorf("config validation: bots.%s must be in [0,1], got %v", name, p)
		}
	}
	if b.DepositAmount < 0 || b.RecruitDelay < 0 {
		return fmt.Errorf("config validation: bots.deposit_amount and bots.recruit_delay must not be negative")
	}
	if b.GlobalScoreMax < 1 || b.RecruitScoreMax < 1 {
		return fmt.Errorf("config validation: bot score ranges must be positive")
	}
	if b.LeaderboardScoreMin < 0 || b.LeaderboardScoreMax < b.LeaderboardScoreMin {
		return fmt.Errorf("config validation: invalid bots leaderboard score range")
	}
	if len(b.Names) == 0 || len(b.GlobalPool) == 0 || len(b.ReplyPool) == 0 || len(b.ClanPool) == 0 {
		return fmt.Errorf("config validation: bot names and message pools must not be empty")
	}

	return nil
}

func validateQuests(quests []Quest) error {
	if len(quests) == 0 {
		return fmt.Errorf("at least one quest is required")
	}
	ids := make(map[string]bool)
	for _, q := range quests {
		if q.ID == "" || ids[q.ID] {
			return fmt.Errorf("quest ids must be unique and non-empty, got %q", q.ID)
		}
		ids[q.ID] = true
		switch q.Kind {
		case QuestClicks, QuestClanPoints, QuestChat, QuestLab:
		default:
			return fmt.Errorf("quest %q has unknown kind %q", q.ID, q.Kind)
		}
		if q.Target < 1 || q.Reward < 0 {
			return fmt.Errorf("quest %q needs target >= 1 and reward >= 0", q.ID)
		}
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// DefaultEconomyConfig returns the built-in economy used when no config file is available
func DefaultEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		Name:          "default",
		Description:   "Standard economy: 13 rank tiers, seven lab boosts, clans of 25",
		TickInterval:  Duration(time.Second),
		FeedLimit:     50,
		AscensionTier: 4,
		Click:         ClickConfig{Base: 1, PrestigeBonus: 2},
		Clans: ClanConfig{
			CreationCost:  5000,
			Capacity:      25,
			PointUnit:     250,
			NameMaxLength: 24,
		},
		Wager: WagerConfig{
			JackpotChance:     0.05,
			SuccessChance:     0.40,
			JackpotMultiplier: 10,
			SuccessMultiplier: 2,
			RevealDelay:       Duration(1500 * time.Millisecond),
			SettleDelay:       Duration(2 * time.Second),
		},
		Bots: BotConfig{
			DepositChance:       0.15,
			DepositAmount:       50,
			ClanChatChance:      0.08,
			GlobalChatChance:    0.06,
			ReplyChance:         0.4,
			RecruitChance:       0.85,
			RecruitDelay:        Duration(3 * time.Second),
			GlobalScoreMax:      5_000_000,
			RecruitScoreMax:     100_000,
			LeaderboardScoreMin: 1500,
			LeaderboardScoreMax: 5000,
			Names:               []string{"VoidRunner", "BitHunter", "CodeWraith", "NeoClick", "ZeroSum", "FluxGate", "ZenTap", "NeonSoul", "PixelMage", "DataGhost"},
			GlobalPool: []string{
				"Just hit King tier!", "Who wants to join my clan?", "Gamble terminal is hot right now.",
				"Barium boost is insane.", "Looking for active members.", "250 coins for 1 point is a fair trade.",
				"Clan wars when?", "System efficiency looks good today.", "Just lost 1k in the spin... pain.",
				"Who is the admin here?",
			},
			ReplyPool: []string{
				"Nice job!", "I agree.", "Wait, really?", "LMAO", "Good luck with that.",
				"Check the lab, the boosts are worth it.", "Let's gooo!", "Anyone want to trade?",
				"I'm almost at Emperor rank.",
			},
			ClanPool: []string{
				"Deposited some units.", "Clan points growing fast.", "Hello team.",
				"Let's reach the next tier.", "Anyone active?",
			},
		},
		Tiers: []RankTier{
			{Name: "Novice", MinPoints: 0, Icon: "fa-seedling", Color: "slate", Gradient: "from-slate-400 to-slate-200"},
			{Name: "Classic", MinPoints: 100, Icon: "fa-shield-heart", Color: "emerald", Gradient: "from-emerald-500 to-teal-300"},
			{Name: "Warrior", MinPoints: 500, Icon: "fa-khanda", Color: "blue", Gradient: "from-blue-600 to-indigo-400"},
			{Name: "King", MinPoints: 1500, Icon: "fa-crown", Color: "amber", Gradient: "from-amber-500 to-yellow-300"},
			{Name: "Emperor", MinPoints: 4500, Icon: "fa-gem", Color: "rose", Gradient: "from-rose-600 to-orange-400"},
			{Name: "God", MinPoints: 15000, Icon: "fa-bolt-lightning", Color: "violet", Gradient: "from-violet-600 to-purple-400"},
			{Name: "Immortal", MinPoints: 50000, Icon: "fa-dna", Color: "cyan", Gradient: "from-cyan-600 to-blue-300"},
			{Name: "Celestial", MinPoints: 150000, Icon: "fa-star-and-crescent", Color: "fuchsia", Gradient: "from-fuchsia-600 to-pink-300"},
			{Name: "Eternal", MinPoints: 500000, Icon: "fa-infinity", Color: "orange", Gradient: "from-orange-600 to-yellow-400"},
			{Name: "Void", MinPoints: 1000000, Icon: "fa-eye", Color: "black", Gradient: "from-black via-slate-900 to-slate-800"},
			{Name: "Singularity", MinPoints: 5000000, Icon: "fa-vortex", Color: "indigo", Gradient: "from-indigo-900 via-purple-900 to-black"},
			{Name: "Multiverse", MinPoints: 25000000, Icon: "fa-layer-group", Color: "rose", Gradient: "from-rose-500 via-purple-500 to-indigo-500"},
			{Name: "Omnipotent", MinPoints: 100000000, Icon: "fa-sun", Color: "yellow", Gradient: "from-yellow-200 via-yellow-400 to-yellow-600"},
		},
		Boosts: []BoostSpec{
			{Kind: BoostBarium, Name: "Barium [Ba]", Description: "Auto-collector", Cost: 150, Duration: Duration(time.Minute), Effect: EffectPassiveIncome, Rate: 5},
			{Kind: BoostRadium, Name: "Radium [Ra]", Description: "Overclock x2 click", Cost: 500, Duration: Duration(time.Minute), Effect: EffectClickMultiplier, Multiplier: 2},
			{Kind: BoostXenon, Name: "Xenon [Xe]", Description: "Gamble shield (1 use)", Cost: 1200, Duration: Duration(time.Hour), Effect: EffectShield},
			{Kind: BoostIridium, Name: "Iridium [Ir]", Description: "Clan deposit x1.5", Cost: 2000, Duration: Duration(time.Minute), Effect: EffectDepositMultiplier, Multiplier: 1.5},
			{Kind: BoostCobalt, Name: "Cobalt [Co]", Description: "15% chance of a 5x crit", Cost: 3500, Duration: Duration(time.Minute), Effect: EffectCritical, Multiplier: 5, Chance: 0.15},
			{Kind: BoostPlutonium, Name: "Plutonium [Pu]", Description: "Advanced collector", Cost: 6000, Duration: Duration(time.Minute), Effect: EffectPassiveIncome, Rate: 15},
			{Kind: BoostAntimatter, Name: "Antimatter [Am]", Description: "Ultimate collector", Cost: 15000, Duration: Duration(time.Minute), Effect: EffectPassiveIncome, Rate: 100},
		},
		Codes: []CodeSpec{
			{Code: "ROOT", Effect: CodePrivilege, Reusable: true, Message: "Root access granted. Terminal linked."},
			{Code: "ADMINCASH", Effect: CodePrivilege, Reusable: true, Message: "Root access granted. Terminal linked."},
			{Code: "COINS", Effect: CodeGrantPoints, Points: 1000, Message: "Keys accepted (+1000)."},
			{Code: "PLAYER67", Effect: CodeGrantPoints, Points: 67, Message: "Legacy archive restored (+67)."},
			{Code: "PLAYER123", Effect: CodeGrantBoost, Points: 123, Boost: BoostRadium, BoostDuration: Duration(5 * time.Minute), Message: "Veteran package active."},
		},
		Quests: DefaultQuests(),
	}
}

// DefaultQuests returns the fallback quest set used for new or corrupt worlds
func DefaultQuests() []Quest {
	return []Quest{
		{ID: "q1", Description: "Click Grinder: 500 Clicks", Kind: QuestClicks, Target: 500, Reward: 1000},
		{ID: "q2", Description: "Clan Contributor: 10 Clan Points", Kind: QuestClanPoints, Target: 10, Reward: 2000},
		{ID: "q3", Description: "Socialite: 15 Messages", Kind: QuestChat, Target: 15, Reward: 500},
		{ID: "q4", Description: "Researcher: Use 5 Lab Boosts", Kind: QuestLab, Target: 5, Reward: 3000},
	}
}
