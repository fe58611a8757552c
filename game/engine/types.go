package engine

import "time"

// BoostKind identifies an entry in the boost table
type BoostKind string

const (
	BoostBarium     BoostKind = "barium"
	BoostRadium     BoostKind = "radium"
	BoostXenon      BoostKind = "xenon"
	BoostIridium    BoostKind = "iridium"
	BoostCobalt     BoostKind = "cobalt"
	BoostPlutonium  BoostKind = "plutonium"
	BoostAntimatter BoostKind = "antimatter"
)

// BoostEffect describes how a boost modifies the economy
type BoostEffect string

const (
	EffectPassiveIncome     BoostEffect = "passive_income"
	EffectClickMultiplier   BoostEffect = "click_multiplier"
	EffectCritical          BoostEffect = "critical"
	EffectDepositMultiplier BoostEffect = "deposit_multiplier"
	EffectShield            BoostEffect = "shield"
)

// QuestKind is the activity a quest counts
type QuestKind string

const (
	QuestClicks     QuestKind = "clicks"
	QuestClanPoints QuestKind = "clan_points"
	QuestChat       QuestKind = "chat"
	QuestLab        QuestKind = "lab"
)

// Permission is a capability tag carried by a clan role
type Permission string

const (
	PermWithdraw       Permission = "withdraw"
	PermManageRoles    Permission = "manage_roles"
	PermManageChannels Permission = "manage_channels"
	PermKick           Permission = "kick"
)

// Default role identifiers created with every clan
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RankTier is a named progression level unlocked at MinPoints
type RankTier struct {
	Name      string `json:"name" toml:"name"`
	MinPoints int64  `json:"min_points" toml:"min_points"`
	Icon      string `json:"icon,omitempty" toml:"icon"`
	Color     string `json:"color,omitempty" toml:"color"`
	Gradient  string `json:"gradient,omitempty" toml:"gradient"`
}

// Player holds the balances and counters of the real player
type Player struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Points         int64  `json:"points"`
	Vault          int64  `json:"vault"`
	LifetimeClicks int64  `json:"lifetime_clicks"`
	Prestige       int64  `json:"prestige"`
	ClanID         string `json:"clan_id,omitempty"`
}

// ActiveBoost is one deployed boost; duplicates of a kind are allowed
type ActiveBoost struct {
	Kind      BoostKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Quest tracks progress toward a one-time reward
type Quest struct {
	ID          string    `json:"id" toml:"id"`
	Description string    `json:"description" toml:"description"`
	Kind        QuestKind `json:"kind" toml:"kind"`
	Target      int64     `json:"target" toml:"target"`
	Current     int64     `json:"current" toml:"-"`
	Reward      int64     `json:"reward" toml:"reward"`
	Claimed     bool      `json:"claimed" toml:"-"`
}

// ClanRole is a named permission set
type ClanRole struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// ClanMember is a real player or a simulated actor inside a clan
type ClanMember struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	RoleID   string    `json:"role_id"`
	Rank     RankTier  `json:"rank"`
	IsBot    bool      `json:"is_bot,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Channel is a clan chat channel with a bounded message feed
type Channel struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Messages []ChatMessage `json:"messages"`
}

// Clan is a player-formed group with a shared bank
type Clan struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	OwnerID    string        `json:"owner_id"`
	Balance    int64         `json:"balance"`
	ClanPoints int64         `json:"clan_points"`
	Members    []*ClanMember `json:"members"`
	Roles      []ClanRole    `json:"roles"`
	Channels   []*Channel    `json:"channels"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ChatMessage is a global or clan-scoped chat entry
type ChatMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text"`
	Rank       RankTier  `json:"rank"`
	FromPlayer bool      `json:"from_player,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	JoinClanID string    `json:"join_clan_id,omitempty"`
}

// State is the complete mutable world owned by one Engine
type State struct {
	Player     Player          `json:"player"`
	Boosts     []ActiveBoost   `json:"boosts"`
	Quests     []Quest         `json:"quests"`
	Clans      []*Clan         `json:"clans"`
	GlobalFeed []ChatMessage   `json:"global_feed"`
	UsedCodes  map[string]bool `json:"used_codes"`
	BanList    map[string]bool `json:"ban_list"`
	Privileged bool            `json:"privileged"`
}

// Identity is the trusted player identity handed to the engine
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PlayerView is a read-only projection of the player with derived fields
type PlayerView struct {
	Player
	Rank          RankTier  `json:"rank"`
	NextRank      *RankTier `json:"next_rank,omitempty"`
	TierProgress  float64   `json:"tier_progress"`
	ClickPower    int64     `json:"click_power"`
	PassiveIncome int64     `json:"passive_income"`
	Banned        bool      `json:"banned"`
	Privileged    bool      `json:"privileged"`
}

// StateView is the full read model returned to transports
type StateView struct {
	Player     PlayerView    `json:"player"`
	Boosts     []ActiveBoost `json:"boosts"`
	Quests     []Quest       `json:"quests"`
	Clan       *Clan         `json:"clan,omitempty"`
	GlobalFeed []ChatMessage `json:"global_feed"`
	Wager      WagerStatus   `json:"wager"`
	Now        time.Time     `json:"now"`
}
