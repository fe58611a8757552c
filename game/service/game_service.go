package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Player worlds
	CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*PlayerInfo, error)
	GetPlayer(ctx context.Context, playerID string) (*PlayerInfo, error)
	ListPlayers(ctx context.Context) ([]*PlayerInfo, error)
	DeletePlayer(ctx context.Context, playerID string) error
	GetState(ctx context.Context, playerID string) (*engine.StateView, error)

	// Economy
	Click(ctx context.Context, playerID string) (*ActionResult, error)
	DeployBoost(ctx context.Context, playerID string, kind engine.BoostKind) (*ActionResult, error)
	VaultDeposit(ctx context.Context, playerID string, amount int64) (*ActionResult, error)
	VaultWithdraw(ctx context.Context, playerID string, amount int64) (*ActionResult, error)
	Wager(ctx context.Context, playerID string, amount int64) (*ActionResult, error)
	WagerStatus(ctx context.Context, playerID string) (*engine.WagerStatus, error)
	Ascend(ctx context.Context, playerID string) (*ActionResult, error)
	Redeem(ctx context.Context, playerID, code string) (*ActionResult, error)
	ClaimQuest(ctx context.Context, playerID, questID string) (*ActionResult, error)
	Rename(ctx context.Context, playerID, displayName string) (*ActionResult, error)

	// Chat
	PostGlobalMessage(ctx context.Context, playerID, text string) (*ActionResult, error)
	GlobalFeed(ctx context.Context, playerID string) ([]engine.ChatMessage, error)

	// Clans
	CreateClan(ctx context.Context, playerID, name string) (*ActionResult, error)
	JoinClan(ctx context.Context, playerID, clanID string) (*ActionResult, error)
	LeaveClan(ctx context.Context, playerID, clanID string) (*ActionResult, error)
	ClanDeposit(ctx context.Context, playerID, clanID string, amount int64) (*ActionResult, error)
	ClanWithdraw(ctx context.Context, playerID, clanID string, amount int64) (*ActionResult, error)
	BroadcastRecruitment(ctx context.Context, playerID, clanID string) (*ActionResult, error)
	PostClanMessage(ctx context.Context, playerID, clanID, channelID, text string) (*ActionResult, error)
	KickMember(ctx context.Context, playerID, clanID, memberID string) (*ActionResult, error)
	SetMemberRole(ctx context.Context, playerID, clanID, memberID, roleID string) (*ActionResult, error)
	AddChannel(ctx context.Context, playerID, clanID, name string) (*ActionResult, error)
	SearchClans(ctx context.Context, playerID, query string) ([]*engine.Clan, error)
	Leaderboard(ctx context.Context, playerID string) (*engine.Leaderboard, error)

	// Administration (privileged mode required)
	Admin(ctx context.Context, playerID string, req AdminRequest) (*ActionResult, error)

	// Cross-player leaderboard
	GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.EconomyConfig, error)
}

// SessionManager defines per-player world storage operations
type SessionManager interface {
	Create(id, displayName, economy string) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, displayName, economy string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles economy configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.EconomyConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.EconomyConfig
	SaveConfig(name string, config *engine.EconomyConfig) error
}

// Leaderboard ranks players across worlds
type Leaderboard interface {
	Submit(ctx context.Context, entry LeaderboardEntry) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Remove(ctx context.Context, playerID string) error
}

// Session is one player's open world
type Session struct {
	ID             string
	DisplayName    string
	Economy        string
	Engine         *engine.Engine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
