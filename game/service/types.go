package service

import (
	"errors"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

var (
	// ErrPlayerNotFound is returned when no world exists for a player id
	ErrPlayerNotFound = errors.New("player not found")
	// ErrInvalidRequest marks malformed input that is not a game rejection
	ErrInvalidRequest = errors.New("invalid request")
)

// CreatePlayerRequest opens or creates a player world
type CreatePlayerRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Economy     string `json:"economy,omitempty"`
}

// PlayerInfo provides information about a player world
type PlayerInfo struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	Economy        string            `json:"economy"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	State          *engine.StateView `json:"state,omitempty"`
}

// ActionResult contains the result of a player action. Business rejections
// set Success=false with a Message and machine-friendly Code; they are not errors.
type ActionResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	State   *engine.StateView `json:"state,omitempty"`

	Click    *engine.ClickResult  `json:"click,omitempty"`
	Boost    *engine.ActiveBoost  `json:"boost,omitempty"`
	Wager    *engine.WagerResult  `json:"wager,omitempty"`
	Redeem   *engine.RedeemResult `json:"redeem,omitempty"`
	Quest    *engine.Quest        `json:"quest,omitempty"`
	Clan     *engine.Clan         `json:"clan,omitempty"`
	Chat     *engine.ChatMessage  `json:"chat,omitempty"`
	Channel  *engine.Channel      `json:"channel,omitempty"`
	Credited int64                `json:"credited,omitempty"`
	Prestige int64                `json:"prestige,omitempty"`
}

// Admin actions
const (
	AdminInject      = "inject"
	AdminBan         = "ban"
	AdminUnban       = "unban"
	AdminMaxTier     = "max-tier"
	AdminResetQuests = "reset-quests"
	AdminWipe        = "wipe"
)

// AdminRequest is a privileged operation
type AdminRequest struct {
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

// LeaderboardEntry is one player on the cross-world leaderboard
type LeaderboardEntry struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
	Prestige    int64  `json:"prestige"`
	Rank        string `json:"rank"`
	Position    int    `json:"position,omitempty"`
}

// ConfigInfo provides information about an economy configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for player creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	Format       string `json:"format"`
	Tiers        int    `json:"tiers"`
	Boosts       int    `json:"boosts"`
	TopTier      string `json:"top_tier"`
	AscensionAt  int64  `json:"ascension_at"`
	TickInterval string `json:"tick_interval"`
}

var rejectionCodes = []struct {
	err  error
	code string
}{
	{engine.ErrInvalidAmount, "invalid_amount"},
	{engine.ErrInsufficientFunds, "insufficient_funds"},
	{engine.ErrBanned, "banned"},
	{engine.ErrUnknownBoost, "unknown_boost"},
	{engine.ErrNotEligible, "not_eligible"},
	{engine.ErrQuestNotFound, "quest_not_found"},
	{engine.ErrInvalidName, "invalid_name"},
	{engine.ErrAlreadyInClan, "already_in_clan"},
	{engine.ErrClanFull, "clan_full"},
	{engine.ErrClanNotFound, "clan_not_found"},
	{engine.ErrNotMember, "not_member"},
	{engine.ErrPermissionDenied, "permission_denied"},
	{engine.ErrRoleNotFound, "role_not_found"},
	{engine.ErrInvalidCode, "invalid_code"},
	{engine.ErrAlreadyUsed, "already_used"},
	{engine.ErrNotPrivileged, "not_privileged"},
	{engine.ErrAscensionLocked, "ascension_locked"},
	{engine.ErrEmptyMessage, "empty_message"},
}

// RejectionCode maps a business rejection to a stable code; "" for anything else
func RejectionCode(err error) string {
	for _, rc := range rejectionCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return ""
}
