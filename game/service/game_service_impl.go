package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	configs     ConfigManager
	leaderboard Leaderboard
	logger      *slog.Logger
	mu          sync.RWMutex
}

// ServiceOption configures the game service
type ServiceOption func(*gameServiceImpl)

// WithLeaderboard publishes player scores to a cross-world leaderboard
func WithLeaderboard(lb Leaderboard) ServiceOption {
	return func(s *gameServiceImpl) { s.leaderboard = lb }
}

// WithServiceLogger sets the structured logger
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...ServiceOption) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePlayer opens the world for a player, creating it on first use
func (s *gameServiceImpl) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*PlayerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(req.ID) == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidRequest)
	}
	if req.Economy != "" {
		if _, err := s.configs.LoadConfig(req.Economy); err != nil {
			// Provide helpful error message with available options
			availableConfigs, listErr := s.configs.ListConfigs()
			if listErr == nil && len(availableConfigs) > 0 {
				var configIDs []string
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("%w: economy '%s' not found. Available economies: %v", ErrInvalidRequest, req.Economy, configIDs)
			}
			return nil, fmt.Errorf("failed to load economy %s: %w", req.Economy, err)
		}
	}

	sess, err := s.sessions.GetOrCreate(req.ID, req.DisplayName, req.Economy)
	if err != nil {
		return nil, fmt.Errorf("failed to open player world: %w", err)
	}

	view := sess.Engine.View()
	s.submit(ctx, sess, view)
	return playerInfo(sess, &view), nil
}

// GetPlayer retrieves player world information
func (s *gameServiceImpl) GetPlayer(ctx context.Context, playerID string) (*PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	view := sess.Engine.View()
	return playerInfo(sess, &view), nil
}

// ListPlayers returns all open worlds without their state
func (s *gameServiceImpl) ListPlayers(ctx context.Context) ([]*PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*PlayerInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, playerInfo(sess, nil))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeletePlayer removes a world and its leaderboard entry
func (s *gameServiceImpl) DeletePlayer(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(playerID); err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete player %s: %w", playerID, err)
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.Remove(ctx, playerID); err != nil {
			s.logger.Warn("failed to remove leaderboard entry", "player_id", playerID, "error", err)
		}
	}
	return nil
}

// GetState returns the read model of a world
func (s *gameServiceImpl) GetState(ctx context.Context, playerID string) (*engine.StateView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	view := sess.Engine.View()
	return &view, nil
}

// Click credits one click
func (s *gameServiceImpl) Click(ctx context.Context, playerID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		click, err := eng.Click()
		if err != nil {
			return "", err
		}
		res.Click = &click
		if click.Critical {
			return fmt.Sprintf("Critical hit! +%d", click.Yield), nil
		}
		return fmt.Sprintf("+%d", click.Yield), nil
	})
}

// DeployBoost buys and activates a boost
func (s *gameServiceImpl) DeployBoost(ctx context.Context, playerID string, kind engine.BoostKind) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		boost, err := eng.DeployBoost(kind)
		if err != nil {
			return "", err
		}
		res.Boost = &boost
		return fmt.Sprintf("%s deployed until %s", kind, boost.ExpiresAt.Format("15:04:05")), nil
	})
}

// VaultDeposit moves points into the vault
func (s *gameServiceImpl) VaultDeposit(ctx context.Context, playerID string, amount int64) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.VaultDeposit(amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved %d to vault", amount), nil
	})
}

// VaultWithdraw moves points out of the vault
func (s *gameServiceImpl) VaultWithdraw(ctx context.Context, playerID string, amount int64) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.VaultWithdraw(amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("Withdrew %d from vault", amount), nil
	})
}

// Wager stakes points on the gamble terminal
func (s *gameServiceImpl) Wager(ctx context.Context, playerID string, amount int64) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		result, err := eng.Wager(amount)
		if err != nil {
			return "", err
		}
		res.Wager = &result
		return fmt.Sprintf("Wager %s: net %+d", result.Outcome, result.Net()), nil
	})
}

// WagerStatus reports the presentation phase of the latest wager
func (s *gameServiceImpl) WagerStatus(ctx context.Context, playerID string) (*engine.WagerStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	status := sess.Engine.WagerStatus()
	return &status, nil
}

// Ascend trades the run for a prestige level
func (s *gameServiceImpl) Ascend(ctx context.Context, playerID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		prestige, err := eng.Ascend()
		if err != nil {
			return "", err
		}
		res.Prestige = prestige
		return fmt.Sprintf("Ascended to prestige %d", prestige), nil
	})
}

// Redeem applies a redemption code
func (s *gameServiceImpl) Redeem(ctx context.Context, playerID, code string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		result, err := eng.Redeem(code)
		if err != nil {
			return "", err
		}
		res.Redeem = &result
		return result.Message, nil
	})
}

// ClaimQuest pays out a completed quest
func (s *gameServiceImpl) ClaimQuest(ctx context.Context, playerID, questID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		quest, err := eng.ClaimQuest(questID)
		if err != nil {
			return "", err
		}
		res.Quest = &quest
		return fmt.Sprintf("Claimed %d from %s", quest.Reward, quest.ID), nil
	})
}

// Rename changes the player's display name
func (s *gameServiceImpl) Rename(ctx context.Context, playerID, displayName string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.Rename(displayName); err != nil {
			return "", err
		}
		return "Display name updated", nil
	})
}

// PostGlobalMessage posts to the global feed
func (s *gameServiceImpl) PostGlobalMessage(ctx context.Context, playerID, text string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		msg, err := eng.PostGlobalMessage(text)
		if err != nil {
			return "", err
		}
		res.Chat = &msg
		return "Message posted", nil
	})
}

// GlobalFeed returns the global chat feed
func (s *gameServiceImpl) GlobalFeed(ctx context.Context, playerID string) ([]engine.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GlobalFeed(), nil
}

// CreateClan founds a clan
func (s *gameServiceImpl) CreateClan(ctx context.Context, playerID, name string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		clan, err := eng.CreateClan(name)
		if err != nil {
			return "", err
		}
		res.Clan = clan
		return fmt.Sprintf("Clan %s created", clan.Name), nil
	})
}

// JoinClan joins an existing clan
func (s *gameServiceImpl) JoinClan(ctx context.Context, playerID, clanID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		clan, err := eng.JoinClan(clanID)
		if err != nil {
			return "", err
		}
		res.Clan = clan
		return fmt.Sprintf("Joined %s", clan.Name), nil
	})
}

// LeaveClan leaves the player's clan
func (s *gameServiceImpl) LeaveClan(ctx context.Context, playerID, clanID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.LeaveClan(clanID); err != nil {
			return "", err
		}
		return "Left clan", nil
	})
}

// ClanDeposit moves points into the clan bank
func (s *gameServiceImpl) ClanDeposit(ctx context.Context, playerID, clanID string, amount int64) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		credited, err := eng.DepositToClan(clanID, amount)
		if err != nil {
			return "", err
		}
		res.Credited = credited
		return fmt.Sprintf("Deposited %d (bank credited %d)", amount, credited), nil
	})
}

// ClanWithdraw moves points from the clan bank to the player
func (s *gameServiceImpl) ClanWithdraw(ctx context.Context, playerID, clanID string, amount int64) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.WithdrawFromClan(clanID, amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("Withdrew %d from clan bank", amount), nil
	})
}

// BroadcastRecruitment advertises the player's clan on the global feed
func (s *gameServiceImpl) BroadcastRecruitment(ctx context.Context, playerID, clanID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		msg, err := eng.BroadcastRecruitment(clanID)
		if err != nil {
			return "", err
		}
		res.Chat = &msg
		return "Recruitment broadcast sent", nil
	})
}

// PostClanMessage posts to a clan channel
func (s *gameServiceImpl) PostClanMessage(ctx context.Context, playerID, clanID, channelID, text string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		msg, err := eng.PostClanMessage(clanID, channelID, text)
		if err != nil {
			return "", err
		}
		res.Chat = &msg
		return "Message posted", nil
	})
}

// KickMember removes a member from the clan
func (s *gameServiceImpl) KickMember(ctx context.Context, playerID, clanID, memberID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.KickMember(clanID, memberID); err != nil {
			return "", err
		}
		return "Member removed", nil
	})
}

// SetMemberRole assigns a clan role
func (s *gameServiceImpl) SetMemberRole(ctx context.Context, playerID, clanID, memberID, roleID string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := eng.SetMemberRole(clanID, memberID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Role %s assigned", roleID), nil
	})
}

// AddChannel creates a clan channel
func (s *gameServiceImpl) AddChannel(ctx context.Context, playerID, clanID, name string) (*ActionResult, error) {
	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		channel, err := eng.AddChannel(clanID, name)
		if err != nil {
			return "", err
		}
		res.Channel = channel
		return fmt.Sprintf("Channel #%s created", channel.ID), nil
	})
}

// SearchClans fuzzy-matches clan names
func (s *gameServiceImpl) SearchClans(ctx context.Context, playerID, query string) ([]*engine.Clan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.SearchClans(query), nil
}

// Leaderboard returns the in-world leaderboard
func (s *gameServiceImpl) Leaderboard(ctx context.Context, playerID string) (*engine.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}
	board := sess.Engine.Leaderboard()
	return &board, nil
}

// Admin runs a privileged operation
func (s *gameServiceImpl) Admin(ctx context.Context, playerID string, req AdminRequest) (*ActionResult, error) {
	var run func(eng *engine.Engine) error
	switch req.Action {
	case AdminInject:
		run = func(eng *engine.Engine) error { return eng.InjectPoints(req.Amount) }
	case AdminBan:
		run = func(eng *engine.Engine) error { return eng.BanAlias(req.Alias) }
	case AdminUnban:
		run = func(eng *engine.Engine) error { return eng.UnbanAlias(req.Alias) }
	case AdminMaxTier:
		run = func(eng *engine.Engine) error { return eng.SetMaxTier() }
	case AdminResetQuests:
		run = func(eng *engine.Engine) error { return eng.ResetQuests() }
	case AdminWipe:
		run = func(eng *engine.Engine) error { return eng.Wipe() }
	default:
		return nil, fmt.Errorf("%w: unknown admin action %q", ErrInvalidRequest, req.Action)
	}

	return s.act(ctx, playerID, func(eng *engine.Engine, res *ActionResult) (string, error) {
		if err := run(eng); err != nil {
			return "", err
		}
		s.logger.Info("admin action", "player_id", playerID, "action", req.Action)
		return fmt.Sprintf("Admin %s applied", req.Action), nil
	})
}

// GlobalLeaderboard ranks players across worlds. Without a configured
// leaderboard the open worlds are ranked directly.
func (s *gameServiceImpl) GlobalLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.leaderboard != nil {
		entries, err := s.leaderboard.Top(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaderboard: %w", err)
		}
		return entries, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []LeaderboardEntry
	for _, sess := range s.sessions.List() {
		entries = append(entries, leaderboardEntry(sess.Engine.View()))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}

// ListConfigs returns all available economy configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific economy configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.EconomyConfig, error) {
	return s.configs.LoadConfig(configName)
}

// player fetches an open world and touches its access time
func (s *gameServiceImpl) player(playerID string) (*Session, error) {
	sess, err := s.sessions.Get(playerID)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPlayerNotFound, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		s.logger.Debug("failed to update last access", "player_id", sess.ID, "error", err)
	}
	return sess, nil
}

// act runs fn against a player's engine. Business rejections become an
// unsuccessful result carrying the unchanged state; other failures are errors.
func (s *gameServiceImpl) act(ctx context.Context, playerID string, fn func(eng *engine.Engine, res *ActionResult) (string, error)) (*ActionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.player(playerID)
	if err != nil {
		return nil, err
	}

	res := &ActionResult{}
	message, err := fn(sess.Engine, res)
	if err != nil {
		if !engine.IsRejection(err) {
			return nil, err
		}
		view := sess.Engine.View()
		return &ActionResult{
			Success: false,
			Message: err.Error(),
			Code:    RejectionCode(err),
			State:   &view,
		}, nil
	}

	view := sess.Engine.View()
	res.Success = true
	res.Message = message
	res.State = &view
	s.submit(ctx, sess, view)
	return res, nil
}

func (s *gameServiceImpl) submit(ctx context.Context, sess *Session, view engine.StateView) {
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.Submit(ctx, leaderboardEntry(view)); err != nil {
		s.logger.Warn("failed to submit leaderboard entry", "player_id", sess.ID, "error", err)
	}
}

func leaderboardEntry(view engine.StateView) LeaderboardEntry {
	p := view.Player
	return LeaderboardEntry{
		PlayerID:    p.ID,
		DisplayName: p.DisplayName,
		Score:       p.Points,
		Prestige:    p.Prestige,
		Rank:        p.Rank.Name,
	}
}

func playerInfo(sess *Session, view *engine.StateView) *PlayerInfo {
	return &PlayerInfo{
		ID:             sess.ID,
		DisplayName:    sess.DisplayName,
		Economy:        sess.Economy,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          view,
	}
}
