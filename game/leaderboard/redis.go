package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

// DefaultPrefix namespaces leaderboard keys
const DefaultPrefix = "idle"

// Redis keeps scores in a sorted set and player details in a hash
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis creates a Redis-backed leaderboard. An empty prefix uses DefaultPrefix.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) scoresKey() string {
	return fmt.Sprintf("%s:lb", r.prefix)
}

func (r *Redis) playersKey() string {
	return fmt.Sprintf("%s:lb:players", r.prefix)
}

// Submit records the latest standing of a player
func (r *Redis) Submit(ctx context.Context, entry service.LeaderboardEntry) error {
	entry.Position = 0
	details, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal leaderboard entry: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, r.scoresKey(), redis.Z{
			Score:  float64(entry.Score),
			Member: entry.PlayerID,
		})
		pipe.HSet(ctx, r.playersKey(), entry.PlayerID, details)
		return nil
	})
	if err != nil {
		return fmt.Errorf("submit leaderboard entry: %w", err)
	}
	return nil
}

// Top returns up to limit entries by descending score
func (r *Redis) Top(ctx context.Context, limit int) ([]service.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := r.client.ZRevRangeWithScores(ctx, r.scoresKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	if len(results) == 0 {
		return []service.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(results))
	for i, z := range results {
		ids[i] = z.Member.(string)
	}
	details, err := r.client.HMGet(ctx, r.playersKey(), ids...).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read leaderboard players: %w", err)
	}

	entries := make([]service.LeaderboardEntry, len(results))
	for i, z := range results {
		entry := service.LeaderboardEntry{PlayerID: ids[i]}
		if i < len(details) {
			if raw, ok := details[i].(string); ok {
				_ = json.Unmarshal([]byte(raw), &entry)
			}
		}
		entry.PlayerID = ids[i]
		entry.Score = int64(z.Score)
		entry.Position = i + 1
		entries[i] = entry
	}
	return entries, nil
}

// Rank returns the 1-indexed position of a player, or -1 when absent
func (r *Redis) Rank(ctx context.Context, playerID string) (int64, error) {
	rank, err := r.client.ZRevRank(ctx, r.scoresKey(), playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

// Remove drops a player
func (r *Redis) Remove(ctx context.Context, playerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.scoresKey(), playerID)
		pipe.HDel(ctx, r.playersKey(), playerID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove leaderboard entry: %w", err)
	}
	return nil
}
