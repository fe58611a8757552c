package leaderboard

import (
	"context"
	"sort"
	"sync"

	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

// Memory is an in-process leaderboard
type Memory struct {
	mu      sync.RWMutex
	entries map[string]service.LeaderboardEntry
}

// NewMemory creates an empty in-process leaderboard
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]service.LeaderboardEntry)}
}

// Submit records the latest standing of a player
func (m *Memory) Submit(ctx context.Context, entry service.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Position = 0
	m.entries[entry.PlayerID] = entry
	return nil
}

// Top returns up to limit entries by descending score. Ties are broken by
// player id.
func (m *Memory) Top(ctx context.Context, limit int) ([]service.LeaderboardEntry, error) {
	m.mu.RLock()
	entries := make([]service.LeaderboardEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}

// Remove drops a player
func (m *Memory) Remove(ctx context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, playerID)
	return nil
}
