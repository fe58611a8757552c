package leaderboard

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

var (
	_ service.Leaderboard = (*Memory)(nil)
	_ service.Leaderboard = (*Redis)(nil)
)

func exerciseLeaderboard(t *testing.T, lb service.Leaderboard) {
	ctx := context.Background()

	submit := func(id string, score int64) {
		t.Helper()
		err := lb.Submit(ctx, service.LeaderboardEntry{PlayerID: id, DisplayName: "P-" + id, Score: score, Rank: "Novice", Position: 99})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	submit("a", 100)
	submit("b", 300)
	submit("c", 200)
	submit("a", 400)

	top, err := lb.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(top))
	}
	if top[0].PlayerID != "a" || top[0].Score != 400 || top[0].Position != 1 {
		t.Errorf("Expected a with 400 first, got %+v", top[0])
	}
	if top[1].PlayerID != "b" || top[1].Position != 2 {
		t.Errorf("Expected b second, got %+v", top[1])
	}
	if top[0].DisplayName != "P-a" {
		t.Errorf("Expected display name P-a, got %s", top[0].DisplayName)
	}

	if err := lb.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	top, _ = lb.Top(ctx, 10)
	if len(top) != 2 || top[0].PlayerID != "b" {
		t.Errorf("Expected b to lead after removal, got %+v", top)
	}
}

func TestMemory(t *testing.T) {
	exerciseLeaderboard(t, NewMemory())

	t.Run("ties break by player id", func(t *testing.T) {
		lb := NewMemory()
		ctx := context.Background()
		lb.Submit(ctx, service.LeaderboardEntry{PlayerID: "z", Score: 5})
		lb.Submit(ctx, service.LeaderboardEntry{PlayerID: "m", Score: 5})

		top, _ := lb.Top(ctx, 0)
		if top[0].PlayerID != "m" || top[1].PlayerID != "z" {
			t.Errorf("Expected m before z, got %+v", top)
		}
	})
}

// TestRedis runs against a live server when REDIS_ADDR is set
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	prefix := fmt.Sprintf("idle-test-%d", time.Now().UnixNano())
	lb := NewRedis(client, prefix)
	defer client.Del(ctx, lb.scoresKey(), lb.playersKey())

	exerciseLeaderboard(t, lb)

	rank, err := lb.Rank(ctx, "c")
	if err != nil || rank != 2 {
		t.Errorf("Expected c at rank 2, got %d, %v", rank, err)
	}
	if rank, _ := lb.Rank(ctx, "missing"); rank != -1 {
		t.Errorf("Expected -1 for missing player, got %d", rank)
	}
}
