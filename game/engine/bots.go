package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BotReport summarizes what simulated actors did during one tick
type BotReport struct {
	Deposits       int   `json:"deposits"`
	Deposited      int64 `json:"deposited"`
	ClanMessages   int   `json:"clan_messages"`
	GlobalMessages int   `json:"global_messages"`
	Joins          int   `json:"joins"`
}

// Active reports whether anything happened
func (r BotReport) Active() bool {
	return r.Deposits > 0 || r.ClanMessages > 0 || r.GlobalMessages > 0 || r.Joins > 0
}

type pendingJoin struct {
	ClanID string
	DueAt  time.Time
}

// BotActivityGenerator drives simulated clan members and global chatter.
// Random draws happen in a fixed order so a scripted Rand replays a tick exactly:
// per clan with bots (deposit roll, chat roll, chat member, chat line), then the
// global roll (name, score, reply roll when the player spoke last, line), then
// due recruitment joins (join roll, name, score).
type BotActivityGenerator struct {
	state   *State
	config  *EconomyConfig
	rand    Rand
	clans   *ClanRegistry
	pending []pendingJoin
}

// NewBotActivityGenerator creates a generator bound to state
func NewBotActivityGenerator(state *State, config *EconomyConfig, rand Rand, clans *ClanRegistry) *BotActivityGenerator {
	return &BotActivityGenerator{state: state, config: config, rand: rand, clans: clans}
}

// ScheduleJoin queues a recruitment answer for clanID at due
func (g *BotActivityGenerator) ScheduleJoin(clanID string, due time.Time) {
	g.pending = append(g.pending, pendingJoin{ClanID: clanID, DueAt: due})
}

// Pending returns the number of queued recruitment answers
func (g *BotActivityGenerator) Pending() int { return len(g.pending) }

// Drop discards queued recruitment answers
func (g *BotActivityGenerator) Drop() { g.pending = nil }

// Step runs one tick of simulated activity
func (g *BotActivityGenerator) Step(now time.Time) BotReport {
	var report BotReport
	bots := g.config.Bots

	for _, clan := range g.state.Clans {
		members := SimulatedMembers(clan)
		if len(members) == 0 {
			continue
		}

		if g.rand.Float64() < bots.DepositChance && bots.DepositAmount > 0 {
			for range members {
				g.clans.credit(clan, bots.DepositAmount)
				report.Deposits++
				report.Deposited += bots.DepositAmount
			}
		}

		if g.rand.Float64() < bots.ClanChatChance {
			sender := members[g.rand.Intn(len(members))]
			msg := ChatMessage{
				Sender:    sender.Name,
				Text:      pick(g.rand, bots.ClanPool),
				Rank:      sender.Rank,
				Timestamp: now,
			}
			if _, err := g.clans.PostMessage(clan, DefaultChannel, msg); err == nil {
				report.ClanMessages++
			}
		}
	}

	if g.rand.Float64() < bots.GlobalChatChance {
		name := pick(g.rand, bots.Names)
		score := randRange(g.rand, 0, bots.GlobalScoreMax)
		pool := bots.GlobalPool
		if n := len(g.state.GlobalFeed); n > 0 && g.state.GlobalFeed[n-1].FromPlayer {
			if g.rand.Float64() < bots.ReplyChance {
				pool = bots.ReplyPool
			}
		}
		g.state.GlobalFeed = appendBounded(g.state.GlobalFeed, ChatMessage{
			ID:        uuid.NewString(),
			Sender:    name,
			Text:      pick(g.rand, pool),
			Rank:      ResolveTier(g.config.Tiers, score),
			Timestamp: now,
		}, g.config.FeedLimit)
		report.GlobalMessages++
	}

	report.Joins = g.resolveJoins(now)
	return report
}

func (g *BotActivityGenerator) resolveJoins(now time.Time) int {
	joins := 0
	remaining := g.pending[:0]
	for _, join := range g.pending {
		if join.DueAt.After(now) {
			remaining = append(remaining, join)
			continue
		}
		if g.rand.Float64() >= g.config.Bots.RecruitChance {
			continue
		}
		clan, err := g.clans.Get(join.ClanID)
		if err != nil {
			continue
		}
		name := pick(g.rand, g.config.Bots.Names)
		score := randRange(g.rand, 0, g.config.Bots.RecruitScoreMax)
		member, ok := g.clans.AddSimulated(clan, name, score, now)
		if !ok {
			continue
		}
		joins++
		_, _ = g.clans.PostMessage(clan, DefaultChannel, ChatMessage{
			Sender:    SystemSender,
			Text:      fmt.Sprintf("%s answered the recruitment call.", member.Name),
			Timestamp: now,
		})
	}
	g.pending = remaining
	return joins
}
