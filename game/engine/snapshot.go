package engine

import (
	"encoding/json"
	"strings"
	"time"
)

// SnapshotVersion is the current snapshot layout
const SnapshotVersion = 1

// Snapshot is a full, self-contained copy of a world. Revision increases by one
// with every committed mutation.
type Snapshot struct {
	Version  int       `json:"version"`
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"saved_at"`
	State
}

// SnapshotSink receives a snapshot after every mutation. It is called while
// the world is locked, so it must not call back into the engine.
type SnapshotSink interface {
	SaveSnapshot(snapshot *Snapshot) error
}

// SnapshotSinkFunc adapts a function to SnapshotSink
type SnapshotSinkFunc func(snapshot *Snapshot) error

// SaveSnapshot calls f
func (f SnapshotSinkFunc) SaveSnapshot(snapshot *Snapshot) error { return f(snapshot) }

// NewState creates a fresh world for identity
func NewState(config *EconomyConfig, identity Identity) *State {
	return &State{
		Player: Player{
			ID:          identity.ID,
			DisplayName: normalizeDisplayName(identity.DisplayName, identity.ID),
		},
		Boosts:     []ActiveBoost{},
		Quests:     freshQuests(config),
		Clans:      []*Clan{},
		GlobalFeed: []ChatMessage{},
		UsedCodes:  make(map[string]bool),
		BanList:    make(map[string]bool),
	}
}

// LoadSnapshot restores a world from raw bytes. Each field is decoded on its
// own; a missing or corrupt field falls back to its default and its name is
// returned in recovered. Invariants are re-established before returning.
func LoadSnapshot(raw []byte, config *EconomyConfig, identity Identity) (snapshot *Snapshot, recovered []string) {
	fresh := NewState(config, identity)
	snapshot = &Snapshot{Version: SnapshotVersion, State: *fresh}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return snapshot, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return snapshot, []string{"snapshot"}
	}

	decode := func(name string, dst any) bool {
		data, ok := fields[name]
		if !ok || string(data) == "null" {
			return false
		}
		if err := json.Unmarshal(data, dst); err != nil {
			recovered = append(recovered, name)
			return false
		}
		return true
	}

	var revision int64
	if decode("revision", &revision) && revision > 0 {
		snapshot.Revision = revision
	}
	var savedAt time.Time
	if decode("saved_at", &savedAt) {
		snapshot.SavedAt = savedAt
	}

	state := &snapshot.State
	var player Player
	if decode("player", &player) {
		state.Player = player
	}
	var boosts []ActiveBoost
	if decode("boosts", &boosts) {
		state.Boosts = boosts
	}
	var quests []Quest
	if decode("quests", &quests) {
		state.Quests = quests
	} else if _, present := fields["quests"]; !present {
		recovered = append(recovered, "quests")
	}
	var clans []*Clan
	if decode("clans", &clans) {
		state.Clans = clans
	}
	var feed []ChatMessage
	if decode("global_feed", &feed) {
		state.GlobalFeed = feed
	}
	var used map[string]bool
	if decode("used_codes", &used) {
		state.UsedCodes = used
	}
	var bans map[string]bool
	if decode("ban_list", &bans) {
		state.BanList = bans
	}
	var privileged bool
	if decode("privileged", &privileged) {
		state.Privileged = privileged
	}

	sanitizeState(state, config, identity)
	return snapshot, recovered
}

// sanitizeState clamps balances, drops malformed entries and repairs membership
func sanitizeState(state *State, config *EconomyConfig, identity Identity) {
	p := &state.Player
	if identity.ID != "" {
		p.ID = identity.ID
	}
	p.DisplayName = normalizeDisplayName(p.DisplayName, p.ID)
	p.Points = max(p.Points, 0)
	p.Vault = max(p.Vault, 0)
	p.LifetimeClicks = max(p.LifetimeClicks, 0)
	p.Prestige = max(p.Prestige, 0)

	known := make(map[BoostKind]bool, len(config.Boosts))
	for _, spec := range config.Boosts {
		known[spec.Kind] = true
	}
	boosts := make([]ActiveBoost, 0, len(state.Boosts))
	for _, b := range state.Boosts {
		if known[b.Kind] && !b.ExpiresAt.IsZero() {
			boosts = append(boosts, b)
		}
	}
	state.Boosts = boosts

	state.Quests = sanitizeQuests(state.Quests, config)
	state.Clans = sanitizeClans(state.Clans, p, config)
	state.GlobalFeed = trimFeed(state.GlobalFeed, config.FeedLimit)
	state.UsedCodes = normalizeSet(state.UsedCodes)
	state.BanList = normalizeSet(state.BanList)
}

func sanitizeQuests(quests []Quest, config *EconomyConfig) []Quest {
	seen := make(map[string]bool)
	kept := make([]Quest, 0, len(quests))
	for _, q := range quests {
		if q.ID == "" || seen[q.ID] || q.Target < 1 {
			continue
		}
		switch q.Kind {
		case QuestClicks, QuestClanPoints, QuestChat, QuestLab:
		default:
			continue
		}
		seen[q.ID] = true
		q.Current = min(max(q.Current, 0), q.Target)
		q.Reward = max(q.Reward, 0)
		kept = append(kept, q)
	}
	if len(kept) == 0 {
		return freshQuests(config)
	}
	return kept
}

func sanitizeClans(clans []*Clan, player *Player, config *EconomyConfig) []*Clan {
	kept := make([]*Clan, 0, len(clans))
	ids := make(map[string]bool)
	playerClan := ""

	for _, clan := range clans {
		if clan == nil || clan.ID == "" || ids[clan.ID] {
			continue
		}
		ids[clan.ID] = true

		members := make([]*ClanMember, 0, len(clan.Members))
		seen := make(map[string]bool)
		for _, m := range clan.Members {
			if m == nil || m.ID == "" || seen[m.ID] || len(members) >= config.Clans.Capacity {
				continue
			}
			if m.ID == player.ID {
				// a player belongs to at most one clan
				if playerClan != "" {
					continue
				}
				playerClan = clan.ID
			}
			seen[m.ID] = true
			members = append(members, m)
		}
		if len(members) == 0 {
			continue
		}
		clan.Members = members

		if len(clan.Roles) == 0 {
			clan.Roles = DefaultRoles()
		}
		for _, m := range clan.Members {
			if findRole(clan, m.RoleID) == nil {
				m.RoleID = RoleMember
			}
		}
		if findMember(clan, clan.OwnerID) == nil {
			clan.OwnerID = clan.Members[0].ID
			clan.Members[0].RoleID = RoleOwner
		}

		channels := make([]*Channel, 0, len(clan.Channels))
		for _, ch := range clan.Channels {
			if ch == nil || ch.ID == "" {
				continue
			}
			ch.Messages = trimFeed(ch.Messages, config.FeedLimit)
			channels = append(channels, ch)
		}
		if findChannelIn(channels, DefaultChannel) == nil {
			channels = append([]*Channel{{ID: DefaultChannel, Name: DefaultChannel, Messages: []ChatMessage{}}}, channels...)
		}
		clan.Channels = channels

		recomputeClanPoints(clan, config.Clans.PointUnit)
		kept = append(kept, clan)
	}

	player.ClanID = playerClan
	return kept
}

func findChannelIn(channels []*Channel, id string) *Channel {
	for _, ch := range channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func trimFeed(feed []ChatMessage, limit int) []ChatMessage {
	if feed == nil {
		return []ChatMessage{}
	}
	if limit > 0 && len(feed) > limit {
		return append([]ChatMessage(nil), feed[len(feed)-limit:]...)
	}
	return feed
}

func normalizeSet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k, v := range set {
		if key := NormalizeCode(k); key != "" && v {
			out[key] = true
		}
	}
	return out
}

func freshQuests(config *EconomyConfig) []Quest {
	source := config.Quests
	if len(source) == 0 {
		source = DefaultQuests()
	}
	quests := make([]Quest, len(source))
	for i, q := range source {
		q.Current = 0
		q.Claimed = false
		quests[i] = q
	}
	return quests
}

func normalizeDisplayName(name, fallback string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToUpper(strings.TrimSpace(fallback))
	}
	if name == "" {
		name = "AGENT"
	}
	return name
}

// cloneState returns a deep copy of state
func cloneState(s *State) State {
	out := State{
		Player:     s.Player,
		Boosts:     append([]ActiveBoost{}, s.Boosts...),
		Quests:     append([]Quest{}, s.Quests...),
		Clans:      make([]*Clan, 0, len(s.Clans)),
		GlobalFeed: append([]ChatMessage{}, s.GlobalFeed...),
		UsedCodes:  make(map[string]bool, len(s.UsedCodes)),
		BanList:    make(map[string]bool, len(s.BanList)),
		Privileged: s.Privileged,
	}
	for _, c := range s.Clans {
		out.Clans = append(out.Clans, cloneClan(c))
	}
	for k, v := range s.UsedCodes {
		out.UsedCodes[k] = v
	}
	for k, v := range s.BanList {
		out.BanList[k] = v
	}
	return out
}

// cloneClan returns a deep copy of clan
func cloneClan(c *Clan) *Clan {
	if c == nil {
		return nil
	}
	out := *c
	out.Members = make([]*ClanMember, len(c.Members))
	for i, m := range c.Members {
		member := *m
		out.Members[i] = &member
	}
	out.Roles = make([]ClanRole, len(c.Roles))
	for i, r := range c.Roles {
		r.Permissions = append([]Permission{}, r.Permissions...)
		out.Roles[i] = r
	}
	out.Channels = make([]*Channel, len(c.Channels))
	for i, ch := range c.Channels {
		channel := *ch
		channel.Messages = append([]ChatMessage{}, ch.Messages...)
		out.Channels[i] = &channel
	}
	return &out
}
