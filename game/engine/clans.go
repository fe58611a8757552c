package engine

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
)

// DefaultChannel is the channel every clan is created with
const DefaultChannel = "general"

// SystemSender is the sender name used for clan notices
const SystemSender = "SYSTEM"

// ClanRegistry manages clan lifecycle, membership, roles, the clan bank and clan feeds
type ClanRegistry struct {
	state  *State
	config *EconomyConfig
	ledger *Ledger
	quests *QuestTracker
	boosts *BoostManager
	newID  func() string
}

// NewClanRegistry binds a registry to state
func NewClanRegistry(state *State, config *EconomyConfig, ledger *Ledger, quests *QuestTracker, boosts *BoostManager) *ClanRegistry {
	return &ClanRegistry{
		state:  state,
		config: config,
		ledger: ledger,
		quests: quests,
		boosts: boosts,
		newID:  uuid.NewString,
	}
}

// DefaultRoles returns the roles every new clan starts with
func DefaultRoles() []ClanRole {
	return []ClanRole{
		{ID: RoleOwner, Name: "Commander", Permissions: []Permission{PermWithdraw, PermManageRoles, PermManageChannels, PermKick}},
		{ID: RoleAdmin, Name: "Officer", Permissions: []Permission{PermWithdraw, PermManageChannels}},
		{ID: RoleMember, Name: "Agent", Permissions: []Permission{}},
	}
}

// NormalizeClanName trims and upper-cases a clan name, enforcing the length limit
func NormalizeClanName(name string, maxLen int) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || utf8.RuneCountInString(name) > maxLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create founds a clan owned by the player, charging the creation cost
func (r *ClanRegistry) Create(name string, now time.Time) (*Clan, error) {
	name, err := NormalizeClanName(name, r.config.Clans.NameMaxLength)
	if err != nil {
		return nil, err
	}
	if r.state.Player.ClanID != "" {
		return nil, ErrAlreadyInClan
	}
	if r.config.Clans.CreationCost > 0 {
		if err := r.ledger.Debit(r.config.Clans.CreationCost); err != nil {
			return nil, err
		}
	}

	clan := &Clan{
		ID:        r.newID(),
		Name:      name,
		OwnerID:   r.state.Player.ID,
		Members:   []*ClanMember{r.playerMember(RoleOwner, now)},
		Roles:     DefaultRoles(),
		Channels:  []*Channel{{ID: DefaultChannel, Name: DefaultChannel, Messages: []ChatMessage{}}},
		CreatedAt: now,
	}
	r.state.Clans = append(r.state.Clans, clan)
	r.state.Player.ClanID = clan.ID
	return clan, nil
}

// Join adds the player to an existing clan
func (r *ClanRegistry) Join(clanID string, now time.Time) (*Clan, error) {
	if r.state.Player.ClanID != "" {
		return nil, ErrAlreadyInClan
	}
	clan, err := r.Get(clanID)
	if err != nil {
		return nil, err
	}
	if len(clan.Members) >= r.config.Clans.Capacity {
		return nil, ErrClanFull
	}
	clan.Members = append(clan.Members, r.playerMember(RoleMember, now))
	r.state.Player.ClanID = clan.ID
	return clan, nil
}

// AddSimulated adds a simulated member; it reports false when the clan is full
// or already has a member with that name.
func (r *ClanRegistry) AddSimulated(clan *Clan, name string, score int64, now time.Time) (*ClanMember, bool) {
	if len(clan.Members) >= r.config.Clans.Capacity {
		return nil, false
	}
	for _, m := range clan.Members {
		if strings.EqualFold(m.Name, name) {
			return nil, false
		}
	}
	member := &ClanMember{
		ID:       "bot-" + r.newID(),
		Name:     name,
		RoleID:   RoleMember,
		Rank:     ResolveTier(r.config.Tiers, score),
		IsBot:    true,
		JoinedAt: now,
	}
	clan.Members = append(clan.Members, member)
	return member, true
}

// Leave removes memberID from the clan. When the owner leaves, the earliest
// remaining member becomes owner; a clan with no members is dissolved.
func (r *ClanRegistry) Leave(clanID, memberID string) error {
	clan, err := r.Get(clanID)
	if err != nil {
		return err
	}
	if !r.removeMember(clan, memberID) {
		return ErrNotMember
	}
	if memberID == r.state.Player.ID {
		r.state.Player.ClanID = ""
	}

	if len(clan.Members) == 0 {
		r.dissolve(clan.ID)
		return nil
	}
	if clan.OwnerID == memberID {
		successor := clan.Members[0]
		for _, m := range clan.Members[1:] {
			if m.JoinedAt.Before(successor.JoinedAt) {
				successor = m
			}
		}
		successor.RoleID = RoleOwner
		clan.OwnerID = successor.ID
	}
	return nil
}

// Deposit moves amount from the player's ledger into the clan bank, applying
// the active deposit multiplier.
func (r *ClanRegistry) Deposit(clanID string, amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	clan, err := r.memberClan(clanID)
	if err != nil {
		return 0, err
	}
	if err := r.ledger.Debit(amount); err != nil {
		return 0, err
	}

	credited := int64(float64(amount) * r.boosts.Effects(now).DepositMultiplier)
	r.credit(clan, credited)
	r.quests.Advance(QuestClanPoints, amount/r.config.Clans.PointUnit)
	return credited, nil
}

// Withdraw moves amount from the clan bank to the player's ledger
func (r *ClanRegistry) Withdraw(clanID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	clan, err := r.memberClan(clanID)
	if err != nil {
		return err
	}
	if !r.HasPermission(clan, r.state.Player.ID, PermWithdraw) {
		return ErrPermissionDenied
	}
	if clan.Balance < amount {
		return ErrInsufficientFunds
	}
	if err := r.ledger.Credit(amount); err != nil {
		return err
	}
	clan.Balance -= amount
	recomputeClanPoints(clan, r.config.Clans.PointUnit)
	return nil
}

// Kick removes another member; the owner cannot be kicked
func (r *ClanRegistry) Kick(clanID, memberID string) error {
	clan, err := r.memberClan(clanID)
	if err != nil {
		return err
	}
	if !r.HasPermission(clan, r.state.Player.ID, PermKick) {
		return ErrPermissionDenied
	}
	if memberID == clan.OwnerID || memberID == r.state.Player.ID {
		return ErrPermissionDenied
	}
	if !r.removeMember(clan, memberID) {
		return ErrNotMember
	}
	return nil
}

// SetRole assigns roleID to memberID. Assigning the owner role transfers ownership.
func (r *ClanRegistry) SetRole(clanID, memberID, roleID string) error {
	clan, err := r.memberClan(clanID)
	if err != nil {
		return err
	}
	if !r.HasPermission(clan, r.state.Player.ID, PermManageRoles) {
		return ErrPermissionDenied
	}
	if findRole(clan, roleID) == nil {
		return ErrRoleNotFound
	}
	target := findMember(clan, memberID)
	if target == nil {
		return ErrNotMember
	}
	if target.ID == clan.OwnerID {
		return ErrPermissionDenied
	}

	if roleID == RoleOwner {
		if clan.OwnerID != r.state.Player.ID {
			return ErrPermissionDenied
		}
		if previous := findMember(clan, clan.OwnerID); previous != nil {
			previous.RoleID = RoleAdmin
		}
		clan.OwnerID = target.ID
	}
	target.RoleID = roleID
	return nil
}

// AddChannel creates a new clan channel
func (r *ClanRegistry) AddChannel(clanID, name string) (*Channel, error) {
	clan, err := r.memberClan(clanID)
	if err != nil {
		return nil, err
	}
	if !r.HasPermission(clan, r.state.Player.ID, PermManageChannels) {
		return nil, ErrPermissionDenied
	}
	id := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if id == "" || utf8.RuneCountInString(id) > r.config.Clans.NameMaxLength || findChannel(clan, id) != nil {
		return nil, ErrInvalidName
	}

	channel := &Channel{ID: id, Name: id, Messages: []ChatMessage{}}
	clan.Channels = append(clan.Channels, channel)
	return channel, nil
}

// PostMessage appends a message to a clan channel; an empty channelID means the default channel
func (r *ClanRegistry) PostMessage(clan *Clan, channelID string, msg ChatMessage) (ChatMessage, error) {
	if channelID == "" {
		channelID = DefaultChannel
	}
	channel := findChannel(clan, channelID)
	if channel == nil && channelID == DefaultChannel && len(clan.Channels) > 0 {
		channel = clan.Channels[0]
	}
	if channel == nil {
		return ChatMessage{}, fmt.Errorf("%w: channel %q", ErrInvalidName, channelID)
	}
	if msg.ID == "" {
		msg.ID = r.newID()
	}
	channel.Messages = appendBounded(channel.Messages, msg, r.config.FeedLimit)
	return msg, nil
}

// HasPermission reports whether memberID holds perm. The owner holds every permission.
func (r *ClanRegistry) HasPermission(clan *Clan, memberID string, perm Permission) bool {
	if clan.OwnerID == memberID {
		return true
	}
	member := findMember(clan, memberID)
	if member == nil {
		return false
	}
	role := findRole(clan, member.RoleID)
	return role != nil && slices.Contains(role.Permissions, perm)
}

// Get finds a clan by id
func (r *ClanRegistry) Get(clanID string) (*Clan, error) {
	for _, clan := range r.state.Clans {
		if clan.ID == clanID {
			return clan, nil
		}
	}
	return nil, ErrClanNotFound
}

// Current returns the player's clan or nil
func (r *ClanRegistry) Current() *Clan {
	if r.state.Player.ClanID == "" {
		return nil
	}
	clan, _ := r.Get(r.state.Player.ClanID)
	return clan
}

type clanNames []*Clan

func (c clanNames) String(i int) string { return c[i].Name }
func (c clanNames) Len() int            { return len(c) }

// Search returns clans whose names fuzzy-match query, best match first.
// An empty query returns the ranking.
func (r *ClanRegistry) Search(query string) []*Clan {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return r.Ranking()
	}
	matches := fuzzy.FindFrom(query, clanNames(r.state.Clans))
	result := make([]*Clan, 0, len(matches))
	for _, m := range matches {
		result = append(result, r.state.Clans[m.Index])
	}
	return result
}

// Ranking returns clans ordered by clan points, then name
func (r *ClanRegistry) Ranking() []*Clan {
	ranked := append([]*Clan(nil), r.state.Clans...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ClanPoints != ranked[j].ClanPoints {
			return ranked[i].ClanPoints > ranked[j].ClanPoints
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// SimulatedMembers returns the bot members of clan
func SimulatedMembers(clan *Clan) []*ClanMember {
	var bots []*ClanMember
	for _, m := range clan.Members {
		if m.IsBot {
			bots = append(bots, m)
		}
	}
	return bots
}

func (r *ClanRegistry) credit(clan *Clan, amount int64) {
	clan.Balance = addSaturating(clan.Balance, amount)
	recomputeClanPoints(clan, r.config.Clans.PointUnit)
}

// recomputeClanPoints is the only place clan points are derived from the bank balance
func recomputeClanPoints(clan *Clan, unit int64) {
	if clan.Balance < 0 {
		clan.Balance = 0
	}
	clan.ClanPoints = clan.Balance / unit
}

func (r *ClanRegistry) memberClan(clanID string) (*Clan, error) {
	clan, err := r.Get(clanID)
	if err != nil {
		return nil, err
	}
	if findMember(clan, r.state.Player.ID) == nil {
		return nil, ErrNotMember
	}
	return clan, nil
}

func (r *ClanRegistry) playerMember(roleID string, now time.Time) *ClanMember {
	return &ClanMember{
		ID:       r.state.Player.ID,
		Name:     r.state.Player.DisplayName,
		RoleID:   roleID,
		Rank:     ResolveTier(r.config.Tiers, r.state.Player.Points),
		JoinedAt: now,
	}
}

func (r *ClanRegistry) removeMember(clan *Clan, memberID string) bool {
	for i, m := range clan.Members {
		if m.ID == memberID {
			clan.Members = append(clan.Members[:i], clan.Members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *ClanRegistry) dissolve(clanID string) {
	r.state.Clans = slices.DeleteFunc(r.state.Clans, func(c *Clan) bool { return c.ID == clanID })
}

func findMember(clan *Clan, memberID string) *ClanMember {
	for _, m := range clan.Members {
		if m.ID == memberID {
			return m
		}
	}
	return nil
}

func findRole(clan *Clan, roleID string) *ClanRole {
	for i := range clan.Roles {
		if clan.Roles[i].ID == roleID {
			return &clan.Roles[i]
		}
	}
	return nil
}

func findChannel(clan *Clan, channelID string) *Channel {
	for _, ch := range clan.Channels {
		if ch.ID == channelID {
			return ch
		}
	}
	return nil
}

// appendBounded appends msg and keeps only the newest limit entries
func appendBounded(feed []ChatMessage, msg ChatMessage, limit int) []ChatMessage {
	feed = append(feed, msg)
	if limit > 0 && len(feed) > limit {
		feed = append([]ChatMessage(nil), feed[len(feed)-limit:]...)
	}
	return feed
}
