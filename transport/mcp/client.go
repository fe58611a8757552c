package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

// MaxClicksPerCall bounds the click tool's count argument
const MaxClicksPerCall = 100

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Idle Clicker",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Idle Clicker - MCP Interface

This is a thin client that proxies all requests to the REST API server.
Every tool except list_economies, global_leaderboard and game_instructions
needs a player_id. Call create_player first; it opens the world if it exists.

Rejected actions (not enough points, banned, missing permission) are normal
game answers, not failures. Read the message and choose another action.

Call game_instructions for the rules.`),
	)

	c.registerTools()
}

// toolParam describes one input property of a tool
type toolParam struct {
	name        string
	kind        string // "string", "integer"
	description string
	required    bool
	enum        []string
}

var playerParam = toolParam{name: "player_id", kind: "string", description: "Player ID", required: true}
var clanParam = toolParam{name: "clan_id", kind: "string", description: "Clan ID", required: true}
var amountParam = toolParam{name: "amount", kind: "integer", description: "Amount of points", required: true}

func (c *Client) addTool(name, description string, params []toolParam, handler server.ToolHandlerFunc) {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.kind,
			"description": p.description,
		}
		if len(p.enum) > 0 {
			prop["enum"] = p.enum
		}
		properties[p.name] = prop
		if p.required {
			required = append(required, p.name)
		}
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: properties,
			Required:   required,
		},
	}, handler)
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	boostKinds := []string{
		string(engine.BoostBarium), string(engine.BoostRadium), string(engine.BoostXenon),
		string(engine.BoostIridium), string(engine.BoostCobalt), string(engine.BoostPlutonium),
		string(engine.BoostAntimatter),
	}

	// Player worlds
	c.addTool("create_player", "Create or open a player's world", []toolParam{
		playerParam,
		{name: "display_name", kind: "string", description: "Display name (optional)"},
		{name: "economy", kind: "string", description: "Economy config ID (optional, see list_economies)"},
	}, c.handleCreatePlayer)
	c.addTool("list_players", "List open player worlds", nil, c.handleListPlayers)
	c.addTool("game_state", "Get the player's balances, rank, boosts, quests and clan", []toolParam{playerParam}, c.handleGameState)

	// Economy
	c.addTool("click", "Click for points, optionally several times in a row", []toolParam{
		playerParam,
		{name: "count", kind: "integer", description: fmt.Sprintf("Number of clicks, 1-%d (default 1)", MaxClicksPerCall)},
	}, c.handleClick)
	c.addTool("deploy_boost", "Buy and activate a boost", []toolParam{
		playerParam,
		{name: "kind", kind: "string", description: "Boost kind", required: true, enum: boostKinds},
	}, c.handleDeployBoost)
	c.addTool("vault_deposit", "Move points into the vault", []toolParam{playerParam, amountParam}, c.handleVaultDeposit)
	c.addTool("vault_withdraw", "Move points out of the vault", []toolParam{playerParam, amountParam}, c.handleVaultWithdraw)
	c.addTool("wager", "Gamble points; the outcome is revealed after a short delay", []toolParam{playerParam, amountParam}, c.handleWager)
	c.addTool("wager_status", "Show the latest wager and whether it is revealed", []toolParam{playerParam}, c.handleWagerStatus)
	c.addTool("ascend", "Reset points for a permanent prestige bonus (top rank only)", []toolParam{playerParam}, c.handleAscend)
	c.addTool("redeem", "Redeem a code", []toolParam{
		playerParam,
		{name: "code", kind: "string", description: "Redemption code", required: true},
	}, c.handleRedeem)
	c.addTool("claim_quest", "Claim a completed quest's reward", []toolParam{
		playerParam,
		{name: "quest_id", kind: "string", description: "Quest ID", required: true},
	}, c.handleClaimQuest)
	c.addTool("rename", "Change the display name", []toolParam{
		playerParam,
		{name: "display_name", kind: "string", description: "New display name", required: true},
	}, c.handleRename)

	// Chat
	c.addTool("post_chat", "Post to the global chat", []toolParam{
		playerParam,
		{name: "text", kind: "string", description: "Message text", required: true},
	}, c.handlePostChat)
	c.addTool("read_chat", "Read the global chat feed", []toolParam{playerParam}, c.handleReadChat)

	// Clans
	c.addTool("create_clan", "Found a clan", []toolParam{
		playerParam,
		{name: "name", kind: "string", description: "Clan name", required: true},
	}, c.handleCreateClan)
	c.addTool("search_clans", "Fuzzy search clans by name", []toolParam{
		playerParam,
		{name: "query", kind: "string", description: "Search text (empty lists all)"},
	}, c.handleSearchClans)
	c.addTool("join_clan", "Join a clan", []toolParam{playerParam, clanParam}, c.handleJoinClan)
	c.addTool("leave_clan", "Leave the current clan", []toolParam{playerParam, clanParam}, c.handleLeaveClan)
	c.addTool("recruit", "Broadcast a recruitment message for a clan", []toolParam{playerParam, clanParam}, c.handleRecruit)
	c.addTool("clan_deposit", "Deposit points into the clan bank", []toolParam{playerParam, clanParam, amountParam}, c.handleClanDeposit)
	c.addTool("clan_withdraw", "Withdraw points from the clan bank", []toolParam{playerParam, clanParam, amountParam}, c.handleClanWithdraw)
	c.addTool("clan_message", "Post in a clan channel", []toolParam{
		playerParam, clanParam,
		{name: "channel_id", kind: "string", description: "Channel ID (default: general)"},
		{name: "text", kind: "string", description: "Message text", required: true},
	}, c.handleClanMessage)
	c.addTool("kick_member", "Remove a member from the clan", []toolParam{
		playerParam, clanParam,
		{name: "member_id", kind: "string", description: "Member ID", required: true},
	}, c.handleKickMember)
	c.addTool("set_member_role", "Assign a role to a clan member", []toolParam{
		playerParam, clanParam,
		{name: "member_id", kind: "string", description: "Member ID", required: true},
		{name: "role_id", kind: "string", description: "Role ID", required: true, enum: []string{engine.RoleAdmin, engine.RoleMember}},
	}, c.handleSetMemberRole)
	c.addTool("add_channel", "Create a clan channel", []toolParam{
		playerParam, clanParam,
		{name: "name", kind: "string", description: "Channel name", required: true},
	}, c.handleAddChannel)

	// Rankings
	c.addTool("leaderboard", "Rank the player against the simulated population and clans", []toolParam{playerParam}, c.handleLeaderboard)
	c.addTool("global_leaderboard", "Rank real players across all worlds", []toolParam{
		{name: "limit", kind: "integer", description: "Entries to return (default 10)"},
	}, c.handleGlobalLeaderboard)

	// Administration
	c.addTool("admin", "Privileged operations (requires an admin code to be redeemed first)", []toolParam{
		playerParam,
		{name: "action", kind: "string", description: "Admin action", required: true, enum: []string{
			service.AdminInject, service.AdminBan, service.AdminUnban,
			service.AdminMaxTier, service.AdminResetQuests, service.AdminWipe,
		}},
		{name: "amount", kind: "integer", description: "Points for inject"},
		{name: "alias", kind: "string", description: "Alias for ban/unban"},
	}, c.handleAdmin)

	// Configuration and help
	c.addTool("list_economies", "List available economy configurations", nil, c.handleListEconomies)
	c.addTool("game_instructions", "Get the rules of the idle clicker", nil, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func playerPath(playerID, suffix string) string {
	return "/api/players/" + url.PathEscape(playerID) + suffix
}

func clanPath(playerID, clanID, suffix string) string {
	return playerPath(playerID, "/clans/"+url.PathEscape(clanID)+suffix)
}

// toolArgs reads loosely typed tool arguments
type toolArgs map[string]interface{}

func argsOf(request mcp.CallToolRequest) toolArgs {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return toolArgs(args)
}

func (a toolArgs) str(key string) string {
	s, _ := a[key].(string)
	return strings.TrimSpace(s)
}

func (a toolArgs) int64(key string) int64 {
	switch v := a[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// postAction posts to a player route and formats the ActionResult
func (c *Client) postAction(ctx context.Context, path string, body interface{}) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

// Tool handlers

func (c *Client) handleCreatePlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	body := service.CreatePlayerRequest{
		ID:          args.str("player_id"),
		DisplayName: args.str("display_name"),
		Economy:     args.str("economy"),
	}

	var player service.PlayerInfo
	if err := c.apiCall(ctx, "POST", "/api/players", body, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayerInfo(&player)), nil
}

func (c *Client) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Players []service.PlayerInfo `json:"players"`
	}
	if err := c.apiCall(ctx, "GET", "/api/players", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open Worlds (%d):\n\n", response.Count)
	for _, p := range response.Players {
		fmt.Fprintf(&b, "- %s \"%s\" (Economy: %s, Last active: %s)\n",
			p.ID, p.DisplayName, p.Economy, p.LastAccessedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.StateView
	if err := c.apiCall(ctx, "GET", playerPath(argsOf(request).str("player_id"), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	count := args.int64("count")
	if count <= 0 {
		count = 1
	}
	if count > MaxClicksPerCall {
		return mcp.NewToolResultError(fmt.Sprintf("count must be between 1 and %d", MaxClicksPerCall)), nil
	}

	path := playerPath(args.str("player_id"), "/click")
	var (
		last     service.ActionResult
		executed int64
		earned   int64
		crits    int
	)
	for executed < count {
		last = service.ActionResult{}
		if err := c.apiCall(ctx, "POST", path, nil, &last); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !last.Success {
			break
		}
		executed++
		if last.Click != nil {
			earned += last.Click.Yield
			if last.Click.Critical {
				crits++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Clicks: %d/%d | Earned: %d | Critical hits: %d\n", executed, count, earned, crits)
	if !last.Success {
		fmt.Fprintf(&b, "Stopped: %s\n", last.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatState(last.State))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleDeployBoost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/boosts"),
		map[string]string{"kind": strings.ToLower(args.str("kind"))})
}

func (c *Client) handleVaultDeposit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/vault/deposit"),
		map[string]int64{"amount": args.int64("amount")})
}

func (c *Client) handleVaultWithdraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/vault/withdraw"),
		map[string]int64{"amount": args.int64("amount")})
}

func (c *Client) handleWager(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/wager"),
		map[string]int64{"amount": args.int64("amount")})
}

func (c *Client) handleWagerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status engine.WagerStatus
	if err := c.apiCall(ctx, "GET", playerPath(argsOf(request).str("player_id"), "/wager"), nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatWagerStatus(&status)), nil
}

func (c *Client) handleAscend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.postAction(ctx, playerPath(argsOf(request).str("player_id"), "/ascend"), nil)
}

func (c *Client) handleRedeem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/redeem"),
		map[string]string{"code": args.str("code")})
}

func (c *Client) handleClaimQuest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/quests/"+url.PathEscape(args.str("quest_id"))+"/claim"), nil)
}

func (c *Client) handleRename(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/rename"),
		map[string]string{"display_name": args.str("display_name")})
}

func (c *Client) handlePostChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/chat"),
		map[string]string{"text": args.str("text")})
}

func (c *Client) handleReadChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Messages []engine.ChatMessage `json:"messages"`
	}
	if err := c.apiCall(ctx, "GET", playerPath(argsOf(request).str("player_id"), "/chat"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatFeed("Global chat", response.Messages)), nil
}

func (c *Client) handleCreateClan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, playerPath(args.str("player_id"), "/clans"),
		map[string]string{"name": args.str("name")})
}

func (c *Client) handleSearchClans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	path := playerPath(args.str("player_id"), "/clans?q="+url.QueryEscape(args.str("query")))

	var response struct {
		Count int            `json:"count"`
		Clans []*engine.Clan `json:"clans"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Clans (%d):\n", response.Count)
	for _, clan := range response.Clans {
		fmt.Fprintf(&b, "- %s [%s] members=%d clan_points=%d\n", clan.Name, clan.ID, len(clan.Members), clan.ClanPoints)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleJoinClan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/join"), nil)
}

func (c *Client) handleLeaveClan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/leave"), nil)
}

func (c *Client) handleRecruit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/recruit"), nil)
}

func (c *Client) handleClanDeposit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/deposit"),
		map[string]int64{"amount": args.int64("amount")})
}

func (c *Client) handleClanWithdraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/withdraw"),
		map[string]int64{"amount": args.int64("amount")})
}

func (c *Client) handleClanMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/messages"),
		map[string]string{"channel_id": args.str("channel_id"), "text": args.str("text")})
}

func (c *Client) handleKickMember(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/kick"),
		map[string]string{"member_id": args.str("member_id")})
}

func (c *Client) handleSetMemberRole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/roles"),
		map[string]string{"member_id": args.str("member_id"), "role_id": args.str("role_id")})
}

func (c *Client) handleAddChannel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	return c.postAction(ctx, clanPath(args.str("player_id"), args.str("clan_id"), "/channels"),
		map[string]string{"name": args.str("name")})
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var board engine.Leaderboard
	if err := c.apiCall(ctx, "GET", playerPath(argsOf(request).str("player_id"), "/leaderboard"), nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatLeaderboard(&board)), nil
}

func (c *Client) handleGlobalLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/leaderboard"
	if limit := argsOf(request).int64("limit"); limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}

	var response struct {
		Entries []service.LeaderboardEntry `json:"entries"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Top players:\n")
	for _, e := range response.Entries {
		fmt.Fprintf(&b, "%d. %s (%s) %d points, %s, prestige %d\n", e.Position, e.DisplayName, e.PlayerID, e.Score, e.Rank, e.Prestige)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleAdmin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	body := service.AdminRequest{
		Amount: args.int64("amount"),
		Alias:  args.str("alias"),
	}
	return c.postAction(ctx, playerPath(args.str("player_id"), "/admin/"+url.PathEscape(args.str("action"))), body)
}

func (c *Client) handleListEconomies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/economies", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available economies:\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%d tiers up to %s, %d boosts, tick %s)\n",
			cfg.ConfigID, cfg.Name, cfg.Tiers, cfg.TopTier, cfg.Boosts, cfg.TickInterval)
		if cfg.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cfg.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `IDLE CLICKER - RULES

POINTS
- Each click earns click power points; some boosts add critical hits.
- Passive income is paid every tick while passive boosts are active.
- Your rank is decided by points on hand; the vault does not count.

BOOSTS (deploy_boost)
- Bought with points and active for a limited time. Several copies stack.
- barium, plutonium, antimatter: passive income every tick.
- radium: doubles click power. cobalt: chance of a 5x critical click.
- xenon: shields your next losing wager.
- iridium: clan deposits earn 1.5x clan points.

VAULT
- Points in the vault are not at risk and do not count for rank.

WAGERS
- Bet up to your balance. The result is revealed after a short delay;
  check it with wager_status.

QUESTS
- Progress accrues automatically (clicks, clan points, chat, boosts).
- Claim a completed quest once with claim_quest.

CLANS
- Create or join one clan. Deposits earn clan points for everyone.
- Owners and admins can withdraw, kick, assign roles and add channels.
- Leaving as owner hands the clan to the earliest-joined member.

ASCENSION
- At the top rank, ascend to reset points and gain one prestige level.
  Each prestige level raises click power permanently.

STRATEGY
1. Click early, then buy passive boosts as soon as they pay back.
2. Keep points you can't afford to lose in the vault before wagering.
3. Join an active clan; clan deposits count toward quests.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatPlayerInfo(player *service.PlayerInfo) string {
	return fmt.Sprintf("Player: %s (%s)\nEconomy: %s\nCreated: %s\n\n%s",
		player.ID, player.DisplayName, player.Economy,
		player.CreatedAt.Format("2006-01-02 15:04:05"),
		formatState(player.State))
}

func formatState(state *engine.StateView) string {
	if state == nil {
		return "No state available"
	}

	var b strings.Builder
	p := state.Player

	fmt.Fprintf(&b, "%s | Rank: %s | Points: %d | Vault: %d | Prestige: %d\n",
		p.DisplayName, p.Rank.Name, p.Points, p.Vault, p.Prestige)
	fmt.Fprintf(&b, "Click power: %d | Passive income: %d/tick | Lifetime clicks: %d\n",
		p.ClickPower, p.PassiveIncome, p.LifetimeClicks)
	if p.NextRank != nil {
		fmt.Fprintf(&b, "Next rank: %s at %d (%.0f%%)\n", p.NextRank.Name, p.NextRank.MinPoints, p.TierProgress*100)
	} else {
		b.WriteString("Top rank reached: ascension available\n")
	}
	if p.Banned {
		b.WriteString("BANNED: actions are rejected\n")
	}
	if p.Privileged {
		b.WriteString("Privileged mode: admin tools enabled\n")
	}

	if len(state.Boosts) > 0 {
		b.WriteString("\nActive boosts:\n")
		for _, boost := range state.Boosts {
			remaining := boost.ExpiresAt.Sub(state.Now).Round(time.Second)
			fmt.Fprintf(&b, "- %s (%s left)\n", boost.Kind, remaining)
		}
	}

	if len(state.Quests) > 0 {
		b.WriteString("\nQuests:\n")
		for _, q := range state.Quests {
			status := fmt.Sprintf("%d/%d", q.Current, q.Target)
			switch {
			case q.Claimed:
				status = "claimed"
			case q.Current >= q.Target:
				status = "ready to claim"
			}
			fmt.Fprintf(&b, "- [%s] %s: %s (reward %d)\n", q.ID, q.Description, status, q.Reward)
		}
	}

	if state.Clan != nil {
		clan := state.Clan
		fmt.Fprintf(&b, "\nClan: %s [%s] | Bank: %d | Clan points: %d | Members: %d\n",
			clan.Name, clan.ID, clan.Balance, clan.ClanPoints, len(clan.Members))
	}

	if state.Wager.Result != nil {
		fmt.Fprintf(&b, "\n%s\n", formatWagerStatus(&state.Wager))
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "OK: %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "REJECTED (%s): %s\n", result.Code, result.Message)
	}

	if result.Click != nil {
		crit := ""
		if result.Click.Critical {
			crit = " CRITICAL"
		}
		fmt.Fprintf(&b, "Click: +%d%s\n", result.Click.Yield, crit)
	}
	if result.Redeem != nil && result.Redeem.Message != "" {
		fmt.Fprintf(&b, "Code: %s\n", result.Redeem.Message)
	}
	if result.Wager != nil {
		fmt.Fprintf(&b, "Wager of %d placed; revealed at %s\n", result.Wager.Amount, result.Wager.RevealAt.Format("15:04:05"))
	}
	if result.Clan != nil {
		fmt.Fprintf(&b, "Clan: %s [%s]\n", result.Clan.Name, result.Clan.ID)
	}
	if result.Credited != 0 {
		fmt.Fprintf(&b, "Credited: %d\n", result.Credited)
	}

	b.WriteString("\n")
	b.WriteString(formatState(result.State))
	return b.String()
}

func formatWagerStatus(status *engine.WagerStatus) string {
	if status.Result == nil {
		return "Wager: none placed"
	}
	r := status.Result
	if status.Phase == engine.WagerResolving {
		return fmt.Sprintf("Wager: %d pending, revealed at %s", r.Amount, r.RevealAt.Format("15:04:05"))
	}
	return fmt.Sprintf("Wager: %d -> %s, payout %d", r.Amount, r.Outcome, r.Payout)
}

func formatFeed(title string, messages []engine.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", title, len(messages))
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s (%s): %s", m.Timestamp.Format("15:04:05"), m.Sender, m.Rank.Name, m.Text)
		if m.JoinClanID != "" {
			fmt.Fprintf(&b, " [join: %s]", m.JoinClanID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLeaderboard(board *engine.Leaderboard) string {
	var b strings.Builder
	b.WriteString("Players:\n")
	for i, e := range board.Players {
		marker := ""
		if e.IsPlayer {
			marker = " <- you"
		}
		fmt.Fprintf(&b, "%d. %s %d (%s)%s\n", i+1, e.Name, e.Score, e.Rank.Name, marker)
	}
	if len(board.Clans) > 0 {
		b.WriteString("\nClans:\n")
		for i, clan := range board.Clans {
			fmt.Fprintf(&b, "%d. %s %d clan points, %d members\n", i+1, clan.Name, clan.ClanPoints, clan.Members)
		}
	}
	return b.String()
}
