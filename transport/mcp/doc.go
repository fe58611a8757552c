// Package mcp exposes the idle clicker to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API, so an agent sees exactly what an HTTP client sees.
//
// MCP Tools:
//
// Worlds: create_player, list_players, game_state.
// Economy: click (with an optional count), deploy_boost, vault_deposit,
// vault_withdraw, wager, wager_status, ascend, redeem, claim_quest, rename.
// Chat: post_chat, read_chat.
// Clans: create_clan, search_clans, join_clan, leave_clan, recruit,
// clan_deposit, clan_withdraw, clan_message, kick_member, set_member_role,
// add_channel.
// Rankings: leaderboard, global_leaderboard.
// Other: admin, list_economies, game_instructions.
//
// Rejections come back as ordinary text prefixed with REJECTED and the
// rejection code; only transport failures are reported as tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
