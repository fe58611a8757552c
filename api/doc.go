// Package api provides HTTP REST API handlers for the idle clicker server.
//
// The api package implements:
//   - Player world lifecycle endpoints
//   - Economy, chat and clan actions for one player
//   - Privileged administration endpoints
//   - Economy configuration listing
//   - Cross-player leaderboard
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Player Worlds:
//   - POST /api/players - Create or open a world {id, display_name, economy}
//   - GET /api/players - List open worlds (sort, order, limit)
//   - GET /api/players/{id} - Get world metadata and state
//   - DELETE /api/players/{id} - Delete a world
//   - GET /api/players/{id}/state - Get the current state view
//
// Economy:
//   - POST /api/players/{id}/click
//   - POST /api/players/{id}/boosts {kind}
//   - POST /api/players/{id}/vault/deposit|withdraw {amount}
//   - POST /api/players/{id}/wager {amount}, GET for the cooldown status
//   - POST /api/players/{id}/ascend
//   - POST /api/players/{id}/redeem {code}
//   - POST /api/players/{id}/quests/{quest}/claim
//   - POST /api/players/{id}/rename {display_name}
//
// Chat and Clans:
//   - POST|GET /api/players/{id}/chat
//   - POST /api/players/{id}/clans {name}, GET with ?q= to search
//   - POST /api/players/{id}/clans/{clan}/join|leave|recruit
//   - POST /api/players/{id}/clans/{clan}/deposit|withdraw {amount}
//   - POST /api/players/{id}/clans/{clan}/messages {channel_id, text}
//   - POST /api/players/{id}/clans/{clan}/kick {member_id}
//   - POST /api/players/{id}/clans/{clan}/roles {member_id, role_id}
//   - POST /api/players/{id}/clans/{clan}/channels {name}
//
// Administration:
//   - POST /api/players/{id}/admin/{inject|ban|unban|max-tier|reset-quests|wipe}
//
// Request/Response Format:
//
// All endpoints accept and return JSON. Actions always answer 200 with an
// ActionResult; a game rejection such as insufficient funds is reported as
// success=false with a code, never as an HTTP error:
//
//	{
//	  "success": false,
//	  "message": "insufficient funds",
//	  "code": "insufficient_funds",
//	  "state": { ... }
//	}
//
// Unknown players answer 404, malformed requests 400.
//
// WebSocket:
//
// Connect to /ws?player={id} to receive state updates after every action
// and on every tick of that player's world.
package api
