// Package websocket pushes live player state to browser clients.
//
// A Hub keeps the open connections of each player and fans out messages to
// them. Connections are opened with /ws?player=<id> and are receive-only;
// anything a client sends just keeps the connection alive.
//
// Message Protocol:
//
// Outgoing messages are JSON:
//   - {"player_id": "neo", "event": "state_update", "state": {...}} after an action
//   - {"player_id": "neo", "event": "tick", "data": {...}} after a simulation tick
//
// Several messages queued for the same client are written in one frame,
// separated by newlines.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.BroadcastState(playerID, view)
//
// Concurrency:
//
// Broadcasts never block the caller. Messages for players nobody watches are
// skipped, a full hub queue drops new messages, and a client that cannot keep
// up is disconnected.
package websocket
