// Package service provides the business logic layer for the idle clicker economy.
//
// The service package implements:
//   - Per-player world management on top of the session layer
//   - Economy configuration listing and loading
//   - Conversion of engine rejections into ActionResult values
//   - Publishing scores to a cross-world leaderboard
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles world creation, retrieval and lifecycle.
// ConfigManager manages economy configuration loading and validation.
// Leaderboard ranks players across worlds.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Each player owns exactly one engine; the engine serializes its
// own mutations, so the service only coordinates lookup, rejection mapping and
// leaderboard updates.
//
// Usage:
//
//	configMgr, _ := config.NewManager("configs")
//	sessionMgr := session.NewManager(configMgr, session.WithPersistence(store))
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreatePlayer(ctx, service.CreatePlayerRequest{ID: "neo"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Click(ctx, info.ID)
//
// Rejections:
//
// Expected business failures such as insufficient funds come back as an
// ActionResult with Success=false and a stable Code. Only infrastructure
// failures, unknown players and malformed requests are returned as errors.
package service
