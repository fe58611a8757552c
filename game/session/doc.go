// Package session provides per-player world management for the idle clicker server.
//
// The session package implements:
//   - Thread-safe storage of one open engine per player id
//   - Write-through persistence of engine snapshots
//   - File and SQLite persistence backends
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager opens, restores and closes player worlds. Record is the persisted
// form of a world: metadata plus the raw engine snapshot.
//
// Session Identifiers:
//
// Player ids are supplied by the host, trimmed and lower-cased, and limited
// to letters, digits, '-' and '_' so they are safe as file names.
//
// Persistence:
//
// Every committed mutation reaches the configured SessionPersistence through
// the engine's snapshot sink. Loading goes through engine.LoadSnapshot, so a
// corrupt record yields a repaired or fresh world rather than an error.
//
// Usage:
//
//	store, err := session.OpenSQLite("data/worlds.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(configs,
//		session.WithPersistence(store),
//		session.WithScheduler(engine.TickerScheduler{}),
//	)
//
//	sess, err := manager.GetOrCreate("neo", "Neo", "")
//
// Cleanup:
//
// Idle worlds can be expired with CleanupExpiredSessions. They are saved,
// closed and reloaded from persistence on next access.
package session
