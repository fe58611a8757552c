// Package engine provides the core economy simulation for the idle clicker game.
//
// The engine package implements the progression and economy rules including:
//   - Rank tier resolution from point totals
//   - Timed boosts (passive income, click multipliers, crits, deposit multipliers, wager shields)
//   - The currency ledger with a vault that is excluded from spending
//   - Quest progress and claim-once rewards
//   - Clans with a shared bank, capability-set roles and bounded chat feeds
//   - Chance-based wagers with an injectable random source
//   - Simulated actors that deposit, chat and answer recruitment broadcasts
//   - A fixed-period simulation tick
//
// Core Types:
//
// Engine is the single-writer façade. Every public method takes the same
// exclusive lock, so a tick and a player action never interleave. State is
// the process-scoped world (player, clans, quests, boosts, feeds) and
// EconomyConfig holds the table-driven tuning loaded once at startup.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultEconomyConfig(), engine.Identity{ID: "p1", DisplayName: "NEO"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := eng.Click()
//	if err != nil {
//		// business rejection: errors.Is(err, engine.ErrBanned) ...
//	}
//
//	// Drive time manually in tests
//	report := eng.Tick()
//
// Persistence:
//
// The engine never writes to storage. LoadSnapshot restores a world from raw
// bytes (recovering each field independently) and every mutation emits a full
// Snapshot to the configured SnapshotSink.
package engine
