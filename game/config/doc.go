// Package config provides economy configuration management for the idle clicker server.
//
// The config package handles:
//   - Loading economy tables from JSON or TOML files
//   - Configuration validation through engine.ValidateEconomyConfig
//   - Default economy selection with a built-in fallback
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Economies are stored as <name>.json or <name>.toml files in the configs
// directory. Each file is decoded over the built-in economy, so a file only
// needs the values it changes. An economy defines:
//   - Rank tiers and the ascension tier
//   - Boost costs, durations and effects
//   - Clan, wager and simulated actor tuning
//   - Redemption codes and quests
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific economy
//	economy, err := manager.LoadConfig("hardcore")
//
//	// Get default economy
//	defaultEconomy := manager.GetDefault()
//
//	// List available economies
//	economies, err := manager.ListConfigs()
//
// Caching:
//
// Parsed economies are kept in a bounded LRU cache. RefreshCache drops the
// cache so edited files are picked up.
package config
