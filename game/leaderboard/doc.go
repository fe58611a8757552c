// Package leaderboard ranks players across worlds.
//
// Each world only knows its own player, so cross-player standings live
// outside the engine. Memory keeps them in process; Redis keeps them in a
// sorted set so several server processes can share one board.
package leaderboard
