package engine

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// Rand is the random source used by wagers, crits and simulated actors.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source; a zero seed uses the current time
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// randRange returns a value in [lo, hi)
func randRange(r Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(r.Intn(int(hi-lo)))
}

func pick(r Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[r.Intn(len(pool))]
}

// seedFor derives a stable non-zero seed from key
func seedFor(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64()>>1) | 1
}
