// Package eval wraps neural-network inference behind a bounded cache and an
// asynchronous batching queue, per spec.md sections 4.5 and 4.6. Inference
// itself (loading and running the model file) is outside this package's
// scope — Evaluator is the seam a concrete backend plugs into.
package eval

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// Result is one position's inference output: a per-vertex policy (plus an
// implicit pass probability folded into index len(Policy)-1 by convention)
// and a scalar value estimate from the side to move's perspective.
type Result struct {
	Policy []float32
	Value  float32
}

func (r Result) cost() int64 {
	return int64(8 + 4*len(r.Policy))
}

// Cache is a bounded, admission-policy-backed cache of Result keyed by
// position hash, built on Ristretto the way the teacher leans on
// third-party libraries for anything with non-trivial internal policy
// rather than hand-rolling an LRU (spec.md section 4.5's "bounded
// admission-policy cache").
type Cache struct {
	c *ristretto.Cache[uint64, Result]

	// Ristretto cannot enumerate its contents, so the cache keeps its own
	// bounded record of recently stored entries — the compact
	// (pass-probability, value) pairs the persistent store's warm-start
	// snapshot round-trips across process restarts.
	mu      sync.Mutex
	warm    map[uint64][2]float32
	warmCap int
}

// warmCap bounds the warm-entry record; old entries are dropped
// arbitrarily once full, which is fine for a best-effort warm start.
const defaultWarmCap = 4096

// NewCache builds a cache sized for maxEntries average-sized results.
func NewCache(maxEntries int64) (*Cache, error) {
	cfg := &ristretto.Config[uint64, Result]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries * 512,
		BufferItems: 64,
	}
	c, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{
		c:       c,
		warm:    make(map[uint64][2]float32),
		warmCap: defaultWarmCap,
	}, nil
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() { c.c.Close() }

// Get looks up a single exact key.
func (c *Cache) Get(key uint64) (Result, bool) {
	return c.c.Get(key)
}

// Probe performs the symmetry-aware lookup spec.md section 4.5 calls for:
// a position's 8 board symmetries are positionally distinct under a
// per-vertex Zobrist scheme, so the caller precomputes the hash under every
// symmetry (coord.Table.Symmetry composed with the board's own Zobrist
// tables) and Probe returns the first cache hit among them, along with
// which symmetry index matched so the caller can un-rotate the policy
// before handing it to search.
func (c *Cache) Probe(symHashes [8]uint64) (Result, int, bool) {
	for i, h := range symHashes {
		if r, ok := c.c.Get(h); ok {
			return r, i, true
		}
	}
	return Result{}, 0, false
}

// Set stores r under key, costed by its policy size, and records the
// entry's (pass-probability, value) pair for the warm-start snapshot.
func (c *Cache) Set(key uint64, r Result) {
	c.c.Set(key, r, r.cost())

	passProb := float32(0)
	if n := len(r.Policy); n > 0 {
		passProb = r.Policy[n-1]
	}
	c.mu.Lock()
	if len(c.warm) >= c.warmCap {
		for k := range c.warm {
			delete(c.warm, k)
			break
		}
	}
	c.warm[key] = [2]float32{passProb, r.Value}
	c.mu.Unlock()
}

// WarmEntries returns a copy of the recorded (pass-probability, value)
// pairs, keyed by position hash — the payload Store.SaveEvalWarm persists.
func (c *Cache) WarmEntries() map[uint64][2]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint64][2]float32, len(c.warm))
	for k, v := range c.warm {
		out[k] = v
	}
	return out
}

// Wait blocks until all pending Set calls have been applied, matching
// Ristretto's own eventually-consistent write path — used by tests and by
// Store's warm-start snapshot, which needs a stable view of the cache.
func (c *Cache) Wait() { c.c.Wait() }
