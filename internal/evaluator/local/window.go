package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dhawalhost/gatewarden/internal/policy"
)

// Count is the counter state after recording one request.
type Count struct {
	// Used is the number of requests counted in the current window,
	// including this one.
	Used int
	// Reset is when the counter next frees capacity: the window boundary
	// for fixed windows, the expiry of the oldest event for sliding ones.
	Reset time.Time
}

// CounterStore records a request against a window-scoped counter. Keys are
// derived from the fingerprint, so counters are per-actor.
type CounterStore interface {
	Incr(ctx context.Context, key string, w policy.Window, now time.Time) (Count, error)
}

type fixedEntry struct {
	start    time.Time
	count    int
	lastSeen time.Time
}

type slidingEntry struct {
	events   []time.Time
	lastSeen time.Time
}

const cleanupInterval = 2 * time.Minute

// MemoryStore is the in-process CounterStore. Suitable for a single instance;
// use the Redis store when decisions must be shared across replicas. Idle
// keys are evicted lazily from Incr, so the store owns no goroutine and needs
// no Close.
type MemoryStore struct {
	mu          sync.Mutex
	fixed       map[string]*fixedEntry
	sliding     map[string]*slidingEntry
	idleTTL     time.Duration
	nextCleanup time.Time
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fixed:   make(map[string]*fixedEntry),
		sliding: make(map[string]*slidingEntry),
		idleTTL: 15 * time.Minute,
	}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, w policy.Window, now time.Time) (Count, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextCleanup) {
		s.evictIdle(now)
		s.nextCleanup = now.Add(cleanupInterval)
	}

	switch w.Kind {
	case policy.WindowFixed:
		start := now.Truncate(w.Period)
		ent, ok := s.fixed[key]
		if !ok || !ent.start.Equal(start) {
			ent = &fixedEntry{start: start}
			s.fixed[key] = ent
		}
		ent.count++
		ent.lastSeen = now
		return Count{Used: ent.count, Reset: start.Add(w.Period)}, nil

	case policy.WindowSliding:
		ent, ok := s.sliding[key]
		if !ok {
			ent = &slidingEntry{}
			s.sliding[key] = ent
		}
		cutoff := now.Add(-w.Period)
		kept := ent.events[:0]
		for _, ts := range ent.events {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		ent.events = append(kept, now)
		ent.lastSeen = now
		return Count{Used: len(ent.events), Reset: ent.events[0].Add(w.Period)}, nil

	default:
		return Count{}, fmt.Errorf("unknown window kind %q", w.Kind)
	}
}

// evictIdle drops keys idle past the TTL. The caller holds the lock.
func (s *MemoryStore) evictIdle(now time.Time) {
	cutoff := now.Add(-s.idleTTL)

	for k, ent := range s.fixed {
		if ent.lastSeen.Before(cutoff) {
			delete(s.fixed, k)
		}
	}
	for k, ent := range s.sliding {
		if ent.lastSeen.Before(cutoff) {
			delete(s.sliding, k)
		}
	}
}
