// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	interval time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// PerMinute allows n events per minute per key with a burst of n. n <= 0
// disables limiting.
func PerMinute(n int) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		limit:    rate.Inf,
		interval: time.Second,
		idleTTL:  15 * time.Minute,
		now:      time.Now,
	}
	if n > 0 {
		s.interval = time.Minute / time.Duration(n)
		s.limit = rate.Every(s.interval)
		s.burst = n
	}
	return s
}

// Allow consumes one token for key.
func (s *Store) Allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	ent, ok := s.entries[key]
	if !ok {
		ent = &entry{lim: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = ent
	}
	ent.lastSeen = now
	s.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

// RetryAfter is how long a caller should wait for the next token.
func (s *Store) RetryAfter() time.Duration {
	return s.interval
}

// Cleanup drops keys idle for longer than the idle TTL.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Run cleans up every interval until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Cleanup()
		}
	}
}

func (s *Store) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
