// Package ratelimit gates placement attempts to one per user per interval.
//
// The last-attempt map is the only engine state living outside the
// transactional store. It is sharded by user id so concurrent requests from
// different users never contend on one lock; requests from the same user
// serialize on their shard for the duration of the check-and-update only,
// never across the subsequent transaction. A rejected-later attempt (bad
// funds, conflict) still consumes its slot: the slot is burned at the check,
// which keeps balance-probing spam out.
package ratelimit

import (
	"sync"
	"time"
)

const shardCount = 16

type shard struct {
	mu   sync.Mutex
	last map[int64]time.Time
}

// Limiter enforces a per-user minimum interval between attempts.
type Limiter struct {
	interval time.Duration
	shards   [shardCount]shard
}

func New(interval time.Duration) *Limiter {
	l := &Limiter{interval: interval}
	for i := range l.shards {
		l.shards[i].last = make(map[int64]time.Time)
	}
	return l
}

// Allow reports whether the user may attempt a placement at now, recording
// now as the new last-attempt time when it does. Last-writer-wins on the
// timestamp; the invariant is that no two allowed attempts from the same
// user fall within the interval.
func (l *Limiter) Allow(userID int64, now time.Time) bool {
	s := &l.shards[uint64(userID)%shardCount]
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	s.last[userID] = now
	return true
}

// Len returns the number of tracked users, for introspection in tests.
func (l *Limiter) Len() int {
	n := 0
	for i := range l.shards {
		l.shards[i].mu.Lock()
		n += len(l.shards[i].last)
		l.shards[i].mu.Unlock()
	}
	return n
}
