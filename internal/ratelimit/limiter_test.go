package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowAndReject(t *testing.T) {
	l := New(time.Second)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, l.Allow(1, now))
	assert.False(t, l.Allow(1, now), "immediate retry rejected")
	assert.False(t, l.Allow(1, now.Add(999*time.Millisecond)))
	assert.True(t, l.Allow(1, now.Add(time.Second)), "interval elapsed")
}

func TestLimiter_UsersIndependent(t *testing.T) {
	l := New(time.Second)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, l.Allow(1, now))
	require.True(t, l.Allow(2, now))
	require.True(t, l.Allow(17, now), "user sharing a shard with user 1 is still independent")
	assert.Equal(t, 3, l.Len())
}

func TestLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	l := New(time.Second)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, l.Allow(1, now))
	// rejections do not extend the window; only allowed attempts record time
	assert.False(t, l.Allow(1, now.Add(500*time.Millisecond)))
	assert.True(t, l.Allow(1, now.Add(time.Second)))
}

func TestLimiter_ConcurrentSameUser(t *testing.T) {
	l := New(time.Second)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(7, now) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed, "exactly one concurrent attempt wins the slot")
}

func TestLimiter_ConcurrentDistinctUsers(t *testing.T) {
	l := New(time.Second)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make([]bool, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Allow(int64(i), now)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "user %d", i)
	}
}
