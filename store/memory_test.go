package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/relaygate/core"
)

func TestMemoryStore_EnforcesLimitPerKey(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		result, err := s.Check(ctx, "client-a", now)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be admitted", i+1)
	}

	result, err := s.Check(ctx, "client-a", now)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// Other clients have their own window
	result, err = s.Check(ctx, "client-b", now)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, s.Count())
}

func TestMemoryStore_ConcurrentSameKeyNeverOvershoots(t *testing.T) {
	const limit = 50
	s := NewMemoryStore(core.Config{Limit: limit, Window: time.Minute})
	ctx := context.Background()
	now := time.Now()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.Check(ctx, "shared", now)
			if err == nil && result.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

func TestMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := s.Check(ctx, fmt.Sprintf("client-%d", i), now)
			assert.NoError(t, err)
			assert.True(t, result.Allowed)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, s.Count())
}

func TestMemoryStore_SweepRemovesIdleClients(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 5, Window: 10 * time.Second})
	ctx := context.Background()
	start := time.Now()

	_, _ = s.Check(ctx, "idle", start)
	_, _ = s.Check(ctx, "active", start.Add(8*time.Second))

	removed, err := s.Sweep(ctx, start.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Count())

	// The surviving client keeps its history
	result, err := s.Check(ctx, "active", start.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, _ = s.Check(ctx, key, time.Now())
	}
	require.Equal(t, 3, s.Count())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Count())
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 5, Window: 10 * time.Millisecond})
	_, _ = s.Check(context.Background(), "short-lived", time.Now())

	stop := s.StartBackgroundSweep(5 * time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return s.Count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_BackgroundSweepDisabled(t *testing.T) {
	s := NewMemoryStore(core.Config{Limit: 5, Window: time.Minute})
	stop := s.StartBackgroundSweep(0)
	stop()
}
