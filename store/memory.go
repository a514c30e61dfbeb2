package store

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/yourusername/relaygate/core"
)

// MemoryStore keeps client windows in a sharded concurrent map.
// Each check holds only the lock of the shard owning the key, so
// unrelated clients never serialize behind each other.
type MemoryStore struct {
	windows cmap.ConcurrentMap[string, *core.Window]
	window  *core.SlidingWindow
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store enforcing config
func NewMemoryStore(config core.Config) *MemoryStore {
	return &MemoryStore{
		windows: cmap.New[*core.Window](),
		window:  core.NewSlidingWindow(config),
	}
}

// Check runs the sliding-window admission check for key
func (s *MemoryStore) Check(_ context.Context, key string, now time.Time) (core.CheckResult, error) {
	var result core.CheckResult

	s.windows.Upsert(key, nil, func(exists bool, current, _ *core.Window) *core.Window {
		if !exists {
			current = nil
		}
		var next *core.Window
		next, result = s.window.Check(current, now)
		return next
	})

	return result, nil
}

// Sweep removes clients whose window is empty once pruned at now.
// Returns the number of keys removed.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for _, key := range s.windows.Keys() {
		deleted := s.windows.RemoveCb(key, func(_ string, w *core.Window, exists bool) bool {
			if !exists {
				return false
			}
			return len(s.window.Prune(w, now).Timestamps) == 0
		})
		if deleted {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of tracked clients
func (s *MemoryStore) Count() int {
	return s.windows.Count()
}

// Clear removes all client windows
func (s *MemoryStore) Clear(_ context.Context) error {
	s.windows.Clear()
	return nil
}

// StartBackgroundSweep starts a goroutine that periodically sweeps idle clients.
// Call the returned function to stop it.
func (s *MemoryStore) StartBackgroundSweep(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case now := <-ticker.C:
				_, _ = s.Sweep(context.Background(), now)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
