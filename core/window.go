package core

import "time"

// SlidingWindow implements the sliding-window log rate limiting algorithm
type SlidingWindow struct {
	config Config
}

// NewSlidingWindow creates a new sliding window with the given configuration
func NewSlidingWindow(config Config) *SlidingWindow {
	return &SlidingWindow{config: config}
}

// Config returns the policy this window enforces
func (sw *SlidingWindow) Config() Config {
	return sw.config
}

// Prune drops every timestamp that is no longer within the window at now.
// A timestamp t survives while now-t < Window. The returned window reuses
// the backing array of state.
func (sw *SlidingWindow) Prune(state *Window, now time.Time) *Window {
	if state == nil {
		return &Window{}
	}

	kept := state.Timestamps[:0]
	for _, ts := range state.Timestamps {
		if now.Sub(ts) < sw.config.Window {
			kept = append(kept, ts)
		}
	}
	state.Timestamps = kept
	return state
}

// Check prunes the window and decides whether a request at now is admitted.
// Only admitted requests are recorded; a rejected attempt leaves the window
// unchanged apart from pruning.
func (sw *SlidingWindow) Check(state *Window, now time.Time) (*Window, CheckResult) {
	state = sw.Prune(state, now)
	count := len(state.Timestamps)

	if count >= sw.config.Limit {
		return state, CheckResult{
			Allowed:    false,
			Count:      count,
			Remaining:  0,
			Limit:      sw.config.Limit,
			RetryAfter: sw.retryAfter(state, now),
		}
	}

	state.Timestamps = append(state.Timestamps, now)
	count++

	return state, CheckResult{
		Allowed:   true,
		Count:     count,
		Remaining: sw.config.Limit - count,
		Limit:     sw.config.Limit,
	}
}

// retryAfter returns how long until the oldest entry expires.
// Timestamps are appended in arrival order but concurrent callers may
// compute now slightly out of order, so the minimum is searched.
func (sw *SlidingWindow) retryAfter(state *Window, now time.Time) time.Duration {
	if len(state.Timestamps) == 0 {
		return 0
	}

	oldest := state.Timestamps[0]
	for _, ts := range state.Timestamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}

	wait := oldest.Add(sw.config.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
