package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/relaygate/core"
)

// ErrStoreFailed is returned when a backend cannot complete a check
var ErrStoreFailed = errors.New("window store operation failed")

// Store defines the interface for client window storage.
// Check must run prune-check-append atomically for a single key.
type Store interface {
	Check(ctx context.Context, key string, now time.Time) (core.CheckResult, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
	Count() int
	Clear(ctx context.Context) error
}
