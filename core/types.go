package core

import "time"

// Config defines the sliding-window admission policy
type Config struct {
	Limit  int           // Maximum admitted requests per window
	Window time.Duration // Length of the trailing window
}

// Window holds the admitted-request timestamps for a single client
type Window struct {
	Timestamps []time.Time
}

// CheckResult contains the result of an admission check
type CheckResult struct {
	Allowed    bool          // Whether the request is admitted
	Count      int           // Requests counted in the window after this check
	Remaining  int           // Admissions left in the current window
	Limit      int           // Configured limit
	RetryAfter time.Duration // Time until the oldest entry leaves the window (if rejected)
}
