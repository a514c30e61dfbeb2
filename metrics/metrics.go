package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/tinylru"
)

// DefaultClientCapacity bounds how many clients keep per-client stats
const DefaultClientCapacity = 1024

// Relay outcomes recorded by RecordRelay
const (
	OutcomeRelayed         = "relayed"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeRedirectAllowed = "redirect_allowed"
	OutcomeRedirectBlocked = "redirect_blocked"
)

// Metrics tracks admission and relay statistics
type Metrics struct {
	totalRequests    atomic.Int64
	admittedRequests atomic.Int64
	rejectedRequests atomic.Int64

	relayed          atomic.Int64
	upstreamErrors   atomic.Int64
	redirectsAllowed atomic.Int64
	redirectsBlocked atomic.Int64

	// Per-client stats, least recently seen clients are evicted
	mu          sync.Mutex
	clientStats tinylru.LRU
	startTime   time.Time
}

// ClientStats tracks statistics for a specific client
type ClientStats struct {
	ClientID         string    `json:"client_id"`
	TotalRequests    int64     `json:"total_requests"`
	AdmittedRequests int64     `json:"admitted_requests"`
	RejectedRequests int64     `json:"rejected_requests"`
	LastRequestAt    time.Time `json:"last_request_at"`
	FirstRequestAt   time.Time `json:"first_request_at"`
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return NewMetricsWithCapacity(DefaultClientCapacity)
}

// NewMetricsWithCapacity creates a tracker keeping stats for at most capacity clients
func NewMetricsWithCapacity(capacity int) *Metrics {
	m := &Metrics{startTime: time.Now()}
	m.clientStats.Resize(capacity)
	return m
}

// RecordAdmission records an admission decision for a client
func (m *Metrics) RecordAdmission(clientID string, allowed bool) {
	m.totalRequests.Add(1)

	if allowed {
		m.admittedRequests.Add(1)
	} else {
		m.rejectedRequests.Add(1)
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var stats *ClientStats
	if v, ok := m.clientStats.Get(clientID); ok {
		stats = v.(*ClientStats)
	} else {
		stats = &ClientStats{
			ClientID:       clientID,
			FirstRequestAt: now,
		}
		m.clientStats.Set(clientID, stats)
	}

	stats.TotalRequests++
	if allowed {
		stats.AdmittedRequests++
	} else {
		stats.RejectedRequests++
	}
	stats.LastRequestAt = now
}

// RecordRelay records the outcome of a relayed request
func (m *Metrics) RecordRelay(outcome string) {
	switch outcome {
	case OutcomeRelayed:
		m.relayed.Add(1)
	case OutcomeUpstreamError:
		m.upstreamErrors.Add(1)
	case OutcomeRedirectAllowed:
		m.relayed.Add(1)
		m.redirectsAllowed.Add(1)
	case OutcomeRedirectBlocked:
		m.redirectsBlocked.Add(1)
	}
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() *Snapshot {
	m.mu.Lock()
	clients := make([]*ClientStats, 0, m.clientStats.Len())
	m.clientStats.Range(func(_, value interface{}) bool {
		stats := *value.(*ClientStats)
		clients = append(clients, &stats)
		return true
	})
	m.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].TotalRequests > clients[j].TotalRequests
	})
	trackedClients := int64(len(clients))
	if len(clients) > 10 {
		clients = clients[:10]
	}

	return &Snapshot{
		TotalRequests:    m.totalRequests.Load(),
		AdmittedRequests: m.admittedRequests.Load(),
		RejectedRequests: m.rejectedRequests.Load(),
		Relayed:          m.relayed.Load(),
		UpstreamErrors:   m.upstreamErrors.Load(),
		RedirectsAllowed: m.redirectsAllowed.Load(),
		RedirectsBlocked: m.redirectsBlocked.Load(),
		TrackedClients:   trackedClients,
		TopClients:       clients,
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
		StartTime:        m.startTime,
	}
}

// Snapshot represents a point-in-time view of metrics
type Snapshot struct {
	TotalRequests    int64          `json:"total_requests"`
	AdmittedRequests int64          `json:"admitted_requests"`
	RejectedRequests int64          `json:"rejected_requests"`
	Relayed          int64          `json:"relayed"`
	UpstreamErrors   int64          `json:"upstream_errors"`
	RedirectsAllowed int64          `json:"redirects_allowed"`
	RedirectsBlocked int64          `json:"redirects_blocked"`
	TrackedClients   int64          `json:"tracked_clients"`
	TopClients       []*ClientStats `json:"top_clients"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	StartTime        time.Time      `json:"start_time"`
}
