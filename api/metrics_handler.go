package api

import (
	"net/http"

	"github.com/yourusername/relaygate/metrics"
)

// MetricsProvider defines the interface for getting metrics
type MetricsProvider interface {
	GetSnapshot() *metrics.Snapshot
}

// WindowCounter reports how many clients currently hold a window
type WindowCounter interface {
	Count() int
}

// MetricsHandler handles GET /metrics requests
type MetricsHandler struct {
	provider MetricsProvider
	windows  WindowCounter
}

// MetricsResponse is the snapshot plus the live window count
type MetricsResponse struct {
	*metrics.Snapshot
	ActiveWindows int `json:"active_windows"`
}

// NewMetricsHandler creates a new metrics handler. windows may be nil.
func NewMetricsHandler(provider MetricsProvider, windows WindowCounter) *MetricsHandler {
	return &MetricsHandler{provider: provider, windows: windows}
}

// ServeHTTP handles the metrics endpoint
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, r)
		return
	}

	resp := MetricsResponse{Snapshot: h.provider.GetSnapshot()}
	if h.windows != nil {
		resp.ActiveWindows = h.windows.Count()
	}
	sendJSON(w, http.StatusOK, resp)
}
