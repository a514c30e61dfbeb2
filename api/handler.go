package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/relaygate/relay"
)

// Relayer forwards a captured request upstream
type Relayer interface {
	Relay(ctx context.Context, pr *relay.ProxyRequest) (*relay.Response, error)
}

// Handler serves the proxy and health endpoints
type Handler struct {
	relayer Relayer
	target  string
	logger  *zap.Logger
	now     func() time.Time
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string  `json:"status"`
	Target    string  `json:"target"`
	Timestamp float64 `json:"timestamp"` // seconds since epoch
}

// NewHandler creates a new API handler relaying to target
func NewHandler(relayer Relayer, target string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		relayer: relayer,
		target:  target,
		logger:  logger,
		now:     time.Now,
	}
}

// Health reports liveness without touching the upstream
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Target:    h.target,
		Timestamp: float64(now.Unix()) + float64(now.Nanosecond())/float64(time.Second),
	})
}

// Proxy relays the request and writes the upstream's answer
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	pr, err := relay.NewProxyRequest(r)
	if err != nil {
		h.logger.Warn("failed to read request", zap.Error(err))
		sendError(w, http.StatusBadRequest, "Invalid request", err.Error(), CodeInvalidRequest)
		return
	}

	resp, err := h.relayer.Relay(r.Context(), pr)
	if err != nil {
		var ue *relay.UpstreamError
		if errors.As(err, &ue) {
			sendError(w, http.StatusInternalServerError, "Proxy error occurred", ue.Message(), string(ue.Kind))
			return
		}
		h.logger.Error("relay failed", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Proxy error occurred", err.Error(), CodeInternal)
		return
	}

	writeResponse(w, resp)
}

// writeResponse copies resp onto w. Headers already set on w by middleware
// (CORS, rate limit, request ID) are kept over upstream values.
func writeResponse(w http.ResponseWriter, resp *relay.Response) {
	dst := w.Header()
	preset := make(map[string]struct{}, len(dst))
	for key := range dst {
		preset[key] = struct{}{}
	}

	for key, values := range resp.Header {
		if _, ok := preset[http.CanonicalHeaderKey(key)]; ok {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
