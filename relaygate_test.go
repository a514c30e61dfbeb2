package relaygate

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/relaygate/config"
)

func newGateway(t *testing.T, upstreamURL string, modify func(*config.Config)) *Gateway {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.Timeout = 5 * time.Second
	if modify != nil {
		modify(cfg)
	}

	g, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func do(g *Gateway, method, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	g.Handler().ServeHTTP(rr, req)
	return rr
}

func TestGateway_HealthWithUnreachableUpstream(t *testing.T) {
	g := newGateway(t, "http://127.0.0.1:1", nil)

	rr := do(g, http.MethodGet, "/health", "192.0.2.1:1000")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status    string  `json:"status"`
		Target    string  `json:"target"`
		Timestamp float64 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "http://127.0.0.1:1", body.Target)
	assert.InDelta(t, float64(time.Now().Unix()), body.Timestamp, 5)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGateway_RelaysAndSanitizes(t *testing.T) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, _ = zw.Write([]byte("<h1>dashboard</h1>"))
	require.NoError(t, zw.Close())

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Refresh", "5;url=/x")
		w.Header().Set("Access-Control-Allow-Origin", "https://upstream.example")
		w.Write(compressed.Bytes())
	}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, nil)

	rr := do(g, http.MethodGet, "/console?tab=keys", "192.0.2.2:1000")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<h1>dashboard</h1>", rr.Body.String())
	assert.Equal(t, "text/html", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("Content-Encoding"))
	assert.Empty(t, rr.Header().Get("Refresh"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "1000", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "999", rr.Header().Get("X-RateLimit-Remaining"))
}

func TestGateway_RateLimit(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, func(c *config.Config) {
		c.RateLimit.Limit = 3
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/", "198.51.100.7:4000").Code)
	}

	rr := do(g, http.MethodGet, "/", "198.51.100.7:4000")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests", body.Error)
	assert.Equal(t, "Rate limit exceeded: 3 requests per minute", body.Message)
	assert.Equal(t, "rate_limit_exceeded", body.Code)

	// The rejected request never reached the upstream
	assert.Equal(t, int32(3), hits.Load())

	// Another client is unaffected
	assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/", "198.51.100.8:4000").Code)

	snap := g.Metrics().GetSnapshot()
	assert.Equal(t, int64(1), snap.RejectedRequests)
	assert.Equal(t, int64(4), snap.Relayed)
}

func TestGateway_RateLimitDisabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, func(c *config.Config) {
		c.RateLimit.Enabled = false
		c.RateLimit.Limit = 0
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/", "198.51.100.9:1").Code)
	}
	assert.True(t, g.Admit("anyone", time.Now()))
	assert.Empty(t, do(g, http.MethodGet, "/", "198.51.100.9:1").Header().Get("X-RateLimit-Limit"))
}

func TestGateway_BlocksExternalRedirect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://evil.example.com/steal", http.StatusFound)
	}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, nil)

	rr := do(g, http.MethodGet, "/login", "192.0.2.3:1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Location"))
	assert.Contains(t, rr.Body.String(), "https://evil.example.com/steal")
	assert.Contains(t, rr.Body.String(), "External redirect blocked")
}

func TestGateway_AllowsInternalRedirect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, nil)

	rr := do(g, http.MethodPost, "/submit", "192.0.2.4:1")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestGateway_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	g := newGateway(t, target, nil)

	rr := do(g, http.MethodGet, "/", "192.0.2.5:1")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Proxy error occurred", body.Error)
	assert.NotEmpty(t, body.Message)
	assert.Equal(t, "connection_refused", body.Code)

	// The next request is served normally
	assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/health", "192.0.2.5:1").Code)
	assert.Equal(t, int64(1), g.Metrics().GetSnapshot().UpstreamErrors)
}

func TestGateway_AdminMetrics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	g := newGateway(t, upstream.URL, nil)
	do(g, http.MethodGet, "/a", "192.0.2.6:1")
	do(g, http.MethodGet, "/b", "192.0.2.7:1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	g.AdminHandler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		TotalRequests int64 `json:"total_requests"`
		Relayed       int64 `json:"relayed"`
		ActiveWindows int   `json:"active_windows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.TotalRequests)
	assert.Equal(t, int64(2), body.Relayed)
	assert.Equal(t, 2, body.ActiveWindows)

	// The proxy listener does not expose metrics; the path is relayed
	assert.Equal(t, http.StatusOK, do(g, http.MethodGet, "/metrics", "192.0.2.6:1").Code)
	assert.Equal(t, int64(3), g.Metrics().GetSnapshot().Relayed)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Upstream.BaseURL = "not a url"

	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestGateway_CloseIsIdempotent(t *testing.T) {
	g := newGateway(t, "http://127.0.0.1:1", nil)
	assert.NoError(t, g.Close())
	assert.NoError(t, g.Close())
}
