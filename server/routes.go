package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yourusername/relaygate/api"
	"github.com/yourusername/relaygate/middleware"
)

// RouterConfig holds what the proxy router needs
type RouterConfig struct {
	Health http.HandlerFunc
	Proxy  http.HandlerFunc

	// Admission gates the proxy routes; nil disables rate limiting
	Admission func(http.Handler) http.Handler

	AllowOrigin string
	Logger      *zap.Logger
}

// NewRouter builds the proxy listener's router. /health is answered
// locally; every other path goes through admission to the relay.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// RequestID → CORS → RequestLog → Recovery
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.AllowOrigin))
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Recovery(logger))

	r.HandleFunc("/health", getOnly(cfg.Health))

	r.Group(func(r chi.Router) {
		if cfg.Admission != nil {
			r.Use(cfg.Admission)
		}
		r.Handle("/", cfg.Proxy)
		r.Handle("/*", cfg.Proxy)
	})

	return r
}

// NewAdminRouter builds the admin listener's router: health, the JSON
// metrics snapshot and an HTML dashboard over it
func NewAdminRouter(health http.HandlerFunc, metrics http.Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)

	r.Get("/health", health)
	r.Handle("/metrics", metrics)
	r.Get("/dashboard", api.Dashboard)

	return r
}

// getOnly serves GET and HEAD with h and rejects other methods
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			api.MethodNotAllowed(w, r)
			return
		}
		h(w, r)
	}
}
