// Package relaygate assembles the rate-limited relay: window store,
// admission controller, relay engine, metrics and routers.
package relaygate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/relaygate/api"
	"github.com/yourusername/relaygate/config"
	"github.com/yourusername/relaygate/core"
	"github.com/yourusername/relaygate/metrics"
	"github.com/yourusername/relaygate/middleware"
	"github.com/yourusername/relaygate/relay"
	"github.com/yourusername/relaygate/server"
	"github.com/yourusername/relaygate/store"
)

// Gateway is a fully wired proxy. Create it with New and release it with Close.
type Gateway struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   store.Store
	limiter *middleware.RateLimiter
	engine  *relay.Engine
	metrics *metrics.Metrics

	handler http.Handler
	admin   http.Handler

	stopSweep func()
	closeFns  []func() error
}

// New builds a gateway from cfg
func New(cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics.NewMetrics(),
		stopSweep: func() {},
	}

	engine, err := relay.New(cfg.Upstream.BaseURL,
		relay.WithTimeout(cfg.Upstream.Timeout),
		relay.WithLogger(logger.Named("relay")),
		relay.WithMetrics(g.metrics),
		relay.WithInternalRedirectRewrite(cfg.Upstream.RewriteInternalRedirects),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	g.engine = engine

	if cfg.RateLimit.Enabled {
		if err := g.initRateLimit(); err != nil {
			return nil, err
		}
	}

	handler := api.NewHandler(engine, engine.BaseURL(), logger.Named("api"))

	routerCfg := server.RouterConfig{
		Health:      handler.Health,
		Proxy:       handler.Proxy,
		AllowOrigin: cfg.CORS.AllowOrigin,
		Logger:      logger.Named("server"),
	}
	if g.limiter != nil {
		routerCfg.Admission = g.limiter.Middleware
	}
	g.handler = server.NewRouter(routerCfg)

	var windows api.WindowCounter
	if g.store != nil {
		windows = g.store
	}
	g.admin = server.NewAdminRouter(handler.Health, api.NewMetricsHandler(g.metrics, windows), logger.Named("admin"))

	return g, nil
}

// initRateLimit creates the window store and admission controller
func (g *Gateway) initRateLimit() error {
	policy := core.Config{Limit: g.cfg.RateLimit.Limit, Window: g.cfg.RateLimit.Window}

	switch g.cfg.RateLimit.Backend {
	case config.BackendRedis:
		rs := store.NewRedisStore(store.RedisConfig{
			Addr:      g.cfg.Redis.Addr,
			Password:  g.cfg.Redis.Password,
			DB:        g.cfg.Redis.DB,
			KeyPrefix: g.cfg.Redis.KeyPrefix,
			Policy:    policy,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return fmt.Errorf("connect to redis at %s: %w", g.cfg.Redis.Addr, err)
		}
		g.logger.Info("Connected to Redis", zap.String("addr", g.cfg.Redis.Addr))

		g.store = rs
		g.closeFns = append(g.closeFns, rs.Close)
	default:
		ms := store.NewMemoryStore(policy)
		g.stopSweep = ms.StartBackgroundSweep(g.cfg.RateLimit.SweepInterval)
		g.store = ms
	}

	g.limiter = middleware.NewRateLimiter(middleware.Config{
		Limit:   policy.Limit,
		Window:  policy.Window,
		Store:   g.store,
		Metrics: g.metrics,
		Logger:  g.logger.Named("admission"),
	})
	return nil
}

// Handler returns the proxy listener's handler
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// AdminHandler returns the admin listener's handler (metrics, health)
func (g *Gateway) AdminHandler() http.Handler {
	return g.admin
}

// Admit runs the admission check for clientID at now. It always admits
// when rate limiting is disabled.
func (g *Gateway) Admit(clientID string, now time.Time) bool {
	if g.limiter == nil {
		return true
	}
	return g.limiter.Admit(clientID, now)
}

// Metrics returns the gateway's metrics tracker
func (g *Gateway) Metrics() *metrics.Metrics {
	return g.metrics
}

// Target returns the upstream origin
func (g *Gateway) Target() string {
	return g.engine.BaseURL()
}

// Close stops background work and releases backend connections
func (g *Gateway) Close() error {
	g.stopSweep()
	g.stopSweep = func() {}

	var firstErr error
	for _, fn := range g.closeFns {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.closeFns = nil
	return firstErr
}
