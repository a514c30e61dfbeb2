package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/relaygate"
	"github.com/yourusername/relaygate/logging"
	"github.com/yourusername/relaygate/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy",
	Long: `Start the proxy and, when server.admin_addr is set, the admin listener.

SIGINT or SIGTERM drains in-flight requests for up to server.shutdown_timeout
before exiting.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gw, err := relaygate.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize gateway", zap.Error(err))
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			logger.Warn("Failed to release gateway resources", zap.Error(err))
		}
	}()

	timeouts := server.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
		Idle:  cfg.Server.IdleTimeout,
	}

	servers := []*server.Server{
		server.New("proxy", cfg.ListenAddr(), gw.Handler(), timeouts, logger.Named("server")),
	}
	if cfg.Server.AdminAddr != "" {
		servers = append(servers,
			server.New("admin", cfg.Server.AdminAddr, gw.AdminHandler(), timeouts, logger.Named("admin")))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *server.Server) {
			if err := srv.Start(); err != nil {
				errChan <- fmt.Errorf("%s listener on %s: %w", srv.Name(), srv.Addr(), err)
			}
		}(srv)
	}

	logger.Info("Proxy server listening",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("version", version))
	logger.Info("Proxying requests", zap.String("target", gw.Target()))
	logger.Info("Health check available",
		zap.String("url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("limit", cfg.RateLimit.Limit),
			zap.Duration("window", cfg.RateLimit.Window),
			zap.String("backend", cfg.RateLimit.Backend))
	}
	if cfg.Server.AdminAddr != "" {
		logger.Info("Admin listener enabled", zap.String("addr", cfg.Server.AdminAddr))
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		logger.Error("Listener failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown incomplete", zap.String("listener", srv.Name()), zap.Error(err))
		}
	}

	logger.Info("Server stopped")
	return runErr
}
