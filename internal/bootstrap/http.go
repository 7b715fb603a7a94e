package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/httpapi"
)

// HTTPServerConfig contains configuration for the coordinator's HTTP
// server.
type HTTPServerConfig struct {
	Config *config.HTTPConfig
	Deps   httpapi.Deps
	Logger *slog.Logger
}

// StartHTTPServer builds the coordinator router (httpapi.NewRouter
// already applies the standard middleware chain) and starts listening.
// The returned server
// is passed to ShutdownHTTPServer during graceful shutdown.
func StartHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpCfg := cfg.Config
	if httpCfg == nil {
		httpCfg = &config.HTTPConfig{Addr: ":8080"}
	}

	deps := cfg.Deps
	if deps.Logger == nil {
		deps.Logger = logger
	}
	handler := httpapi.NewRouter(deps)
	return startServer(logger, handler, httpCfg.Addr)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownHTTPServer gracefully shuts down the HTTP server within a
// bounded timeout.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}

	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}

	return nil
}
