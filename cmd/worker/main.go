package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tmacam/dcrawl/internal/apperr"
	"github.com/tmacam/dcrawl/internal/bootstrap"
	"github.com/tmacam/dcrawl/internal/worker"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	peerID, err := worker.LoadOrCreateIdentity(cfg.Worker.StoreDir, hostname)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting worker",
		"peer_id", peerID,
		"hostname", hostname,
		"base_url", cfg.Worker.BaseURL,
		"min_sleep", cfg.Worker.MinSleep)

	agent := worker.New(cfg.Worker, peerID, hostname, logger)

	// Handlers that actually fetch and process content are an external
	// collaborator supplied by whoever embeds this worker; this process
	// only exercises the dispatch contract with handlers that report
	// every job they receive as permanently unhandleable.
	agent.Register("ARTICLE", unimplementedHandler(logger, "ARTICLE"))
	agent.Register("ISSUE", unimplementedHandler(logger, "ISSUE"))

	return agent.Run(ctx)
}

// unimplementedHandler reports every job it receives as a permanent
// failure, so the agent exercises its reportFailure path instead of
// spinning on work it has no real handler for.
func unimplementedHandler(logger *slog.Logger, action string) worker.HandlerFunc {
	return func(ctx context.Context, params string) (worker.Result, error) {
		logger.WarnContext(ctx, "no task handler registered", "action", action, "params", params)
		return worker.Result{}, apperr.HandlerPermanentFailure(nil, "no handler registered for %s", action)
	}
}
