package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tmacam/dcrawl/config"
	"github.com/tmacam/dcrawl/internal/adapters/beat"
	"github.com/tmacam/dcrawl/internal/adapters/pacing"
	"github.com/tmacam/dcrawl/internal/bootstrap"
	"github.com/tmacam/dcrawl/internal/domain/clientreg"
	"github.com/tmacam/dcrawl/internal/domain/scheduler"
	"github.com/tmacam/dcrawl/internal/domain/taskqueue"
	"github.com/tmacam/dcrawl/internal/httpapi"
	"github.com/tmacam/dcrawl/internal/observability/notify"
	"github.com/tmacam/dcrawl/internal/observability/notify/pagerduty"
	"github.com/tmacam/dcrawl/internal/observability/notify/slack"
	"github.com/tmacam/dcrawl/internal/observability/statsd"
)

// taskTypes lists the task actions this coordinator owns a Task
// Controller for. ARTICLE and ISSUE mirror the two task types worked
// through in the wire protocol's examples.
var taskTypes = []string{"ARTICLE", "ISSUE"}

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

	logger.InfoContext(ctx, "starting coordinator",
		"store_backend", cfg.Store.Backend,
		"http_addr", cfg.HTTP.Addr,
		"pacing_enabled", cfg.Pacing.Enabled)

	db, redisClient, err := initInfrastructure(&cfg, logger)
	if err != nil {
		return err
	}
	defer closeInfra(ctx, logger, db, redisClient)

	sched := scheduler.New(cfg.Scheduler)

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled:    cfg.Observability.Metrics.IsEnabled(),
		Address:    cfg.Observability.Metrics.StatsdAddress,
		Prefix:     "dcrawl",
		Logger:     logger,
		GlobalTags: map[string]string{"service": "coordinator"},
	})
	if err != nil {
		return fmt.Errorf("init statsd client: %w", err)
	}

	notifier := buildNotifier(cfg.Observability.Notifications, logger)

	controllers, err := buildControllers(ctx, &cfg, db, sched, notifier, metrics)
	if err != nil {
		return err
	}
	for action, ctrl := range controllers {
		if err := ctrl.Recover(ctx); err != nil {
			return fmt.Errorf("recover pending jobs for %s: %w", action, err)
		}
	}

	clientsStore, err := bootstrap.OpenStore(ctx, cfg.Store, db, "clients")
	if err != nil {
		return fmt.Errorf("open clients store: %w", err)
	}
	registry := clientreg.New(clientsStore, sched)

	var admit scheduler.AdmitFunc
	if cfg.Pacing.Enabled {
		admit = pacing.New(redisClient, cfg.Pacing, logger).Admit
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	group.Go(func() error {
		server = bootstrap.StartHTTPServer(bootstrap.HTTPServerConfig{
			Config: &cfg.HTTP,
			Logger: logger,
			Deps: httpapi.Deps{
				Scheduler:   sched,
				Clients:     registry,
				Controllers: controllers,
				Admit:       admit,
				AdminToken:  cfg.HTTP.AdminToken,
				Shutdown:    stop,
				Logger:      logger,
			},
		})
		<-gctx.Done()
		return bootstrap.ShutdownHTTPServer(context.Background(), server, logger)
	})

	group.Go(func() error {
		return beat.NewRunner(sched, logger, metrics).Run(gctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.InfoContext(ctx, "coordinator stopped")
	return nil
}

// initInfrastructure connects the database (when the store backend
// needs one) and Redis (when pacing needs one), mirroring the
// teacher's pattern of failing fast and closing whatever already
// connected before returning an error.
func initInfrastructure(cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	var db *sql.DB
	if cfg.Store.Backend == config.StoreBackendPostgres {
		var err error
		db, err = bootstrap.ConnectDB(cfg.Store.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	var redisClient redis.UniversalClient
	if cfg.Pacing.Enabled {
		var err error
		redisClient, err = bootstrap.ConnectRedis(cfg.Pacing.Redis, logger)
		if err != nil {
			if db != nil {
				if cerr := db.Close(); cerr != nil {
					err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
				}
			}
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	return db, redisClient, nil
}

func closeInfra(ctx context.Context, logger *slog.Logger, db *sql.DB, redisClient redis.UniversalClient) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
}

// buildControllers opens the pending/done/erroneous stores for every
// task type this coordinator owns and wraps each triple in a Task
// Controller sharing the Scheduler.
func buildControllers(
	ctx context.Context,
	cfg *config.AppConfig,
	db *sql.DB,
	sched *scheduler.Scheduler,
	notifier notify.Sink,
	metrics statsd.Sink,
) (map[string]*taskqueue.Controller, error) {
	controllers := make(map[string]*taskqueue.Controller, len(taskTypes))
	for _, action := range taskTypes {
		namespace := func(kind string) string { return action + "/" + kind }

		pending, err := bootstrap.OpenStore(ctx, cfg.Store, db, namespace("pending"))
		if err != nil {
			return nil, fmt.Errorf("open %s pending store: %w", action, err)
		}
		done, err := bootstrap.OpenStore(ctx, cfg.Store, db, namespace("done"))
		if err != nil {
			return nil, fmt.Errorf("open %s done store: %w", action, err)
		}
		erroneous, err := bootstrap.OpenStore(ctx, cfg.Store, db, namespace("erroneous"))
		if err != nil {
			return nil, fmt.Errorf("open %s erroneous store: %w", action, err)
		}

		artifactDir := cfg.Store.FSDir + "/" + action + "/artifacts"
		controllers[action] = taskqueue.New(action, pending, done, erroneous, sched, artifactDir,
			taskqueue.WithNotifier(notifier),
			taskqueue.WithMetrics(metrics),
		)
	}
	return controllers, nil
}

// buildNotifier wires the Slack and PagerDuty sinks named by
// config.ObservabilityNotificationsConfig into a single fan-out Sink,
// the way the teacher's failure notifier service combines sinks.
func buildNotifier(cfg config.ObservabilityNotificationsConfig, logger *slog.Logger) notify.Sink {
	if !cfg.Enabled {
		return nil
	}

	var regs []notify.Registration

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("disabling slack notifications", "error", err)
		} else {
			regs = append(regs, notify.Registration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Warn("disabling pagerduty notifications", "error", err)
		} else {
			regs = append(regs, notify.Registration{Name: "pagerduty", Sink: client})
		}
	}

	fanout := notify.NewFanout(logger, regs...)
	if !fanout.Enabled() {
		return nil
	}
	return fanout
}
