// Package pacing implements a server-side politeness backstop: a
// fixed-window request counter per task action, backed by Redis,
// that the Coordinator can consult before handing out a job. It is
// pure defense-in-depth against a mis-set crawl interval; disabled
// (config.PacingConfig.Enabled == false), the coordinator behaves
// exactly like the wire protocol alone describes.
package pacing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tmacam/dcrawl/config"
)

// Guard rate-limits job assignment per action using Redis INCR/EXPIRE
// counters keyed by the current window.
type Guard struct {
	client redis.UniversalClient
	cfg    config.PacingConfig
	logger *slog.Logger
}

// New builds a Guard. If cfg.Enabled is false, the returned Guard's
// Admit always returns true and never touches Redis.
func New(client redis.UniversalClient, cfg config.PacingConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{client: client, cfg: cfg, logger: logger}
}

// Admit reports whether another job of the given action may be
// assigned right now. It increments a per-action, per-window counter
// in Redis with INCR, setting EXPIRE when the increment creates the key,
// admitting while the count stays at or under MaxJobsPerWindow.
//
// Admit is built to be passed directly as a scheduler.AdmitFunc.
func (g *Guard) Admit(action string) bool {
	if g == nil || !g.cfg.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	key := g.windowKey(action)
	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		g.logger.Warn("pacing guard: redis incr failed, admitting by default", "action", action, "error", err)
		return true
	}
	if count == 1 {
		if err := g.client.Expire(ctx, key, g.cfg.Window).Err(); err != nil {
			g.logger.Warn("pacing guard: redis expire failed", "action", action, "error", err)
		}
	}

	return count <= int64(g.cfg.MaxJobsPerWindow)
}

// windowKey buckets time into fixed-size windows so counters expire
// and reset naturally instead of needing an explicit reset call.
func (g *Guard) windowKey(action string) string {
	bucket := time.Now().UnixNano() / int64(g.cfg.Window)
	return fmt.Sprintf("dcrawl:pacing:%s:%d", action, bucket)
}
