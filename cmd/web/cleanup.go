package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/liftlog/internal/errors"
	"github.com/robfig/cron"
)

// sweepTimeout bounds a single scheduled cleanup run.
const sweepTimeout = 30 * time.Second

// scheduleCleanup returns a stopped cron that resolves abandoned workouts on spec.
func (app *application) scheduleCleanup(spec string) (*cron.Cron, error) {
	c := cron.New()
	if err := c.AddFunc(spec, app.sweepAbandoned); err != nil {
		return nil, errors.Wrap(err, "add cleanup func")
	}
	return c, nil
}

// sweepAbandoned runs the abandoned workout cleanup unless a session is in progress. A session that crosses midnight
// is left alone and ends through the normal finish or stop paths.
func (app *application) sweepAbandoned() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := app.sessions.Current(); err == nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "skipping cleanup during active session")
		return
	}
	result, err := app.workouts.CleanupAbandoned(ctx, time.Now())
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "scheduled cleanup failed", errors.SlogError(err))
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "scheduled cleanup done",
		slog.Int("deleted", result.Deleted), slog.Int("closed", result.Closed))
}
