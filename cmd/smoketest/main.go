package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myrjola/liftlog/internal/e2etest"
	"github.com/myrjola/liftlog/internal/errors"
	"github.com/myrjola/liftlog/internal/logging"
	"github.com/myrjola/liftlog/internal/presets"
	"github.com/myrjola/liftlog/internal/workout"
)

const smokeTimeout = 10 * time.Second

// checkReadOnly exercises the read endpoints a client needs at startup. It never writes to the store.
func checkReadOnly(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()

	var list []presets.Preset
	if err := expectOK(client.GetJSON(ctx, "/api/presets", &list)); err != nil {
		return errors.Wrap(err, "list presets")
	}
	if len(list) == 0 {
		return errors.New("no presets served")
	}
	var plan workout.Plan
	if err := expectOK(client.GetJSON(ctx, "/api/today", &plan)); err != nil {
		return errors.Wrap(err, "today")
	}
	var settings workout.Settings
	if err := expectOK(client.GetJSON(ctx, "/api/settings", &settings)); err != nil {
		return errors.Wrap(err, "settings")
	}
	return nil
}

func expectOK(status int, err error) error {
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only the address to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <host:port>")
		os.Exit(1)
	}

	var (
		addr  = os.Args[1]
		start = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("addr", addr))
	client := e2etest.NewClient("http://" + addr)

	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err := checkReadOnly(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful", slog.Duration("duration", time.Since(start)))
}
