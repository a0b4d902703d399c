package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myrjola/liftlog/internal/envstruct"
	"github.com/myrjola/liftlog/internal/errors"
	"github.com/myrjola/liftlog/internal/flightrecorder"
	"github.com/myrjola/liftlog/internal/logging"
	"github.com/myrjola/liftlog/internal/presets"
	"github.com/myrjola/liftlog/internal/session"
	"github.com/myrjola/liftlog/internal/sqlite"
	"github.com/myrjola/liftlog/internal/substitution"
	"github.com/myrjola/liftlog/internal/workout"
	"golang.org/x/sync/errgroup"
)

// cueLogLimit bounds the cues kept between two polls of the session.
const cueLogLimit = 32

type application struct {
	logger      *slog.Logger
	db          *sqlite.Database
	workouts    *workout.Service
	sessions    *session.Manager
	cues        *session.CueLog
	presets     *presets.Catalog
	substitutes *substitution.Table
	traces      *flightrecorder.Recorder
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"LIFTLOG_ADDR" envDefault:"localhost:8082"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"LIFTLOG_SQLITE_URL" envDefault:"./liftlog.sqlite3"`
	// CleanupSchedule is the cron spec with seconds for the abandoned workout sweep.
	CleanupSchedule string `env:"LIFTLOG_CLEANUP_SCHEDULE" envDefault:"0 5 0 * * *"`
	// AutoAdvanceDelay is how long the session waits before moving to the next exercise.
	AutoAdvanceDelay time.Duration `env:"LIFTLOG_AUTO_ADVANCE_DELAY" envDefault:"1500ms"`
	// SeedPreset is the preset id to install and activate when the store has no programs.
	SeedPreset string `env:"LIFTLOG_SEED_PRESET" envDefault:""`
	// TracesDirectory enables the flight recorder. Requests that time out dump a trace there.
	TracesDirectory string `env:"LIFTLOG_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.Background(), slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	workouts := workout.NewService(db, logger)
	var swept workout.CleanupResult
	if swept, err = workouts.CleanupAbandoned(ctx, time.Now()); err != nil {
		return errors.Wrap(err, "clean up abandoned workouts")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "startup cleanup done",
		slog.Int("deleted", swept.Deleted), slog.Int("closed", swept.Closed))

	catalog, err := presets.Default()
	if err != nil {
		return errors.Wrap(err, "load presets")
	}
	table, err := substitution.Default()
	if err != nil {
		return errors.Wrap(err, "load substitution table")
	}

	if cfg.SeedPreset != "" {
		if err = seedPreset(ctx, workouts, catalog, cfg.SeedPreset, time.Now()); err != nil {
			return errors.Wrap(err, "seed preset", slog.String("preset", cfg.SeedPreset))
		}
	}

	cues := session.NewCueLog(cueLogLimit)
	sessions := session.NewManager(session.Config{
		Store:            workouts,
		Substitutes:      table,
		Notifier:         cues,
		AutoAdvanceDelay: cfg.AutoAdvanceDelay,
		Logger:           logger,
	})
	defer sessions.Close()
	if _, err = sessions.Restore(ctx, time.Now()); err != nil {
		return errors.Wrap(err, "restore session")
	}

	var traces *flightrecorder.Recorder
	if cfg.TracesDirectory != "" {
		if traces, err = flightrecorder.New(flightrecorder.Config{
			Logger:    logger,
			Directory: cfg.TracesDirectory,
			MinAge:    0,
			MaxBytes:  0,
			Cooldown:  0,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = traces.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer traces.Stop(context.Background())
	}

	app := application{
		logger:      logger,
		db:          db,
		workouts:    workouts,
		sessions:    sessions,
		cues:        cues,
		presets:     catalog,
		substitutes: table,
		traces:      traces,
	}

	sweeper, err := app.scheduleCleanup(cfg.CleanupSchedule)
	if err != nil {
		return errors.Wrap(err, "schedule cleanup", slog.String("schedule", cfg.CleanupSchedule))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		sweeper.Stop()
		return nil
	})
	g.Go(func() error {
		if serveErr := app.configureAndStartServer(gctx, cfg.Addr, app.routes()); serveErr != nil {
			return errors.Wrap(serveErr, "start server")
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

// seedPreset installs and activates the preset on a store without programs.
func seedPreset(ctx context.Context, workouts *workout.Service, catalog *presets.Catalog, id string, now time.Time) error {
	programs, err := workouts.ListPrograms(ctx)
	if err != nil {
		return errors.Wrap(err, "list programs")
	}
	if len(programs) > 0 {
		return nil
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	graph, err := catalog.Generate(id, startOfToday)
	if err != nil {
		return errors.Wrap(err, "generate preset")
	}
	program, err := workouts.CreateProgram(ctx, graph, now)
	if err != nil {
		return errors.Wrap(err, "create program")
	}
	if err = workouts.SetActiveProgram(ctx, program.ID); err != nil {
		return errors.Wrap(err, "activate program")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logPath, _ := os.LookupEnv("LIFTLOG_LOG_FILE")
	sink, closeSink := logging.Sink(os.Stdout, logPath)
	logger := logging.NewLogger(sink, slog.LevelDebug)
	err := run(ctx, logger, os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
	}
	_ = closeSink()
	if err != nil {
		os.Exit(1)
	}
}
