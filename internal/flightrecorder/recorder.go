// Package flightrecorder keeps a rolling execution trace in memory and dumps it to disk when a request runs into its
// timeout.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"sync"
	"time"

	"github.com/myrjola/liftlog/internal/errors"
)

const (
	defaultMinAge   = time.Minute
	defaultMaxBytes = 16 << 20
	defaultCooldown = 10 * time.Minute
)

var errNoDirectory = errors.NewSentinel("traces directory is required")

// Config configures a Recorder. Zero durations and sizes use the defaults.
type Config struct {
	Logger    *slog.Logger
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	// Cooldown is the minimum time between two dumps.
	Cooldown time.Duration
}

// Recorder wraps [trace.FlightRecorder] with rate limited dumps to Directory.
type Recorder struct {
	logger    *slog.Logger
	fr        *trace.FlightRecorder
	directory string
	cooldown  time.Duration

	mu       sync.Mutex
	lastDump time.Time
}

// New creates the traces directory if needed. The recorder is idle until Start.
func New(cfg Config) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errNoDirectory
	}
	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil { //nolint:mnd // owner and group.
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.Directory))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MinAge == 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Recorder{
		logger:    cfg.Logger,
		fr:        trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: cfg.MinAge, MaxBytes: cfg.MaxBytes}),
		directory: cfg.Directory,
		cooldown:  cfg.Cooldown,
		mu:        sync.Mutex{},
		lastDump:  time.Time{},
	}, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	if err := r.fr.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started", slog.String("dir", r.directory))
	return nil
}

func (r *Recorder) Stop(ctx context.Context) {
	r.fr.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

var unsafeReason = regexp.MustCompile(`[^a-z0-9-]+`)

// Dump writes the recorded trace to a file named after reason. It returns the path, or false when the cooldown
// suppressed the dump or writing failed. Failures are logged.
func (r *Recorder) Dump(ctx context.Context, reason string) (string, bool) {
	now := time.Now()
	r.mu.Lock()
	if !r.lastDump.IsZero() && now.Sub(r.lastDump) < r.cooldown {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelDebug, "trace dump in cooldown", slog.String("reason", reason))
		return "", false
	}
	r.lastDump = now
	r.mu.Unlock()

	name := fmt.Sprintf("%s-%s.trace", unsafeReason.ReplaceAllString(reason, "-"), now.UTC().Format("20060102-150405"))
	path := filepath.Join(r.directory, name)
	file, err := os.Create(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "create trace file", errors.SlogError(err))
		return "", false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "close trace file", errors.SlogError(closeErr))
		}
	}()
	n, err := r.fr.WriteTo(file)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "write trace", errors.SlogError(err))
		return "", false
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "dumped trace",
		slog.String("reason", reason), slog.String("file", path), slog.Int64("bytes", n))
	return path, true
}
