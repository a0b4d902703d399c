package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/liftlog/internal/sqlite"
)

var (
	// ErrNotFound is returned when a requested entity is not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a value fails validation before it reaches the store.
	ErrInvalidInput = errors.New("invalid input")
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// repository contains the repositories for the workout domain aggregates.
type repository struct {
	programs  programRepository
	templates templateRepository
	workouts  workoutRepository
	sets      setRepository
	settings  settingsRepository
}

// programRepository persists programs. Templates are created together with their program.
type programRepository interface {
	List(ctx context.Context) ([]Program, error)
	Get(ctx context.Context, id string) (Program, error)
	Create(ctx context.Context, graph ProgramGraph, now time.Time) (Program, error)
	Update(ctx context.Context, id string, updateFn func(p *Program) (bool, error)) error
	Delete(ctx context.Context, id string) error
}

// templateRepository reads workout templates with their exercise templates.
type templateRepository interface {
	Get(ctx context.Context, id string) (WorkoutTemplate, error)
	ListByProgram(ctx context.Context, programID string) ([]WorkoutTemplate, error)
}

// workoutRepository persists workouts and their exercise instances.
type workoutRepository interface {
	Get(ctx context.Context, id string) (Workout, error)
	List(ctx context.Context, limit int) ([]Workout, error)
	Create(ctx context.Context, w Workout) error
	Update(ctx context.Context, id string, updateFn func(w *Workout) (bool, error)) error
	Delete(ctx context.Context, id string) error
	LatestCompleted(ctx context.Context) (Workout, error)
	ListUnfinished(ctx context.Context) ([]Workout, error)
	InsertExercise(ctx context.Context, e ExerciseInstance) error
	UpdateExercise(ctx context.Context, id string, updateFn func(e *ExerciseInstance) (bool, error)) error
}

// setRepository persists set records and answers history queries over them.
type setRepository interface {
	Create(ctx context.Context, s SetRecord) error
	Delete(ctx context.Context, id string) error
	LastSetsByExercise(ctx context.Context, name string, limit int) ([]SetRecord, error)
	ListCompletedWorkingSets(ctx context.Context, name string) ([]SetRecord, error)
}

// settingsRepository persists the singleton settings row.
type settingsRepository interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, updateFn func(s *Settings) (bool, error)) error
}

// repositoryFactory creates repository instances.
type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

// newRepositoryFactory creates a new repository factory.
func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) *repositoryFactory {
	return &repositoryFactory{
		db:     db,
		logger: logger,
	}
}

// newRepository creates a new repository aggregate.
func (f *repositoryFactory) newRepository() *repository {
	base := newBaseRepository(f.db, f.logger)
	return &repository{
		programs:  &sqliteProgramRepository{baseRepository: base},
		templates: &sqliteTemplateRepository{baseRepository: base},
		workouts:  &sqliteWorkoutRepository{baseRepository: base},
		sets:      &sqliteSetRepository{baseRepository: base},
		settings:  &sqliteSettingsRepository{baseRepository: base},
	}
}

// baseRepository holds what every SQLite repository needs.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{
		db:     db,
		logger: logger,
	}
}

// inTx runs fn inside a read-write transaction and commits if fn succeeds.
func (r baseRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// closeRows closes rows and joins a close failure into err.
func closeRows(rows *sql.Rows, err *error) {
	if closeErr := rows.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("close rows: %w", closeErr))
	}
}

// requireAffected returns ErrNotFound when a statement touched no rows.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func formatNullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// parseNullTimestamp returns nil for NULL.
func parseNullTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil //nolint:nilnil // nil time is expected when the column is NULL.
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
