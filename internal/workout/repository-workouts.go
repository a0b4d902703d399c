package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqliteWorkoutRepository implements workoutRepository.
type sqliteWorkoutRepository struct {
	baseRepository
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectWorkout = `
	SELECT id, name, started_at, ended_at, program_name_snapshot, total_paused_ms, is_quick_workout
	FROM workouts`

// Get retrieves a workout with its exercises and their sets.
func (r *sqliteWorkoutRepository) Get(ctx context.Context, id string) (Workout, error) {
	return loadWorkout(ctx, r.db.ReadOnly, id)
}

// List returns the most recent workouts by startedAt, newest first.
func (r *sqliteWorkoutRepository) List(ctx context.Context, limit int) ([]Workout, error) {
	return r.listIDs(ctx, `SELECT id FROM workouts ORDER BY started_at DESC LIMIT ?`, limit)
}

// LatestCompleted returns the most recently started workout that has ended.
func (r *sqliteWorkoutRepository) LatestCompleted(ctx context.Context) (Workout, error) {
	var id string
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id FROM workouts
		WHERE ended_at IS NOT NULL
		ORDER BY started_at DESC
		LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Workout{}, ErrNotFound
	}
	if err != nil {
		return Workout{}, fmt.Errorf("query latest completed workout: %w", err)
	}
	return r.Get(ctx, id)
}

// ListUnfinished returns every workout without endedAt, oldest first.
func (r *sqliteWorkoutRepository) ListUnfinished(ctx context.Context) ([]Workout, error) {
	return r.listIDs(ctx, `SELECT id FROM workouts WHERE ended_at IS NULL ORDER BY started_at`)
}

func (r *sqliteWorkoutRepository) listIDs(ctx context.Context, query string, args ...any) (_ []Workout, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workout ids: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			closeRows(rows, &err)
			return nil, fmt.Errorf("scan workout id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		closeRows(rows, &err)
		return nil, fmt.Errorf("rows error: %w", err)
	}
	closeRows(rows, &err)
	if err != nil {
		return nil, err
	}

	workouts := make([]Workout, 0, len(ids))
	for _, id := range ids {
		var w Workout
		if w, err = r.Get(ctx, id); err != nil {
			return nil, fmt.Errorf("get workout %s: %w", id, err)
		}
		workouts = append(workouts, w)
	}
	return workouts, nil
}

// Create inserts the workout together with its exercise instances.
func (r *sqliteWorkoutRepository) Create(ctx context.Context, w Workout) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workouts (id, name, started_at, ended_at, program_name_snapshot, total_paused_ms,
			                      is_quick_workout)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.Name, formatTimestamp(w.StartedAt), formatNullTimestamp(w.EndedAt), w.ProgramNameSnapshot,
			w.TotalPausedMs, w.IsQuickWorkout); err != nil {
			return fmt.Errorf("insert workout: %w", err)
		}
		for _, e := range w.Exercises {
			if err := insertExercise(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create workout: %w", err)
	}
	return nil
}

// Update applies updateFn to the workout header and saves it if updateFn reports a change. Exercises are read-only
// here; they change through InsertExercise and UpdateExercise.
func (r *sqliteWorkoutRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(w *Workout) (bool, error),
) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		w, err := loadWorkout(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err := updateFn(&w)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if !updated {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE workouts
			SET name = ?, ended_at = ?, total_paused_ms = ?
			WHERE id = ?`,
			w.Name, formatNullTimestamp(w.EndedAt), w.TotalPausedMs, id); err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		return nil
	})
}

// Delete removes the workout. Exercise instances and sets cascade.
func (r *sqliteWorkoutRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return requireAffected(result)
}

// InsertExercise places e at e.OrderIndex and shifts the exercises at or after that position back by one.
func (r *sqliteWorkoutRepository) InsertExercise(ctx context.Context, e ExerciseInstance) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE exercise_instances
			SET order_index = order_index + 1
			WHERE workout_id = ? AND order_index >= ?`, e.WorkoutID, e.OrderIndex); err != nil {
			return fmt.Errorf("shift exercises: %w", err)
		}
		return insertExercise(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	return nil
}

// UpdateExercise applies updateFn to an exercise instance and saves it if updateFn reports a change.
func (r *sqliteWorkoutRepository) UpdateExercise(
	ctx context.Context,
	id string,
	updateFn func(e *ExerciseInstance) (bool, error),
) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var e ExerciseInstance
		err := tx.QueryRowContext(ctx, `
			SELECT id, workout_id, name, order_index, target_sets, target_reps, notes, is_custom
			FROM exercise_instances
			WHERE id = ?`, id).Scan(&e.ID, &e.WorkoutID, &e.Name, &e.OrderIndex, &e.TargetSets, &e.TargetReps,
			&e.Notes, &e.IsCustom)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("query exercise instance: %w", err)
		}
		updated, err := updateFn(&e)
		if err != nil {
			return fmt.Errorf("update function: %w", err)
		}
		if !updated {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE exercise_instances
			SET name = ?, target_sets = ?, target_reps = ?, notes = ?
			WHERE id = ?`, e.Name, e.TargetSets, e.TargetReps, e.Notes, id); err != nil {
			return fmt.Errorf("update exercise instance: %w", err)
		}
		return nil
	})
}

func insertExercise(ctx context.Context, tx *sql.Tx, e ExerciseInstance) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO exercise_instances (id, workout_id, name, order_index, target_sets, target_reps, notes, is_custom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WorkoutID, e.Name, e.OrderIndex, e.TargetSets, e.TargetReps, e.Notes, e.IsCustom); err != nil {
		return fmt.Errorf("insert exercise instance %q: %w", e.Name, err)
	}
	return nil
}

// loadWorkout reads the workout aggregate through q so that it can be used inside a transaction.
func loadWorkout(ctx context.Context, q queryer, id string) (Workout, error) {
	var (
		w         Workout
		startedAt string
		endedAt   sql.NullString
		err       error
	)
	err = q.QueryRowContext(ctx, selectWorkout+` WHERE id = ?`, id).Scan(
		&w.ID, &w.Name, &startedAt, &endedAt, &w.ProgramNameSnapshot, &w.TotalPausedMs, &w.IsQuickWorkout)
	if errors.Is(err, sql.ErrNoRows) {
		return Workout{}, ErrNotFound
	}
	if err != nil {
		return Workout{}, fmt.Errorf("query workout: %w", err)
	}
	if w.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Workout{}, fmt.Errorf("parse started_at: %w", err)
	}
	if w.EndedAt, err = parseNullTimestamp(endedAt); err != nil {
		return Workout{}, fmt.Errorf("parse ended_at: %w", err)
	}
	if w.Exercises, err = loadExercises(ctx, q, id); err != nil {
		return Workout{}, err
	}
	return w, nil
}

func loadExercises(ctx context.Context, q queryer, workoutID string) (_ []ExerciseInstance, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, workout_id, name, order_index, target_sets, target_reps, notes, is_custom
		FROM exercise_instances
		WHERE workout_id = ?
		ORDER BY order_index`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("query exercise instances: %w", err)
	}
	exercises := []ExerciseInstance{}
	for rows.Next() {
		var e ExerciseInstance
		if err = rows.Scan(&e.ID, &e.WorkoutID, &e.Name, &e.OrderIndex, &e.TargetSets, &e.TargetReps, &e.Notes,
			&e.IsCustom); err != nil {
			closeRows(rows, &err)
			return nil, fmt.Errorf("scan exercise instance: %w", err)
		}
		e.Sets = []SetRecord{}
		exercises = append(exercises, e)
	}
	if err = rows.Err(); err != nil {
		closeRows(rows, &err)
		return nil, fmt.Errorf("rows error: %w", err)
	}
	closeRows(rows, &err)
	if err != nil {
		return nil, err
	}

	sets, err := querySets(ctx, q, `
		SELECT s.id, s.exercise_id, s.weight_kg, s.reps, s.rpe, s.timestamp, s.is_warmup
		FROM set_records s
		JOIN exercise_instances e ON e.id = s.exercise_id
		WHERE e.workout_id = ?
		ORDER BY s.timestamp, s.id`, workoutID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(exercises))
	for i, e := range exercises {
		index[e.ID] = i
	}
	for _, s := range sets {
		i := index[s.ExerciseID]
		exercises[i].Sets = append(exercises[i].Sets, s)
	}
	return exercises, nil
}
