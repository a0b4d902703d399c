package workout

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteSetRepository implements setRepository.
type sqliteSetRepository struct {
	baseRepository
}

// Create logs a set under its exercise instance.
func (r *sqliteSetRepository) Create(ctx context.Context, s SetRecord) error {
	var rpe sql.NullFloat64
	if s.RPE != nil {
		rpe = sql.NullFloat64{Float64: *s.RPE, Valid: true}
	}
	if _, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO set_records (id, exercise_id, weight_kg, reps, rpe, timestamp, is_warmup)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ExerciseID, s.WeightKg, s.Reps, rpe, formatTimestamp(s.Timestamp), s.IsWarmup); err != nil {
		return fmt.Errorf("insert set record: %w", err)
	}
	return nil
}

// Delete removes a set record.
func (r *sqliteSetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM set_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete set record: %w", err)
	}
	return requireAffected(result)
}

// LastSetsByExercise returns the last working set of name in each of the most recent completed workouts, newest
// first. A workout repeating the exercise contributes only its final set. Warmups are ignored, so a workout with
// only warmup sets of name is skipped.
func (r *sqliteSetRepository) LastSetsByExercise(ctx context.Context, name string, limit int) ([]SetRecord, error) {
	return querySets(ctx, r.db.ReadOnly, `
		WITH ranked AS (SELECT s.id, s.exercise_id, s.weight_kg, s.reps, s.rpe, s.timestamp, s.is_warmup,
		                       w.started_at,
		                       ROW_NUMBER() OVER (PARTITION BY e.workout_id ORDER BY s.timestamp DESC, s.id DESC) AS rn
		                FROM set_records s
		                         JOIN exercise_instances e ON e.id = s.exercise_id
		                         JOIN workouts w ON w.id = e.workout_id
		                WHERE e.name = ?
		                  AND w.ended_at IS NOT NULL
		                  AND s.is_warmup = 0)
		SELECT id, exercise_id, weight_kg, reps, rpe, timestamp, is_warmup
		FROM ranked
		WHERE rn = 1
		ORDER BY started_at DESC, timestamp DESC
		LIMIT ?`, name, limit)
}

// ListCompletedWorkingSets returns every working set logged for name in completed workouts.
func (r *sqliteSetRepository) ListCompletedWorkingSets(ctx context.Context, name string) ([]SetRecord, error) {
	return querySets(ctx, r.db.ReadOnly, `
		SELECT s.id, s.exercise_id, s.weight_kg, s.reps, s.rpe, s.timestamp, s.is_warmup
		FROM set_records s
		         JOIN exercise_instances e ON e.id = s.exercise_id
		         JOIN workouts w ON w.id = e.workout_id
		WHERE e.name = ?
		  AND w.ended_at IS NOT NULL
		  AND s.is_warmup = 0
		ORDER BY s.timestamp`, name)
}

func querySets(ctx context.Context, q queryer, query string, args ...any) (_ []SetRecord, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query set records: %w", err)
	}
	defer closeRows(rows, &err)

	var sets []SetRecord
	for rows.Next() {
		var (
			s         SetRecord
			rpe       sql.NullFloat64
			timestamp string
		)
		if err = rows.Scan(&s.ID, &s.ExerciseID, &s.WeightKg, &s.Reps, &rpe, &timestamp, &s.IsWarmup); err != nil {
			return nil, fmt.Errorf("scan set record: %w", err)
		}
		if rpe.Valid {
			s.RPE = &rpe.Float64
		}
		if s.Timestamp, err = parseTimestamp(timestamp); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sets, nil
}
