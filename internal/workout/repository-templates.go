package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqliteTemplateRepository implements templateRepository.
type sqliteTemplateRepository struct {
	baseRepository
}

// Get retrieves a workout template with its exercises ordered by orderIndex.
func (r *sqliteTemplateRepository) Get(ctx context.Context, id string) (WorkoutTemplate, error) {
	var t WorkoutTemplate
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, program_id, name, day_index, week_number
		FROM workout_templates
		WHERE id = ?`, id).Scan(&t.ID, &t.ProgramID, &t.Name, &t.DayIndex, &t.WeekNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkoutTemplate{}, ErrNotFound
	}
	if err != nil {
		return WorkoutTemplate{}, fmt.Errorf("query workout template: %w", err)
	}

	byTemplate, err := r.exercises(ctx, `WHERE workout_template_id = ?`, id)
	if err != nil {
		return WorkoutTemplate{}, err
	}
	t.Exercises = byTemplate[id]
	return t, nil
}

// ListByProgram returns the program's templates ordered by dayIndex and weekNumber.
func (r *sqliteTemplateRepository) ListByProgram(ctx context.Context, programID string) (_ []WorkoutTemplate, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, program_id, name, day_index, week_number
		FROM workout_templates
		WHERE program_id = ?
		ORDER BY day_index, week_number`, programID)
	if err != nil {
		return nil, fmt.Errorf("query workout templates: %w", err)
	}
	defer closeRows(rows, &err)

	var templates []WorkoutTemplate
	for rows.Next() {
		var t WorkoutTemplate
		if err = rows.Scan(&t.ID, &t.ProgramID, &t.Name, &t.DayIndex, &t.WeekNumber); err != nil {
			return nil, fmt.Errorf("scan workout template: %w", err)
		}
		templates = append(templates, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	byTemplate, err := r.exercises(ctx, `
		WHERE workout_template_id IN (SELECT id FROM workout_templates WHERE program_id = ?)`, programID)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		templates[i].Exercises = byTemplate[templates[i].ID]
	}
	return templates, nil
}

// exercises loads exercise templates matching where, grouped by workout template ID.
func (r *sqliteTemplateRepository) exercises(
	ctx context.Context,
	where string,
	args ...any,
) (_ map[string][]ExerciseTemplate, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, workout_template_id, name, target_sets, target_reps, notes, order_index
		FROM exercise_templates `+where+`
		ORDER BY workout_template_id, order_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercise templates: %w", err)
	}
	defer closeRows(rows, &err)

	byTemplate := make(map[string][]ExerciseTemplate)
	for rows.Next() {
		var e ExerciseTemplate
		if err = rows.Scan(&e.ID, &e.WorkoutTemplateID, &e.Name, &e.TargetSets, &e.TargetReps, &e.Notes,
			&e.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan exercise template: %w", err)
		}
		byTemplate[e.WorkoutTemplateID] = append(byTemplate[e.WorkoutTemplateID], e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return byTemplate, nil
}
