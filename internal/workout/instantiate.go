package workout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuickSets scales a planned set count to roughly 70% for a quick workout, rounding up and never below one set.
func QuickSets(targetSets int) int {
	// ceil(n * 0.7) in integer arithmetic.
	return max(1, (targetSets*7+9)/10) //nolint:mnd // 70%.
}

// newWorkout materializes a workout from a template without persisting it.
func newWorkout(t WorkoutTemplate, programName string, quick bool, now time.Time) Workout {
	w := Workout{
		ID:                  uuid.NewString(),
		Name:                t.Name,
		StartedAt:           now.UTC(),
		EndedAt:             nil,
		ProgramNameSnapshot: programName,
		TotalPausedMs:       0,
		IsQuickWorkout:      quick,
		Exercises:           make([]ExerciseInstance, 0, len(t.Exercises)),
	}
	for _, et := range t.Exercises {
		sets := et.TargetSets
		if quick {
			sets = QuickSets(sets)
		}
		w.Exercises = append(w.Exercises, ExerciseInstance{
			ID:         uuid.NewString(),
			WorkoutID:  w.ID,
			Name:       et.Name,
			OrderIndex: et.OrderIndex,
			TargetSets: sets,
			TargetReps: et.TargetReps,
			Notes:      et.Notes,
			IsCustom:   false,
			Sets:       []SetRecord{},
		})
	}
	return w
}

// InstantiateWorkout creates and stores a running workout from the template. Quick workouts get about 70% of the
// planned sets per exercise.
func (s *Service) InstantiateWorkout(
	ctx context.Context,
	templateID string,
	quick bool,
	now time.Time,
) (Workout, error) {
	t, err := s.repo.templates.Get(ctx, templateID)
	if err != nil {
		return Workout{}, fmt.Errorf("get template %s: %w", templateID, err)
	}
	program, err := s.repo.programs.Get(ctx, t.ProgramID)
	if err != nil {
		return Workout{}, fmt.Errorf("get program %s: %w", t.ProgramID, err)
	}

	w := newWorkout(t, program.Name, quick, now)
	if err = s.repo.workouts.Create(ctx, w); err != nil {
		return Workout{}, fmt.Errorf("create workout from template %s: %w", templateID, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started workout",
		slog.String("workout_id", w.ID),
		slog.String("template_id", templateID),
		slog.Bool("quick", quick))
	return w, nil
}

// StartAdHocWorkout creates and stores a running workout without exercises.
func (s *Service) StartAdHocWorkout(ctx context.Context, name string, now time.Time) (Workout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Workout{}, fmt.Errorf("%w: workout name is empty", ErrInvalidInput)
	}
	w := newWorkout(WorkoutTemplate{Name: name}, "", false, now) //nolint:exhaustruct // ad hoc has no template.
	if err := s.repo.workouts.Create(ctx, w); err != nil {
		return Workout{}, fmt.Errorf("create ad hoc workout: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started ad hoc workout", slog.String("workout_id", w.ID))
	return w, nil
}
