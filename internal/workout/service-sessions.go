package workout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	minRPE = 6.0
	maxRPE = 10.0

	// DefaultCustomSets and DefaultCustomReps are used for custom exercises added without targets.
	DefaultCustomSets = 3
	DefaultCustomReps = "8-10"
)

// NewExercise describes an exercise added to a running workout.
type NewExercise struct {
	Name       string
	TargetSets int
	TargetReps string
	Notes      string
	IsCustom   bool
}

// GetWorkout retrieves a workout with exercises and sets.
func (s *Service) GetWorkout(ctx context.Context, id string) (Workout, error) {
	w, err := s.repo.workouts.Get(ctx, id)
	if err != nil {
		return Workout{}, fmt.Errorf("get workout %s: %w", id, err)
	}
	return w, nil
}

// ListWorkouts returns up to limit workouts, newest first.
func (s *Service) ListWorkouts(ctx context.Context, limit int) ([]Workout, error) {
	workouts, err := s.repo.workouts.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}

// LogSet validates in and stores it under the exercise instance.
func (s *Service) LogSet(ctx context.Context, exerciseID string, in NewSet) (SetRecord, error) {
	if math.IsNaN(in.WeightKg) || math.IsInf(in.WeightKg, 0) || in.WeightKg < 0 {
		return SetRecord{}, fmt.Errorf("%w: weight %v", ErrInvalidInput, in.WeightKg)
	}
	if in.Reps < 0 {
		return SetRecord{}, fmt.Errorf("%w: reps %d", ErrInvalidInput, in.Reps)
	}
	if in.RPE != nil && (*in.RPE < minRPE || *in.RPE > maxRPE) {
		return SetRecord{}, fmt.Errorf("%w: rpe %v outside %v-%v", ErrInvalidInput, *in.RPE, minRPE, maxRPE)
	}
	set := SetRecord{
		ID:         uuid.NewString(),
		ExerciseID: exerciseID,
		WeightKg:   in.WeightKg,
		Reps:       in.Reps,
		RPE:        in.RPE,
		Timestamp:  in.Timestamp.UTC(),
		IsWarmup:   in.IsWarmup,
	}
	if err := s.repo.sets.Create(ctx, set); err != nil {
		return SetRecord{}, fmt.Errorf("log set for exercise %s: %w", exerciseID, err)
	}
	return set, nil
}

// DeleteSet removes a logged set.
func (s *Service) DeleteSet(ctx context.Context, setID string) error {
	if err := s.repo.sets.Delete(ctx, setID); err != nil {
		return fmt.Errorf("delete set %s: %w", setID, err)
	}
	return nil
}

// RenameExercise changes the name and notes of an exercise instance.
func (s *Service) RenameExercise(ctx context.Context, exerciseID string, name string, notes string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: exercise name is empty", ErrInvalidInput)
	}
	err := s.repo.workouts.UpdateExercise(ctx, exerciseID, func(e *ExerciseInstance) (bool, error) {
		e.Name = name
		e.Notes = notes
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("rename exercise %s: %w", exerciseID, err)
	}
	return nil
}

// InsertExercise adds an exercise to the workout at position, moving the exercises from there on back by one.
// Missing targets fall back to DefaultCustomSets and DefaultCustomReps.
func (s *Service) InsertExercise(
	ctx context.Context,
	workoutID string,
	position int,
	in NewExercise,
) (ExerciseInstance, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ExerciseInstance{}, fmt.Errorf("%w: exercise name is empty", ErrInvalidInput)
	}
	if in.TargetSets < 0 {
		return ExerciseInstance{}, fmt.Errorf("%w: target sets %d", ErrInvalidInput, in.TargetSets)
	}
	if position < 0 {
		position = 0
	}
	e := ExerciseInstance{
		ID:         uuid.NewString(),
		WorkoutID:  workoutID,
		Name:       name,
		OrderIndex: position,
		TargetSets: in.TargetSets,
		TargetReps: strings.TrimSpace(in.TargetReps),
		Notes:      in.Notes,
		IsCustom:   in.IsCustom,
		Sets:       []SetRecord{},
	}
	if e.TargetSets == 0 {
		e.TargetSets = DefaultCustomSets
	}
	if e.TargetReps == "" {
		e.TargetReps = DefaultCustomReps
	}
	if err := s.repo.workouts.InsertExercise(ctx, e); err != nil {
		return ExerciseInstance{}, fmt.Errorf("insert exercise into %s: %w", workoutID, err)
	}
	return e, nil
}

// SavePausedDuration persists the cumulative paused time of a running workout.
func (s *Service) SavePausedDuration(ctx context.Context, workoutID string, totalPausedMs int64) error {
	err := s.repo.workouts.Update(ctx, workoutID, func(w *Workout) (bool, error) {
		if w.TotalPausedMs == totalPausedMs {
			return false, nil
		}
		w.TotalPausedMs = totalPausedMs
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("save paused duration of %s: %w", workoutID, err)
	}
	return nil
}

// FinishWorkout ends the workout at endedAt. A workout without any logged set is deleted together with its
// exercises instead, in which case discarded is true.
func (s *Service) FinishWorkout(
	ctx context.Context,
	workoutID string,
	endedAt time.Time,
	totalPausedMs int64,
) (bool, error) {
	w, err := s.repo.workouts.Get(ctx, workoutID)
	if err != nil {
		return false, fmt.Errorf("get workout %s: %w", workoutID, err)
	}
	if w.SetCount() == 0 {
		if err = s.repo.workouts.Delete(ctx, workoutID); err != nil {
			return false, fmt.Errorf("discard empty workout %s: %w", workoutID, err)
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "discarded empty workout", slog.String("workout_id", workoutID))
		return true, nil
	}

	err = s.repo.workouts.Update(ctx, workoutID, func(w *Workout) (bool, error) {
		ended := endedAt.UTC()
		w.EndedAt = &ended
		w.TotalPausedMs = totalPausedMs
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("finish workout %s: %w", workoutID, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "finished workout",
		slog.String("workout_id", workoutID), slog.Int("sets", w.SetCount()))
	return false, nil
}
