package workout

import (
	"context"
	"fmt"
)

// ProgressiveOverloadSuggestion advises on the next step for exerciseName from its last completed instances.
// Missing history is a Suggestion with HasData false, not an error.
func (s *Service) ProgressiveOverloadSuggestion(
	ctx context.Context,
	exerciseName string,
	targetReps string,
) (Suggestion, error) {
	history, err := s.repo.sets.LastSetsByExercise(ctx, exerciseName, overloadHistory)
	if err != nil {
		return Suggestion{}, fmt.Errorf("last sets of %q: %w", exerciseName, err)
	}
	return Advise(history, targetReps), nil
}

// EstimatedOneRepMax returns the best estimated 1RM across the working sets of completed workouts for exerciseName,
// using the formula from the settings. It reports false when there is nothing to estimate from.
func (s *Service) EstimatedOneRepMax(ctx context.Context, exerciseName string) (float64, bool, error) {
	settings, err := s.repo.settings.Get(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("get settings: %w", err)
	}
	sets, err := s.repo.sets.ListCompletedWorkingSets(ctx, exerciseName)
	if err != nil {
		return 0, false, fmt.Errorf("working sets of %q: %w", exerciseName, err)
	}
	best := 0.0
	for _, set := range sets {
		best = max(best, EstimateOneRepMax(set.WeightKg, set.Reps, settings.Formula()))
	}
	return best, best > 0, nil
}
