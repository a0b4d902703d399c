package workout

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// assumedDuration is how long an abandoned workout with logged sets is assumed to have lasted.
const assumedDuration = 2 * time.Hour

// CleanupResult counts what CleanupAbandoned did.
type CleanupResult struct {
	Deleted int `json:"deleted"`
	Closed  int `json:"closed"`
}

// CleanupAbandoned resolves workouts left open from a previous calendar day. Workouts without sets are deleted and
// the rest are closed with an assumed two hour duration. Running it again changes nothing.
//
// The calendar day is taken in now's location.
func (s *Service) CleanupAbandoned(ctx context.Context, now time.Time) (CleanupResult, error) {
	var result CleanupResult
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	open, err := s.repo.workouts.ListUnfinished(ctx)
	if err != nil {
		return result, fmt.Errorf("list unfinished workouts: %w", err)
	}
	for _, w := range open {
		if !w.StartedAt.Before(startOfToday) {
			continue
		}
		if w.SetCount() == 0 {
			if err = s.repo.workouts.Delete(ctx, w.ID); err != nil {
				return result, fmt.Errorf("delete abandoned workout %s: %w", w.ID, err)
			}
			result.Deleted++
			continue
		}
		err = s.repo.workouts.Update(ctx, w.ID, func(w *Workout) (bool, error) {
			if w.EndedAt != nil {
				return false, nil
			}
			ended := w.StartedAt.Add(assumedDuration)
			w.EndedAt = &ended
			return true, nil
		})
		if err != nil {
			return result, fmt.Errorf("close abandoned workout %s: %w", w.ID, err)
		}
		result.Closed++
	}

	if result.Deleted > 0 || result.Closed > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "cleaned up abandoned workouts",
			slog.Int("deleted", result.Deleted), slog.Int("closed", result.Closed))
	}
	return result, nil
}
