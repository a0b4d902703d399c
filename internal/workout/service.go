package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/liftlog/internal/sqlite"
)

// Service handles the business logic for programs, workouts and settings.
type Service struct {
	repo   *repository
	logger *slog.Logger
}

// NewService creates a new workout service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	factory := newRepositoryFactory(db, logger)
	return &Service{
		repo:   factory.newRepository(),
		logger: logger,
	}
}

const (
	minRestSeconds = 30
	maxRestSeconds = 300
	maxDayIndex    = 6
)

// CreateProgram validates graph and stores it as a new program.
func (s *Service) CreateProgram(ctx context.Context, graph ProgramGraph, now time.Time) (Program, error) {
	if err := validateGraph(graph); err != nil {
		return Program{}, err
	}
	p, err := s.repo.programs.Create(ctx, graph, now)
	if err != nil {
		return Program{}, fmt.Errorf("create program %q: %w", graph.Name, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created program",
		slog.String("program_id", p.ID), slog.Int("templates", len(graph.Templates)))
	return p, nil
}

func validateGraph(graph ProgramGraph) error {
	if strings.TrimSpace(graph.Name) == "" {
		return fmt.Errorf("%w: program name is empty", ErrInvalidInput)
	}
	if graph.TotalWeeks < 1 {
		return fmt.Errorf("%w: total weeks %d < 1", ErrInvalidInput, graph.TotalWeeks)
	}
	type phase struct{ day, week int }
	seen := make(map[phase]bool, len(graph.Templates))
	for _, t := range graph.Templates {
		if t.DayIndex < 0 || t.DayIndex > maxDayIndex {
			return fmt.Errorf("%w: template %q day index %d out of range", ErrInvalidInput, t.Name, t.DayIndex)
		}
		if t.WeekNumber < 1 {
			return fmt.Errorf("%w: template %q week number %d < 1", ErrInvalidInput, t.Name, t.WeekNumber)
		}
		key := phase{day: t.DayIndex, week: t.WeekNumber}
		if seen[key] {
			return fmt.Errorf("%w: day %d has two templates for week %d", ErrInvalidInput, t.DayIndex, t.WeekNumber)
		}
		seen[key] = true
		for _, e := range t.Exercises {
			if e.TargetSets < 1 {
				return fmt.Errorf("%w: exercise %q target sets %d < 1", ErrInvalidInput, e.Name, e.TargetSets)
			}
			if strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("%w: exercise name is empty in template %q", ErrInvalidInput, t.Name)
			}
		}
	}
	return nil
}

// ListPrograms returns all programs.
func (s *Service) ListPrograms(ctx context.Context) ([]Program, error) {
	programs, err := s.repo.programs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// GetProgram retrieves a program.
func (s *Service) GetProgram(ctx context.Context, id string) (Program, error) {
	p, err := s.repo.programs.Get(ctx, id)
	if err != nil {
		return Program{}, fmt.Errorf("get program %s: %w", id, err)
	}
	return p, nil
}

// ListWorkoutTemplates returns the program's templates with exercises, ordered by dayIndex and weekNumber.
func (s *Service) ListWorkoutTemplates(ctx context.Context, programID string) ([]WorkoutTemplate, error) {
	if _, err := s.repo.programs.Get(ctx, programID); err != nil {
		return nil, fmt.Errorf("get program %s: %w", programID, err)
	}
	templates, err := s.repo.templates.ListByProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("list templates of %s: %w", programID, err)
	}
	return templates, nil
}

// RenameProgram changes the program name. Workouts keep the name they were created with.
func (s *Service) RenameProgram(ctx context.Context, id string, name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: program name is empty", ErrInvalidInput)
	}
	return s.updateProgram(ctx, id, now, func(p *Program) bool {
		if p.Name == name {
			return false
		}
		p.Name = name
		return true
	})
}

// RescheduleProgram moves the program start date, which shifts the current week.
func (s *Service) RescheduleProgram(ctx context.Context, id string, startDate time.Time, now time.Time) error {
	return s.updateProgram(ctx, id, now, func(p *Program) bool {
		if p.StartDate.Equal(startDate.UTC()) {
			return false
		}
		p.StartDate = startDate.UTC()
		return true
	})
}

// ResizeProgram changes the cycle length.
func (s *Service) ResizeProgram(ctx context.Context, id string, totalWeeks int, now time.Time) error {
	if totalWeeks < 1 {
		return fmt.Errorf("%w: total weeks %d < 1", ErrInvalidInput, totalWeeks)
	}
	return s.updateProgram(ctx, id, now, func(p *Program) bool {
		if p.TotalWeeks == totalWeeks {
			return false
		}
		p.TotalWeeks = totalWeeks
		return true
	})
}

func (s *Service) updateProgram(ctx context.Context, id string, now time.Time, change func(p *Program) bool) error {
	err := s.repo.programs.Update(ctx, id, func(p *Program) (bool, error) {
		if !change(p) {
			return false, nil
		}
		p.UpdatedAt = now.UTC()
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("update program %s: %w", id, err)
	}
	return nil
}

// DeleteProgram removes the program and its templates and clears it as the active program.
func (s *Service) DeleteProgram(ctx context.Context, id string) error {
	if err := s.repo.programs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete program %s: %w", id, err)
	}
	err := s.repo.settings.Update(ctx, func(st *Settings) (bool, error) {
		if st.ActiveProgramID != id {
			return false, nil
		}
		st.ActiveProgramID = ""
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("clear active program: %w", err)
	}
	return nil
}

// SetActiveProgram makes the program the one today's plan is computed from.
func (s *Service) SetActiveProgram(ctx context.Context, id string) error {
	if _, err := s.repo.programs.Get(ctx, id); err != nil {
		return fmt.Errorf("get program %s: %w", id, err)
	}
	err := s.repo.settings.Update(ctx, func(st *Settings) (bool, error) {
		if st.ActiveProgramID == id {
			return false, nil
		}
		st.ActiveProgramID = id
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("set active program: %w", err)
	}
	return nil
}

// GetSettings retrieves the settings.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	settings, err := s.repo.settings.Get(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings stores the user-editable settings. The active program is managed by SetActiveProgram and is left
// untouched. Accepting the disclaimer records now as the acceptance time.
func (s *Service) SaveSettings(ctx context.Context, in Settings, now time.Time) (Settings, error) {
	if in.RestTimer.DurationSec < minRestSeconds || in.RestTimer.DurationSec > maxRestSeconds {
		return Settings{}, fmt.Errorf("%w: rest duration %ds outside %d-%d", ErrInvalidInput,
			in.RestTimer.DurationSec, minRestSeconds, maxRestSeconds)
	}
	var saved Settings
	err := s.repo.settings.Update(ctx, func(st *Settings) (bool, error) {
		st.UseEpley = in.UseEpley
		st.RestTimer = in.RestTimer
		switch {
		case in.DisclaimerAccepted && !st.DisclaimerAccepted:
			accepted := now.UTC()
			st.DisclaimerAccepted = true
			st.DisclaimerAcceptedAt = &accepted
		case !in.DisclaimerAccepted:
			st.DisclaimerAccepted = false
			st.DisclaimerAcceptedAt = nil
		}
		saved = *st
		return true, nil
	})
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}

// isNotFound reports whether err is ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
