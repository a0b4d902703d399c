package workout

import (
	"context"
	"fmt"
	"time"
)

// TodayPlan works out which workout applies today for the active program.
//
// Missing data is part of the result: no active program gives HasProgram false and no template for the recommended
// day gives HasTemplate false. Errors are store failures only.
func (s *Service) TodayPlan(ctx context.Context, now time.Time) (Plan, error) {
	settings, err := s.repo.settings.Get(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("get settings: %w", err)
	}
	if settings.ActiveProgramID == "" {
		return Plan{}, nil
	}
	program, err := s.repo.programs.Get(ctx, settings.ActiveProgramID)
	if isNotFound(err) {
		return Plan{}, nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("get active program: %w", err)
	}

	templates, err := s.repo.templates.ListByProgram(ctx, program.ID)
	if err != nil {
		return Plan{}, fmt.Errorf("list templates: %w", err)
	}
	dayIndex, err := s.recommendedDay(ctx, templates)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{
		HasProgram: true,
		Program:    &program,
		Week:       CurrentWeek(program.StartDate, program.TotalWeeks, now),
		Day:        dayIndex,
	}
	if t, ok := SelectTemplate(templates, plan.Week, plan.Day); ok {
		plan.HasTemplate = true
		plan.Template = &t
	}
	return plan, nil
}

// SelectProgramTemplate returns the template in effect for the program's dayIndex in weekNumber.
func (s *Service) SelectProgramTemplate(
	ctx context.Context,
	programID string,
	weekNumber int,
	dayIndex int,
) (WorkoutTemplate, bool, error) {
	templates, err := s.repo.templates.ListByProgram(ctx, programID)
	if err != nil {
		return WorkoutTemplate{}, false, fmt.Errorf("list templates: %w", err)
	}
	t, ok := SelectTemplate(templates, weekNumber, dayIndex)
	return t, ok, nil
}

// RecommendedDay returns the next rotation day of the program based on the last completed workout.
func (s *Service) RecommendedDay(ctx context.Context, programID string) (int, error) {
	templates, err := s.repo.templates.ListByProgram(ctx, programID)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	return s.recommendedDay(ctx, templates)
}

func (s *Service) recommendedDay(ctx context.Context, templates []WorkoutTemplate) (int, error) {
	last, err := s.repo.workouts.LatestCompleted(ctx)
	if isNotFound(err) {
		return RecommendedDay(templates, nil), nil
	}
	if err != nil {
		return 0, fmt.Errorf("get latest completed workout: %w", err)
	}
	return RecommendedDay(templates, &last), nil
}

// WeekSchedule lists the template in effect for every rotation day of the program in week.
func (s *Service) WeekSchedule(ctx context.Context, programID string, week int) ([]WorkoutTemplate, error) {
	program, err := s.repo.programs.Get(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get program %s: %w", programID, err)
	}
	if week < 1 || week > program.TotalWeeks {
		return nil, fmt.Errorf("%w: week %d outside 1-%d", ErrInvalidInput, week, program.TotalWeeks)
	}
	templates, err := s.repo.templates.ListByProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return WeekTemplates(templates, week), nil
}
