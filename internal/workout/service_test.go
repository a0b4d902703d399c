package workout_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftlog/internal/ptr"
	"github.com/myrjola/liftlog/internal/sqlite"
	"github.com/myrjola/liftlog/internal/testhelpers"
	"github.com/myrjola/liftlog/internal/workout"
)

func newTestService(t *testing.T) (*workout.Service, *sqlite.Database) {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return workout.NewService(db, logger), db
}

func twoDayGraph(start time.Time) workout.ProgramGraph {
	return workout.ProgramGraph{
		Name:       "Strength Base",
		StartDate:  start,
		TotalWeeks: 4,
		Templates: []workout.TemplateGraph{
			{
				Name:       "Day 1",
				DayIndex:   0,
				WeekNumber: 1,
				Exercises: []workout.ExerciseGraph{
					{Name: "Squat", TargetSets: 3, TargetReps: "8-10", Notes: "Brace before descending"},
					{Name: "Bench Press", TargetSets: 4, TargetReps: "6-8"},
				},
			},
			{
				Name:       "Day 2",
				DayIndex:   1,
				WeekNumber: 1,
				Exercises: []workout.ExerciseGraph{
					{Name: "Deadlift", TargetSets: 2, TargetReps: "5"},
				},
			},
		},
	}
}

// completeWorkout logs one set with reps per exercise name match and finishes the workout an hour after start.
func completeWorkout(t *testing.T, svc *workout.Service, w workout.Workout, sets map[string][]int, weight float64) {
	t.Helper()
	ctx := t.Context()
	ts := w.StartedAt
	for _, e := range w.Exercises {
		for _, reps := range sets[e.Name] {
			ts = ts.Add(3 * time.Minute)
			if _, err := svc.LogSet(ctx, e.ID, workout.NewSet{WeightKg: weight, Reps: reps, Timestamp: ts}); err != nil {
				t.Fatalf("LogSet: %v", err)
			}
		}
	}
	discarded, err := svc.FinishWorkout(ctx, w.ID, w.StartedAt.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}
	if discarded {
		t.Fatal("FinishWorkout discarded a workout with sets")
	}
}

func TestService_programToSuggestion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)

	graph := workout.ProgramGraph{
		Name:       "Squat Focus",
		StartDate:  now,
		TotalWeeks: 4,
		Templates: []workout.TemplateGraph{{
			Name:       "Day 1",
			DayIndex:   0,
			WeekNumber: 1,
			Exercises:  []workout.ExerciseGraph{{Name: "Squat", TargetSets: 3, TargetReps: "8-10"}},
		}},
	}
	program, err := svc.CreateProgram(ctx, graph, now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if err = svc.SetActiveProgram(ctx, program.ID); err != nil {
		t.Fatalf("SetActiveProgram: %v", err)
	}

	for i := range 2 {
		day := now.Add(time.Duration(i) * 48 * time.Hour)
		plan, planErr := svc.TodayPlan(ctx, day)
		if planErr != nil {
			t.Fatalf("TodayPlan: %v", planErr)
		}
		if !plan.HasProgram || !plan.HasTemplate {
			t.Fatalf("TodayPlan() = %+v, want program and template", plan)
		}
		if plan.Week != 1 || plan.Day != 0 || plan.Template.Name != "Day 1" {
			t.Fatalf("TodayPlan() week %d day %d template %q, want week 1 day 0 Day 1",
				plan.Week, plan.Day, plan.Template.Name)
		}

		w, instErr := svc.InstantiateWorkout(ctx, plan.Template.ID, false, day)
		if instErr != nil {
			t.Fatalf("InstantiateWorkout: %v", instErr)
		}
		if len(w.Exercises) != 1 || w.Exercises[0].Name != "Squat" || w.Exercises[0].TargetSets != 3 {
			t.Fatalf("InstantiateWorkout() exercises = %+v, want one Squat with 3 sets", w.Exercises)
		}
		if w.ProgramNameSnapshot != "Squat Focus" {
			t.Errorf("ProgramNameSnapshot = %q, want %q", w.ProgramNameSnapshot, "Squat Focus")
		}
		completeWorkout(t, svc, w, map[string][]int{"Squat": {10, 10, 10}}, 80)
	}

	got, err := svc.ProgressiveOverloadSuggestion(ctx, "Squat", "8-10")
	if err != nil {
		t.Fatalf("ProgressiveOverloadSuggestion: %v", err)
	}
	want := workout.Suggestion{
		HasData:       true,
		Reason:        "Reached 10 reps in 2 of the last 2 workouts",
		SuggestedReps: ptr.Ref("10-12"),
		LastWeight:    80,
		LastReps:      10,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProgressiveOverloadSuggestion() mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ProgressiveOverloadSuggestion_usesLastWorkingSet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	templates, err := svc.ListWorkoutTemplates(ctx, program.ID)
	if err != nil {
		t.Fatalf("ListWorkoutTemplates: %v", err)
	}

	w, err := svc.InstantiateWorkout(ctx, templates[0].ID, false, now)
	if err != nil {
		t.Fatalf("InstantiateWorkout: %v", err)
	}
	// The best set is first, the last working set is what counts. The trailing warmup is ignored.
	squat := w.Exercises[0]
	for i, set := range []workout.NewSet{
		{WeightKg: 100, Reps: 10},
		{WeightKg: 100, Reps: 7},
		{WeightKg: 40, Reps: 12, IsWarmup: true},
	} {
		set.Timestamp = now.Add(time.Duration(i+1) * time.Minute)
		if _, err = svc.LogSet(ctx, squat.ID, set); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
	}

	// Sets of a running workout are not history yet.
	got, err := svc.ProgressiveOverloadSuggestion(ctx, "Squat", "8-10")
	if err != nil {
		t.Fatalf("ProgressiveOverloadSuggestion: %v", err)
	}
	if got.HasData {
		t.Errorf("ProgressiveOverloadSuggestion() before finishing = %+v, want no data", got)
	}

	if _, err = svc.FinishWorkout(ctx, w.ID, now.Add(time.Hour), 0); err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}
	got, err = svc.ProgressiveOverloadSuggestion(ctx, "Squat", "8-10")
	if err != nil {
		t.Fatalf("ProgressiveOverloadSuggestion: %v", err)
	}
	if got.LastReps != 7 || got.LastWeight != 100 || got.SuggestedReps != nil || got.SuggestedWeight != nil {
		t.Errorf("ProgressiveOverloadSuggestion() = %+v, want no change based on 100 kg x 7", got)
	}
}

func TestService_ProgressiveOverloadSuggestion_onePerWorkout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)

	logWorkout := func(start time.Time, instances [][]workout.NewSet) {
		t.Helper()
		w, err := svc.StartAdHocWorkout(ctx, "Legs", start)
		if err != nil {
			t.Fatalf("StartAdHocWorkout: %v", err)
		}
		ts := start
		for i, sets := range instances {
			e, insertErr := svc.InsertExercise(ctx, w.ID, i, workout.NewExercise{Name: "Squat", IsCustom: true})
			if insertErr != nil {
				t.Fatalf("InsertExercise: %v", insertErr)
			}
			for _, set := range sets {
				ts = ts.Add(time.Minute)
				set.Timestamp = ts
				if _, err = svc.LogSet(ctx, e.ID, set); err != nil {
					t.Fatalf("LogSet: %v", err)
				}
			}
		}
		if _, err = svc.FinishWorkout(ctx, w.ID, start.Add(time.Hour), 0); err != nil {
			t.Fatalf("FinishWorkout: %v", err)
		}
	}

	// A workout with only warmups of the exercise is not history.
	logWorkout(now.Add(-48*time.Hour), [][]workout.NewSet{{{WeightKg: 40, Reps: 10, IsWarmup: true}}})
	got, err := svc.ProgressiveOverloadSuggestion(ctx, "Squat", "8-10")
	if err != nil {
		t.Fatalf("ProgressiveOverloadSuggestion: %v", err)
	}
	if got.HasData {
		t.Errorf("ProgressiveOverloadSuggestion() after warmups only = %+v, want no data", got)
	}

	// Squat twice in one workout still counts as a single workout hitting the top of the range.
	logWorkout(now.Add(-24*time.Hour), [][]workout.NewSet{
		{{WeightKg: 100, Reps: 10}},
		{{WeightKg: 100, Reps: 10}},
	})
	got, err = svc.ProgressiveOverloadSuggestion(ctx, "Squat", "8-10")
	if err != nil {
		t.Fatalf("ProgressiveOverloadSuggestion: %v", err)
	}
	if !got.HasData || got.SuggestedReps != nil || got.SuggestedWeight == nil {
		t.Errorf("ProgressiveOverloadSuggestion() = %+v, want a weight increase from a single workout", got)
	}
}

func TestService_FinishWorkout(t *testing.T) {
	svc, db := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	templates, err := svc.ListWorkoutTemplates(ctx, program.ID)
	if err != nil {
		t.Fatalf("ListWorkoutTemplates: %v", err)
	}

	t.Run("empty workout is discarded", func(t *testing.T) {
		w, instErr := svc.InstantiateWorkout(ctx, templates[0].ID, false, now)
		if instErr != nil {
			t.Fatalf("InstantiateWorkout: %v", instErr)
		}
		discarded, finishErr := svc.FinishWorkout(ctx, w.ID, now.Add(time.Hour), 0)
		if finishErr != nil {
			t.Fatalf("FinishWorkout: %v", finishErr)
		}
		if !discarded {
			t.Error("FinishWorkout() discarded = false, want true")
		}
		if _, getErr := svc.GetWorkout(ctx, w.ID); !errors.Is(getErr, workout.ErrNotFound) {
			t.Errorf("GetWorkout() error = %v, want ErrNotFound", getErr)
		}
		var instances int
		if err = db.ReadOnly.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM exercise_instances WHERE workout_id = ?", w.ID).Scan(&instances); err != nil {
			t.Fatalf("count instances: %v", err)
		}
		if instances != 0 {
			t.Errorf("exercise instances left = %d, want 0", instances)
		}
	})

	t.Run("deleting the only set discards the workout on finish", func(t *testing.T) {
		w, instErr := svc.InstantiateWorkout(ctx, templates[0].ID, false, now)
		if instErr != nil {
			t.Fatalf("InstantiateWorkout: %v", instErr)
		}
		set, logErr := svc.LogSet(ctx, w.Exercises[0].ID, workout.NewSet{WeightKg: 60, Reps: 8, Timestamp: now})
		if logErr != nil {
			t.Fatalf("LogSet: %v", logErr)
		}
		if err = svc.DeleteSet(ctx, set.ID); err != nil {
			t.Fatalf("DeleteSet: %v", err)
		}
		discarded, finishErr := svc.FinishWorkout(ctx, w.ID, now.Add(time.Hour), 0)
		if finishErr != nil {
			t.Fatalf("FinishWorkout: %v", finishErr)
		}
		if !discarded {
			t.Error("FinishWorkout() discarded = false, want true")
		}
	})

	t.Run("workout with sets keeps end time and paused total", func(t *testing.T) {
		w, instErr := svc.InstantiateWorkout(ctx, templates[1].ID, true, now)
		if instErr != nil {
			t.Fatalf("InstantiateWorkout: %v", instErr)
		}
		if _, err = svc.LogSet(ctx, w.Exercises[0].ID, workout.NewSet{WeightKg: 140, Reps: 5, Timestamp: now}); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
		if err = svc.SavePausedDuration(ctx, w.ID, 30_000); err != nil {
			t.Fatalf("SavePausedDuration: %v", err)
		}
		ended := now.Add(50 * time.Minute)
		discarded, finishErr := svc.FinishWorkout(ctx, w.ID, ended, 90_000)
		if finishErr != nil {
			t.Fatalf("FinishWorkout: %v", finishErr)
		}
		if discarded {
			t.Error("FinishWorkout() discarded = true, want false")
		}
		got, getErr := svc.GetWorkout(ctx, w.ID)
		if getErr != nil {
			t.Fatalf("GetWorkout: %v", getErr)
		}
		if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
			t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
		}
		if got.TotalPausedMs != 90_000 {
			t.Errorf("TotalPausedMs = %d, want 90000", got.TotalPausedMs)
		}
		if !got.IsQuickWorkout {
			t.Error("IsQuickWorkout = false, want true")
		}
	})
}

func TestService_InstantiateWorkout_quick(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	tpl, ok, err := svc.SelectProgramTemplate(ctx, program.ID, 1, 0)
	if err != nil || !ok {
		t.Fatalf("SelectProgramTemplate() = %v, %v", ok, err)
	}
	w, err := svc.InstantiateWorkout(ctx, tpl.ID, true, now)
	if err != nil {
		t.Fatalf("InstantiateWorkout: %v", err)
	}
	type planned struct {
		Name  string
		Sets  int
		Reps  string
		Notes string
		Order int
	}
	var got []planned
	for _, e := range w.Exercises {
		got = append(got, planned{e.Name, e.TargetSets, e.TargetReps, e.Notes, e.OrderIndex})
	}
	want := []planned{
		{Name: "Squat", Sets: 3, Reps: "8-10", Notes: "Brace before descending", Order: 0},
		{Name: "Bench Press", Sets: 3, Reps: "6-8", Notes: "", Order: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("quick workout exercises mismatch (-want +got):\n%s", diff)
	}
}

func TestService_RecommendedDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}

	day, err := svc.RecommendedDay(ctx, program.ID)
	if err != nil {
		t.Fatalf("RecommendedDay: %v", err)
	}
	if day != 0 {
		t.Errorf("RecommendedDay() without history = %d, want 0", day)
	}

	templates, err := svc.ListWorkoutTemplates(ctx, program.ID)
	if err != nil {
		t.Fatalf("ListWorkoutTemplates: %v", err)
	}
	for i, want := range []int{1, 0, 1} {
		tpl := templates[i%2]
		w, instErr := svc.InstantiateWorkout(ctx, tpl.ID, false, now.Add(time.Duration(i)*24*time.Hour))
		if instErr != nil {
			t.Fatalf("InstantiateWorkout: %v", instErr)
		}
		completeWorkout(t, svc, w, map[string][]int{"Squat": {8}, "Deadlift": {5}}, 100)
		if day, err = svc.RecommendedDay(ctx, program.ID); err != nil {
			t.Fatalf("RecommendedDay: %v", err)
		}
		if day != want {
			t.Errorf("RecommendedDay() after %q = %d, want %d", tpl.Name, day, want)
		}
	}
}

func TestService_CleanupAbandoned(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-20 * time.Hour)

	empty, err := svc.StartAdHocWorkout(ctx, "Forgotten", yesterday)
	if err != nil {
		t.Fatalf("StartAdHocWorkout: %v", err)
	}
	logged, err := svc.StartAdHocWorkout(ctx, "Left open", yesterday)
	if err != nil {
		t.Fatalf("StartAdHocWorkout: %v", err)
	}
	e, err := svc.InsertExercise(ctx, logged.ID, 0, workout.NewExercise{Name: "Row", IsCustom: true})
	if err != nil {
		t.Fatalf("InsertExercise: %v", err)
	}
	if _, err = svc.LogSet(ctx, e.ID, workout.NewSet{WeightKg: 50, Reps: 10, Timestamp: yesterday}); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	today, err := svc.StartAdHocWorkout(ctx, "In progress", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("StartAdHocWorkout: %v", err)
	}

	result, err := svc.CleanupAbandoned(ctx, now)
	if err != nil {
		t.Fatalf("CleanupAbandoned: %v", err)
	}
	if diff := cmp.Diff(workout.CleanupResult{Deleted: 1, Closed: 1}, result); diff != "" {
		t.Errorf("CleanupAbandoned() mismatch (-want +got):\n%s", diff)
	}

	if _, err = svc.GetWorkout(ctx, empty.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("empty abandoned workout: got %v, want ErrNotFound", err)
	}
	closed, err := svc.GetWorkout(ctx, logged.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if wantEnd := yesterday.Add(2 * time.Hour); closed.EndedAt == nil || !closed.EndedAt.Equal(wantEnd) {
		t.Errorf("closed EndedAt = %v, want %v", closed.EndedAt, wantEnd)
	}
	running, err := svc.GetWorkout(ctx, today.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if running.EndedAt != nil {
		t.Errorf("today's workout was closed: %v", running.EndedAt)
	}

	result, err = svc.CleanupAbandoned(ctx, now)
	if err != nil {
		t.Fatalf("second CleanupAbandoned: %v", err)
	}
	if diff := cmp.Diff(workout.CleanupResult{}, result); diff != "" {
		t.Errorf("second CleanupAbandoned() mismatch (-want +got):\n%s", diff)
	}
}

func TestService_DeleteProgram(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if err = svc.SetActiveProgram(ctx, program.ID); err != nil {
		t.Fatalf("SetActiveProgram: %v", err)
	}
	plan, err := svc.TodayPlan(ctx, now)
	if err != nil {
		t.Fatalf("TodayPlan: %v", err)
	}
	w, err := svc.InstantiateWorkout(ctx, plan.Template.ID, false, now)
	if err != nil {
		t.Fatalf("InstantiateWorkout: %v", err)
	}
	completeWorkout(t, svc, w, map[string][]int{"Squat": {8}}, 100)

	if err = svc.RenameProgram(ctx, program.ID, "Renamed", now.Add(time.Hour)); err != nil {
		t.Fatalf("RenameProgram: %v", err)
	}
	if err = svc.DeleteProgram(ctx, program.ID); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}

	if _, err = svc.GetProgram(ctx, program.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("GetProgram() error = %v, want ErrNotFound", err)
	}
	history, err := svc.GetWorkout(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if history.ProgramNameSnapshot != "Strength Base" {
		t.Errorf("ProgramNameSnapshot = %q, want %q", history.ProgramNameSnapshot, "Strength Base")
	}
	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.ActiveProgramID != "" {
		t.Errorf("ActiveProgramID = %q, want cleared", settings.ActiveProgramID)
	}
	plan, err = svc.TodayPlan(ctx, now)
	if err != nil {
		t.Fatalf("TodayPlan: %v", err)
	}
	if plan.HasProgram {
		t.Errorf("TodayPlan() after delete = %+v, want no program", plan)
	}
	if err = svc.DeleteProgram(ctx, program.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("second DeleteProgram() error = %v, want ErrNotFound", err)
	}
}

func TestService_UpdateProgram(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	created := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(created), created)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	later := created.Add(24 * time.Hour)
	newStart := created.Add(-14 * 24 * time.Hour)
	if err = svc.RescheduleProgram(ctx, program.ID, newStart, later); err != nil {
		t.Fatalf("RescheduleProgram: %v", err)
	}
	if err = svc.ResizeProgram(ctx, program.ID, 8, later); err != nil {
		t.Fatalf("ResizeProgram: %v", err)
	}
	if err = svc.ResizeProgram(ctx, program.ID, 0, later); !errors.Is(err, workout.ErrInvalidInput) {
		t.Errorf("ResizeProgram(0) error = %v, want ErrInvalidInput", err)
	}
	if err = svc.RenameProgram(ctx, program.ID, "  ", later); !errors.Is(err, workout.ErrInvalidInput) {
		t.Errorf("RenameProgram(blank) error = %v, want ErrInvalidInput", err)
	}
	if err = svc.ResizeProgram(ctx, "missing", 3, later); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("ResizeProgram(missing) error = %v, want ErrNotFound", err)
	}

	got, err := svc.GetProgram(ctx, program.ID)
	if err != nil {
		t.Fatalf("GetProgram: %v", err)
	}
	want := workout.Program{
		ID:         program.ID,
		Name:       "Strength Base",
		CreatedAt:  created,
		UpdatedAt:  later,
		StartDate:  newStart,
		TotalWeeks: 8,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetProgram() mismatch (-want +got):\n%s", diff)
	}
	if week := workout.CurrentWeek(got.StartDate, got.TotalWeeks, later); week != 3 {
		t.Errorf("CurrentWeek() after reschedule = %d, want 3", week)
	}
}

func TestService_CreateProgram_validation(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(g *workout.ProgramGraph)
	}{
		{name: "zero weeks", mutate: func(g *workout.ProgramGraph) { g.TotalWeeks = 0 }},
		{name: "blank name", mutate: func(g *workout.ProgramGraph) { g.Name = " " }},
		{name: "day out of range", mutate: func(g *workout.ProgramGraph) { g.Templates[0].DayIndex = 7 }},
		{name: "week zero", mutate: func(g *workout.ProgramGraph) { g.Templates[0].WeekNumber = 0 }},
		{name: "duplicate phase", mutate: func(g *workout.ProgramGraph) { g.Templates[1].DayIndex = 0 }},
		{name: "zero target sets", mutate: func(g *workout.ProgramGraph) { g.Templates[0].Exercises[0].TargetSets = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := twoDayGraph(now)
			tt.mutate(&graph)
			if _, err := svc.CreateProgram(t.Context(), graph, now); !errors.Is(err, workout.ErrInvalidInput) {
				t.Errorf("CreateProgram() error = %v, want ErrInvalidInput", err)
			}
		})
	}
	programs, err := svc.ListPrograms(t.Context())
	if err != nil {
		t.Fatalf("ListPrograms: %v", err)
	}
	if len(programs) != 0 {
		t.Errorf("ListPrograms() = %d programs, want 0", len(programs))
	}
}

func TestService_WeekSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	graph := twoDayGraph(now)
	graph.Templates = append(graph.Templates, workout.TemplateGraph{
		Name:       "Day 1 Heavy",
		DayIndex:   0,
		WeekNumber: 3,
		Exercises:  []workout.ExerciseGraph{{Name: "Squat", TargetSets: 5, TargetReps: "3-5"}},
	})
	program, err := svc.CreateProgram(ctx, graph, now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	names := func(week int) []string {
		templates, scheduleErr := svc.WeekSchedule(ctx, program.ID, week)
		if scheduleErr != nil {
			t.Fatalf("WeekSchedule(%d): %v", week, scheduleErr)
		}
		var out []string
		for _, tpl := range templates {
			out = append(out, tpl.Name)
		}
		return out
	}
	if diff := cmp.Diff([]string{"Day 1", "Day 2"}, names(2)); diff != "" {
		t.Errorf("week 2 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Day 1 Heavy", "Day 2"}, names(4)); diff != "" {
		t.Errorf("week 4 mismatch (-want +got):\n%s", diff)
	}
	if _, err = svc.WeekSchedule(ctx, program.ID, 5); !errors.Is(err, workout.ErrInvalidInput) {
		t.Errorf("WeekSchedule(5) error = %v, want ErrInvalidInput", err)
	}
}

func TestService_InsertExercise(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	program, err := svc.CreateProgram(ctx, twoDayGraph(now), now)
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	tpl, _, err := svc.SelectProgramTemplate(ctx, program.ID, 1, 0)
	if err != nil {
		t.Fatalf("SelectProgramTemplate: %v", err)
	}
	w, err := svc.InstantiateWorkout(ctx, tpl.ID, false, now)
	if err != nil {
		t.Fatalf("InstantiateWorkout: %v", err)
	}
	inserted, err := svc.InsertExercise(ctx, w.ID, 1, workout.NewExercise{Name: "Goblet Squat"})
	if err != nil {
		t.Fatalf("InsertExercise: %v", err)
	}
	if inserted.TargetSets != workout.DefaultCustomSets || inserted.TargetReps != workout.DefaultCustomReps {
		t.Errorf("InsertExercise() targets = %d x %q, want defaults", inserted.TargetSets, inserted.TargetReps)
	}
	if _, err = svc.InsertExercise(ctx, w.ID, 3, workout.NewExercise{
		Name: "Plank", TargetSets: 2, TargetReps: "45-60s", IsCustom: true,
	}); err != nil {
		t.Fatalf("InsertExercise: %v", err)
	}
	if err = svc.RenameExercise(ctx, w.Exercises[0].ID, "Front Squat", "Elbows high"); err != nil {
		t.Fatalf("RenameExercise: %v", err)
	}
	if _, err = svc.InsertExercise(ctx, w.ID, 0, workout.NewExercise{Name: ""}); !errors.Is(err, workout.ErrInvalidInput) {
		t.Errorf("InsertExercise(blank) error = %v, want ErrInvalidInput", err)
	}

	got, err := svc.GetWorkout(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	type row struct {
		Name   string
		Order  int
		Custom bool
		Notes  string
	}
	var rows []row
	for _, e := range got.Exercises {
		rows = append(rows, row{e.Name, e.OrderIndex, e.IsCustom, e.Notes})
	}
	want := []row{
		{Name: "Front Squat", Order: 0, Custom: false, Notes: "Elbows high"},
		{Name: "Goblet Squat", Order: 1, Custom: false, Notes: ""},
		{Name: "Bench Press", Order: 2, Custom: false, Notes: ""},
		{Name: "Plank", Order: 3, Custom: true, Notes: ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("exercises mismatch (-want +got):\n%s", diff)
	}
}

func TestService_LogSet_validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)
	w, err := svc.StartAdHocWorkout(ctx, "Arms", now)
	if err != nil {
		t.Fatalf("StartAdHocWorkout: %v", err)
	}
	e, err := svc.InsertExercise(ctx, w.ID, 0, workout.NewExercise{Name: "Curl", IsCustom: true})
	if err != nil {
		t.Fatalf("InsertExercise: %v", err)
	}
	tests := []struct {
		name string
		in   workout.NewSet
	}{
		{name: "negative weight", in: workout.NewSet{WeightKg: -1, Reps: 5}},
		{name: "negative reps", in: workout.NewSet{WeightKg: 10, Reps: -1}},
		{name: "rpe too low", in: workout.NewSet{WeightKg: 10, Reps: 5, RPE: ptr.Ref(5.5)}},
		{name: "rpe too high", in: workout.NewSet{WeightKg: 10, Reps: 5, RPE: ptr.Ref(10.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, logErr := svc.LogSet(ctx, e.ID, tt.in); !errors.Is(logErr, workout.ErrInvalidInput) {
				t.Errorf("LogSet() error = %v, want ErrInvalidInput", logErr)
			}
		})
	}
	set, err := svc.LogSet(ctx, e.ID, workout.NewSet{WeightKg: 12.5, Reps: 12, RPE: ptr.Ref(8.5), Timestamp: now})
	if err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	got, err := svc.GetWorkout(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if diff := cmp.Diff([]workout.SetRecord{set}, got.Exercises[0].Sets); diff != "" {
		t.Errorf("sets mismatch (-want +got):\n%s", diff)
	}
	if err = svc.DeleteSet(ctx, "missing"); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("DeleteSet(missing) error = %v, want ErrNotFound", err)
	}
}

func TestService_EstimatedOneRepMax(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)

	if _, ok, err := svc.EstimatedOneRepMax(ctx, "Bench Press"); err != nil || ok {
		t.Fatalf("EstimatedOneRepMax() without data = %v, %v", ok, err)
	}

	w, err := svc.StartAdHocWorkout(ctx, "Push", now)
	if err != nil {
		t.Fatalf("StartAdHocWorkout: %v", err)
	}
	e, err := svc.InsertExercise(ctx, w.ID, 0, workout.NewExercise{Name: "Bench Press"})
	if err != nil {
		t.Fatalf("InsertExercise: %v", err)
	}
	for i, in := range []workout.NewSet{
		{WeightKg: 150, Reps: 5, IsWarmup: true},
		{WeightKg: 90, Reps: 6},
		{WeightKg: 100, Reps: 3},
	} {
		in.Timestamp = now.Add(time.Duration(i) * time.Minute)
		if _, err = svc.LogSet(ctx, e.ID, in); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
	}
	if _, err = svc.FinishWorkout(ctx, w.ID, now.Add(time.Hour), 0); err != nil {
		t.Fatalf("FinishWorkout: %v", err)
	}

	got, ok, err := svc.EstimatedOneRepMax(ctx, "Bench Press")
	if err != nil || !ok {
		t.Fatalf("EstimatedOneRepMax() = %v, %v", ok, err)
	}
	// Epley is the default. 100 kg x 3 estimates above 90 kg x 6 and the warmup does not count.
	if want := workout.EstimateOneRepMax(100, 3, workout.FormulaEpley); got != want {
		t.Errorf("EstimatedOneRepMax() epley = %v, want %v", got, want)
	}

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	settings.UseEpley = false
	if _, err = svc.SaveSettings(ctx, settings, now); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, _, err = svc.EstimatedOneRepMax(ctx, "Bench Press")
	if err != nil {
		t.Fatalf("EstimatedOneRepMax: %v", err)
	}
	if want := workout.EstimateOneRepMax(100, 3, workout.FormulaBrzycki); got != want {
		t.Errorf("EstimatedOneRepMax() brzycki = %v, want %v", got, want)
	}
}

func TestService_SaveSettings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	now := time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC)

	defaults, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	wantDefaults := workout.Settings{
		UseEpley:        true,
		ActiveProgramID: "",
		RestTimer:       workout.RestTimerSettings{Enabled: true, AutoStart: true, DurationSec: 90, Sound: true},
	}
	if diff := cmp.Diff(wantDefaults, defaults); diff != "" {
		t.Errorf("default settings mismatch (-want +got):\n%s", diff)
	}

	in := defaults
	in.RestTimer.DurationSec = 10
	if _, err = svc.SaveSettings(ctx, in, now); !errors.Is(err, workout.ErrInvalidInput) {
		t.Errorf("SaveSettings(10s) error = %v, want ErrInvalidInput", err)
	}

	in.RestTimer = workout.RestTimerSettings{Enabled: true, AutoStart: false, DurationSec: 120, Sound: false}
	in.DisclaimerAccepted = true
	saved, err := svc.SaveSettings(ctx, in, now)
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if saved.DisclaimerAcceptedAt == nil || !saved.DisclaimerAcceptedAt.Equal(now) {
		t.Errorf("DisclaimerAcceptedAt = %v, want %v", saved.DisclaimerAcceptedAt, now)
	}
	// Accepting again keeps the original time.
	if saved, err = svc.SaveSettings(ctx, in, now.Add(time.Hour)); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if !saved.DisclaimerAcceptedAt.Equal(now) {
		t.Errorf("DisclaimerAcceptedAt = %v, want %v", saved.DisclaimerAcceptedAt, now)
	}
	got, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("stored settings mismatch (-want +got):\n%s", diff)
	}
}
