package workout

import (
	"time"
)

// Program is a multi-week, multi-day training plan.
type Program struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	StartDate  time.Time `json:"startDate"`
	TotalWeeks int       `json:"totalWeeks"`
}

// WorkoutTemplate is the planned exercise list for one rotation day.
//
// WeekNumber is the first program week in which this version of the day becomes active. Several templates may share
// a DayIndex as long as their WeekNumbers differ, which is how phase changes are represented.
type WorkoutTemplate struct {
	ID         string             `json:"id"`
	ProgramID  string             `json:"programId"`
	Name       string             `json:"name"`
	DayIndex   int                `json:"dayIndex"`
	WeekNumber int                `json:"weekNumber"`
	Exercises  []ExerciseTemplate `json:"exercises"`
}

// ExerciseTemplate is a planned exercise within a WorkoutTemplate.
type ExerciseTemplate struct {
	ID                string `json:"id"`
	WorkoutTemplateID string `json:"workoutTemplateId"`
	Name              string `json:"name"`
	TargetSets        int    `json:"targetSets"`
	// TargetReps is free-form, e.g. "8-10", "AMRAP" or "45-60s".
	TargetReps string `json:"targetReps"`
	Notes      string `json:"notes"`
	OrderIndex int    `json:"orderIndex"`
}

// Workout is a concrete, dated instance of performing a template or an ad hoc session.
//
// Name and ProgramNameSnapshot are copied at creation time and never follow later edits to the program.
type Workout struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	StartedAt           time.Time          `json:"startedAt"`
	EndedAt             *time.Time         `json:"endedAt,omitempty"`
	ProgramNameSnapshot string             `json:"programNameSnapshot"`
	TotalPausedMs       int64              `json:"totalPausedMs"`
	IsQuickWorkout      bool               `json:"isQuickWorkout"`
	Exercises           []ExerciseInstance `json:"exercises"`
}

// Completed reports whether the workout has ended.
func (w Workout) Completed() bool {
	return w.EndedAt != nil
}

// SetCount returns the number of sets logged across all exercises.
func (w Workout) SetCount() int {
	n := 0
	for _, e := range w.Exercises {
		n += len(e.Sets)
	}
	return n
}

// ExerciseInstance is an exercise performed within a Workout.
type ExerciseInstance struct {
	ID         string      `json:"id"`
	WorkoutID  string      `json:"workoutId"`
	Name       string      `json:"name"`
	OrderIndex int         `json:"orderIndex"`
	TargetSets int         `json:"targetSets"`
	TargetReps string      `json:"targetReps"`
	Notes      string      `json:"notes"`
	IsCustom   bool        `json:"isCustom"`
	Sets       []SetRecord `json:"sets"`
}

// SetRecord is a logged set. It is immutable once logged except for deletion.
type SetRecord struct {
	ID         string    `json:"id"`
	ExerciseID string    `json:"exerciseId"`
	WeightKg   float64   `json:"weightKg"`
	Reps       int       `json:"reps"`
	RPE        *float64  `json:"rpe,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsWarmup   bool      `json:"isWarmup"`
}

// NewSet is the input for logging a set.
type NewSet struct {
	WeightKg  float64
	Reps      int
	RPE       *float64
	IsWarmup  bool
	Timestamp time.Time
}

// RestTimerSettings configures the rest countdown between sets.
type RestTimerSettings struct {
	Enabled     bool `json:"enabled"`
	AutoStart   bool `json:"autoStart"`
	DurationSec int  `json:"durationSec"`
	Sound       bool `json:"sound"`
}

// Settings is the singleton settings record.
type Settings struct {
	UseEpley             bool              `json:"useEpley"`
	ActiveProgramID      string            `json:"activeProgramId"`
	DisclaimerAccepted   bool              `json:"disclaimerAccepted"`
	DisclaimerAcceptedAt *time.Time        `json:"disclaimerAcceptedAt,omitempty"`
	RestTimer            RestTimerSettings `json:"restTimer"`
}

// Formula returns the configured one-rep-max formula.
func (s Settings) Formula() Formula {
	if s.UseEpley {
		return FormulaEpley
	}
	return FormulaBrzycki
}

// ProgramGraph is an in-memory program with its templates as produced by the preset generators.
type ProgramGraph struct {
	Name       string
	StartDate  time.Time
	TotalWeeks int
	Templates  []TemplateGraph
}

// TemplateGraph is a workout template and its exercises inside a ProgramGraph. Exercise order follows the slice.
type TemplateGraph struct {
	Name       string
	DayIndex   int
	WeekNumber int
	Exercises  []ExerciseGraph
}

// ExerciseGraph is an exercise template inside a TemplateGraph.
type ExerciseGraph struct {
	Name       string
	TargetSets int
	TargetReps string
	Notes      string
}

// Plan is what the scheduler proposes for today.
type Plan struct {
	HasProgram  bool             `json:"hasProgram"`
	Program     *Program         `json:"program,omitempty"`
	Week        int              `json:"week"`
	Day         int              `json:"day"`
	HasTemplate bool             `json:"hasTemplate"`
	Template    *WorkoutTemplate `json:"template,omitempty"`
}

// Suggestion is the progressive overload advice for an exercise. At most one of SuggestedWeight and SuggestedReps is
// set.
type Suggestion struct {
	HasData         bool     `json:"hasData"`
	Reason          string   `json:"reason"`
	SuggestedWeight *float64 `json:"suggestedWeight,omitempty"`
	SuggestedReps   *string  `json:"suggestedReps,omitempty"`
	LastWeight      float64  `json:"lastWeight,omitempty"`
	LastReps        int      `json:"lastReps,omitempty"`
}
