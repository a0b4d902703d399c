// Package session runs the live workout: pause accounting, set logging, exercise navigation and substitution, the
// rest timer and finishing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
)

var (
	ErrNotRunning        = errors.New("session is not running")
	ErrPaused            = errors.New("session is paused")
	ErrNotPaused         = errors.New("session is not paused")
	ErrSessionClosed     = errors.New("session is closed")
	ErrNoCurrentExercise = errors.New("no current exercise")
)

// State is the lifecycle state of a Session.
type State string

const (
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateFinished  State = "finished"
	StateAbandoned State = "abandoned"
)

// Store is the persistence the session works against. *workout.Service implements it.
type Store interface {
	GetWorkout(ctx context.Context, id string) (workout.Workout, error)
	LogSet(ctx context.Context, exerciseID string, in workout.NewSet) (workout.SetRecord, error)
	DeleteSet(ctx context.Context, setID string) error
	RenameExercise(ctx context.Context, exerciseID string, name string, notes string) error
	InsertExercise(
		ctx context.Context, workoutID string, position int, in workout.NewExercise,
	) (workout.ExerciseInstance, error)
	SavePausedDuration(ctx context.Context, workoutID string, totalPausedMs int64) error
	FinishWorkout(ctx context.Context, workoutID string, endedAt time.Time, totalPausedMs int64) (bool, error)
}

// Substitutes looks up alternatives for an exercise. *substitution.Table implements it.
type Substitutes interface {
	SubstitutesFor(name string) []string
	NotesFor(name string) (string, bool)
}

// SetInput is a set entered during the session.
type SetInput struct {
	WeightKg float64  `json:"weightKg"`
	Reps     int      `json:"reps"`
	RPE      *float64 `json:"rpe,omitempty"`
	IsWarmup bool     `json:"isWarmup"`
}

// CustomExercise is an exercise the user adds to the end of the workout. Zero targets use the workout defaults.
type CustomExercise struct {
	Name       string `json:"name"`
	TargetSets int    `json:"targetSets"`
	TargetReps string `json:"targetReps"`
	Notes      string `json:"notes"`
}

// Result is the outcome of Finish and Stop.
type Result struct {
	Discarded bool            `json:"discarded"`
	Workout   workout.Workout `json:"workout"`
}

// Snapshot is the observable state of a session at a point in time.
type Snapshot struct {
	State        State                     `json:"state"`
	Workout      workout.Workout           `json:"workout"`
	CurrentIndex int                       `json:"currentIndex"`
	Current      *workout.ExerciseInstance `json:"current,omitempty"`
	// ElapsedMs excludes paused time and stands still while paused.
	ElapsedMs      int64        `json:"elapsedMs"`
	TotalPausedMs  int64        `json:"totalPausedMs"`
	Rest           RestSnapshot `json:"rest"`
	AdvancePending bool         `json:"advancePending"`
}

// Session is the state machine of one running workout. It is safe for concurrent use.
type Session struct {
	mu               sync.Mutex
	store            Store
	substitutes      Substitutes
	logger           *slog.Logger
	restSettings     workout.RestTimerSettings
	autoAdvanceDelay time.Duration
	rest             *restTimer
	onClose          func()

	workout     workout.Workout
	state       State
	current     int
	pausedAt    time.Time
	totalPaused time.Duration
	endedAt     time.Time
	advance     *time.Timer
	// advanceOnResume holds an advance that a pause interrupted.
	advanceOnResume bool
}

func newSession(w workout.Workout, cfg Config, settings workout.RestTimerSettings) *Session {
	return &Session{
		mu:               sync.Mutex{},
		store:            cfg.Store,
		substitutes:      cfg.Substitutes,
		logger:           cfg.Logger.With(slog.String("workout_id", w.ID)),
		restSettings:     settings,
		autoAdvanceDelay: cfg.AutoAdvanceDelay,
		rest:             newRestTimer(cfg.Notifier, settings.Sound),
		onClose:          nil,
		workout:          w,
		state:            StateRunning,
		current:          firstIncomplete(w),
		pausedAt:         time.Time{},
		totalPaused:      time.Duration(w.TotalPausedMs) * time.Millisecond,
		endedAt:          time.Time{},
		advance:          nil,
		advanceOnResume:  false,
	}
}

// WorkoutID returns the id of the workout the session runs.
func (s *Session) WorkoutID() string {
	return s.workout.ID
}

// checkActiveLocked returns an error unless the session is running and not paused.
func (s *Session) checkActiveLocked() error {
	switch s.state {
	case StateRunning:
		return nil
	case StatePaused:
		return ErrPaused
	case StateFinished, StateAbandoned:
		return ErrSessionClosed
	}
	return ErrNotRunning
}

func (s *Session) checkOpenLocked() error {
	if s.state == StateFinished || s.state == StateAbandoned {
		return ErrSessionClosed
	}
	return nil
}

// Pause freezes the elapsed time and the rest countdown.
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActiveLocked(); err != nil {
		return err
	}
	pending := s.advance != nil
	s.cancelAdvanceLocked()
	s.advanceOnResume = pending
	s.state = StatePaused
	s.pausedAt = time.Now()
	s.rest.Freeze()
	s.logger.LogAttrs(ctx, slog.LevelDebug, "paused workout")
	return nil
}

// Resume adds the pause to the paused total, persists the total and continues the rest countdown.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if s.state != StatePaused {
		return ErrNotPaused
	}
	total := s.totalPaused + time.Since(s.pausedAt)
	if err := s.store.SavePausedDuration(ctx, s.workout.ID, total.Milliseconds()); err != nil {
		return fmt.Errorf("save paused duration: %w", err)
	}
	s.totalPaused = total
	s.workout.TotalPausedMs = total.Milliseconds()
	s.pausedAt = time.Time{}
	s.state = StateRunning
	s.rest.Thaw()
	if s.advanceOnResume {
		s.scheduleAdvanceLocked()
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "resumed workout", slog.Int64("total_paused_ms", total.Milliseconds()))
	return nil
}

// LogSet stores a set under the current exercise. Depending on the rest settings it starts the rest countdown, and
// once the working sets reach the exercise's target it moves on to the next exercise after the auto-advance delay.
func (s *Session) LogSet(ctx context.Context, in SetInput) (workout.SetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActiveLocked(); err != nil {
		return workout.SetRecord{}, err
	}
	current, ok := s.currentLocked()
	if !ok {
		return workout.SetRecord{}, ErrNoCurrentExercise
	}
	set, err := s.store.LogSet(ctx, current.ID, workout.NewSet{
		WeightKg:  in.WeightKg,
		Reps:      in.Reps,
		RPE:       in.RPE,
		IsWarmup:  in.IsWarmup,
		Timestamp: time.Now(),
	})
	if err != nil {
		return workout.SetRecord{}, fmt.Errorf("log set: %w", err)
	}
	if err = s.reloadLocked(ctx); err != nil {
		return set, err
	}

	if s.restSettings.Enabled && s.restSettings.AutoStart {
		s.rest.Start(s.restSettings.DurationSec)
	}
	current, _ = s.currentLocked()
	if workingSets(current) >= current.TargetSets && s.current < len(s.workout.Exercises)-1 {
		s.scheduleAdvanceLocked()
	}
	return set, nil
}

// DeleteSet removes a set of this workout. The current exercise and a pending auto-advance are left alone.
func (s *Session) DeleteSet(ctx context.Context, setID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if !s.ownsSetLocked(setID) {
		return fmt.Errorf("set %s: %w", setID, workout.ErrNotFound)
	}
	if err := s.store.DeleteSet(ctx, setID); err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	return s.reloadLocked(ctx)
}

// Substitute swaps the current exercise for name.
//
// Without logged sets the current exercise is renamed in place. Otherwise a new exercise with the remaining sets is
// inserted right after it and becomes current, so sets already logged stay with the original exercise.
func (s *Session) Substitute(ctx context.Context, name string) (workout.ExerciseInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return workout.ExerciseInstance{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return workout.ExerciseInstance{}, fmt.Errorf("%w: substitute name is empty", workout.ErrInvalidInput)
	}
	current, ok := s.currentLocked()
	if !ok {
		return workout.ExerciseInstance{}, ErrNoCurrentExercise
	}
	s.cancelAdvanceLocked()

	notes := ""
	if s.substitutes != nil {
		notes, _ = s.substitutes.NotesFor(name)
	}
	if len(current.Sets) == 0 {
		if err := s.store.RenameExercise(ctx, current.ID, name, notes); err != nil {
			return workout.ExerciseInstance{}, fmt.Errorf("rename exercise: %w", err)
		}
	} else {
		_, err := s.store.InsertExercise(ctx, s.workout.ID, current.OrderIndex+1, workout.NewExercise{
			Name:       name,
			TargetSets: max(1, current.TargetSets-workingSets(current)),
			TargetReps: current.TargetReps,
			Notes:      notes,
			IsCustom:   current.IsCustom,
		})
		if err != nil {
			return workout.ExerciseInstance{}, fmt.Errorf("insert substitute: %w", err)
		}
		s.current++
	}
	if err := s.reloadLocked(ctx); err != nil {
		return workout.ExerciseInstance{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "substituted exercise",
		slog.String("from", current.Name), slog.String("to", name))
	substitute, _ := s.currentLocked()
	return substitute, nil
}

// Alternatives lists the substitutes for the current exercise.
func (s *Session) Alternatives() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.currentLocked()
	if !ok {
		return nil, ErrNoCurrentExercise
	}
	if s.substitutes == nil {
		return nil, nil
	}
	return s.substitutes.SubstitutesFor(current.Name), nil
}

// AddCustomExercise appends an exercise to the end of the workout. An ad hoc workout without exercises gets its first
// current exercise this way.
func (s *Session) AddCustomExercise(ctx context.Context, in CustomExercise) (workout.ExerciseInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return workout.ExerciseInstance{}, err
	}
	position := 0
	if n := len(s.workout.Exercises); n > 0 {
		position = s.workout.Exercises[n-1].OrderIndex + 1
	}
	e, err := s.store.InsertExercise(ctx, s.workout.ID, position, workout.NewExercise{
		Name:       in.Name,
		TargetSets: in.TargetSets,
		TargetReps: in.TargetReps,
		Notes:      in.Notes,
		IsCustom:   true,
	})
	if err != nil {
		return workout.ExerciseInstance{}, fmt.Errorf("add custom exercise: %w", err)
	}
	if err = s.reloadLocked(ctx); err != nil {
		return workout.ExerciseInstance{}, err
	}
	return e, nil
}

// GoTo makes the exercise at index current and cancels a pending auto-advance.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.workout.Exercises) {
		return fmt.Errorf("%w: exercise index %d outside 0-%d", workout.ErrInvalidInput, index,
			len(s.workout.Exercises)-1)
	}
	s.cancelAdvanceLocked()
	s.current = index
	return nil
}

// StartRest starts the rest countdown manually. Zero seconds uses the configured duration.
func (s *Session) StartRest(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActiveLocked(); err != nil {
		return err
	}
	if seconds <= 0 {
		seconds = s.restSettings.DurationSec
	}
	s.rest.Start(seconds)
	return nil
}

// SkipRest returns the rest timer to idle.
func (s *Session) SkipRest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.rest.Skip()
	return nil
}

// AddRestTime extends the countdown. It fails with ErrTimerNotCounting unless the timer is counting down.
func (s *Session) AddRestTime(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if err := s.rest.AddTime(seconds); err != nil {
		return fmt.Errorf("add rest time: %w", err)
	}
	return nil
}

// Finish ends the workout. A workout without logged sets is discarded.
func (s *Session) Finish(ctx context.Context) (Result, error) {
	return s.end(ctx, "finished")
}

// Stop ends the workout early with the same persistence rules as Finish.
func (s *Session) Stop(ctx context.Context) (Result, error) {
	return s.end(ctx, "stopped")
}

func (s *Session) end(ctx context.Context, how string) (Result, error) {
	s.mu.Lock()
	if err := s.checkOpenLocked(); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	now := time.Now()
	total := s.totalPaused
	if s.state == StatePaused {
		total += now.Sub(s.pausedAt)
	}
	discarded, err := s.store.FinishWorkout(ctx, s.workout.ID, now, total.Milliseconds())
	if err != nil {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("finish workout: %w", err)
	}

	s.cancelAdvanceLocked()
	s.rest.Close()
	s.totalPaused = total
	s.endedAt = now
	s.workout.TotalPausedMs = total.Milliseconds()
	s.state = StateFinished
	if discarded {
		s.state = StateAbandoned
	} else {
		ended := now.UTC()
		s.workout.EndedAt = &ended
	}
	result := Result{Discarded: discarded, Workout: s.workout}
	onClose := s.onClose
	s.logger.LogAttrs(ctx, slog.LevelInfo, how+" workout",
		slog.Bool("discarded", discarded), slog.Int64("total_paused_ms", total.Milliseconds()))
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return result, nil
}

// close tears down timers without touching the store.
func (s *Session) close() {
	s.mu.Lock()
	s.cancelAdvanceLocked()
	s.mu.Unlock()
	s.rest.Close()
}

// Snapshot returns the state of the session as of now.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	paused := s.totalPaused
	at := now
	switch s.state {
	case StatePaused:
		at = s.pausedAt
	case StateFinished, StateAbandoned:
		at = s.endedAt
	case StateRunning:
	}
	elapsed := max(0, at.Sub(s.workout.StartedAt)-paused)

	snap := Snapshot{
		State:          s.state,
		Workout:        s.workout,
		CurrentIndex:   s.current,
		Current:        nil,
		ElapsedMs:      elapsed.Milliseconds(),
		TotalPausedMs:  paused.Milliseconds(),
		Rest:           s.rest.Snapshot(),
		AdvancePending: s.advance != nil || s.advanceOnResume,
	}
	if current, ok := s.currentLocked(); ok {
		snap.Current = &current
	}
	return snap
}

func (s *Session) currentLocked() (workout.ExerciseInstance, bool) {
	if s.current < 0 || s.current >= len(s.workout.Exercises) {
		return workout.ExerciseInstance{}, false
	}
	return s.workout.Exercises[s.current], true
}

func (s *Session) ownsSetLocked(setID string) bool {
	for _, e := range s.workout.Exercises {
		for _, set := range e.Sets {
			if set.ID == setID {
				return true
			}
		}
	}
	return false
}

func (s *Session) reloadLocked(ctx context.Context) error {
	w, err := s.store.GetWorkout(ctx, s.workout.ID)
	if err != nil {
		return fmt.Errorf("reload workout: %w", err)
	}
	w.TotalPausedMs = s.totalPaused.Milliseconds()
	s.workout = w
	return nil
}

// scheduleAdvanceLocked moves from the current exercise to the next one after the auto-advance delay unless the
// current exercise changes first.
func (s *Session) scheduleAdvanceLocked() {
	s.cancelAdvanceLocked()
	from := s.current
	var timer *time.Timer
	timer = time.AfterFunc(s.autoAdvanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.advance != timer {
			return
		}
		s.advance = nil
		if s.checkActiveLocked() != nil || s.current != from || from+1 >= len(s.workout.Exercises) {
			return
		}
		s.current = from + 1
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "advanced to next exercise",
			slog.Int("index", s.current))
	})
	s.advance = timer
}

func (s *Session) cancelAdvanceLocked() {
	s.advanceOnResume = false
	if s.advance != nil {
		s.advance.Stop()
		s.advance = nil
	}
}

// firstIncomplete returns the index of the first exercise short of its target, or 0 when all are done.
func firstIncomplete(w workout.Workout) int {
	for i, e := range w.Exercises {
		if workingSets(e) < e.TargetSets {
			return i
		}
	}
	return 0
}

// workingSets counts the non-warmup sets of e.
func workingSets(e workout.ExerciseInstance) int {
	n := 0
	for _, set := range e.Sets {
		if !set.IsWarmup {
			n++
		}
	}
	return n
}
