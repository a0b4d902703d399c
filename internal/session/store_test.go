package session_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
)

// memoryStore is an in-memory session.WorkoutStore. It keeps exercises ordered by slice position and never spawns
// goroutines, so it is safe inside synctest bubbles.
type memoryStore struct {
	mu        sync.Mutex
	nextID    int
	settings  workout.Settings
	templates map[string]workout.WorkoutTemplate
	workouts  []*workout.Workout
}

func newMemoryStore(rest workout.RestTimerSettings, templates ...workout.WorkoutTemplate) *memoryStore {
	m := &memoryStore{
		mu:        sync.Mutex{},
		nextID:    0,
		settings:  workout.Settings{UseEpley: true, RestTimer: rest}, //nolint:exhaustruct // test defaults.
		templates: map[string]workout.WorkoutTemplate{},
		workouts:  nil,
	}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *memoryStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memoryStore) find(id string) (*workout.Workout, error) {
	for _, w := range m.workouts {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, workout.ErrNotFound
}

func (m *memoryStore) findExercise(id string) (*workout.Workout, int, error) {
	for _, w := range m.workouts {
		for i := range w.Exercises {
			if w.Exercises[i].ID == id {
				return w, i, nil
			}
		}
	}
	return nil, 0, workout.ErrNotFound
}

func clone(w workout.Workout) workout.Workout {
	w.Exercises = slices.Clone(w.Exercises)
	for i := range w.Exercises {
		w.Exercises[i].Sets = slices.Clone(w.Exercises[i].Sets)
		if w.Exercises[i].Sets == nil {
			w.Exercises[i].Sets = []workout.SetRecord{}
		}
	}
	return w
}

func (m *memoryStore) GetWorkout(_ context.Context, id string) (workout.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.find(id)
	if err != nil {
		return workout.Workout{}, err
	}
	return clone(*w), nil
}

func (m *memoryStore) LogSet(_ context.Context, exerciseID string, in workout.NewSet) (workout.SetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.WeightKg < 0 || in.Reps < 0 {
		return workout.SetRecord{}, workout.ErrInvalidInput
	}
	w, i, err := m.findExercise(exerciseID)
	if err != nil {
		return workout.SetRecord{}, err
	}
	set := workout.SetRecord{
		ID:         m.id("set"),
		ExerciseID: exerciseID,
		WeightKg:   in.WeightKg,
		Reps:       in.Reps,
		RPE:        in.RPE,
		Timestamp:  in.Timestamp,
		IsWarmup:   in.IsWarmup,
	}
	w.Exercises[i].Sets = append(w.Exercises[i].Sets, set)
	return set, nil
}

func (m *memoryStore) DeleteSet(_ context.Context, setID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workouts {
		for i := range w.Exercises {
			sets := w.Exercises[i].Sets
			if j := slices.IndexFunc(sets, func(s workout.SetRecord) bool { return s.ID == setID }); j >= 0 {
				w.Exercises[i].Sets = slices.Delete(sets, j, j+1)
				return nil
			}
		}
	}
	return workout.ErrNotFound
}

func (m *memoryStore) RenameExercise(_ context.Context, exerciseID string, name string, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, i, err := m.findExercise(exerciseID)
	if err != nil {
		return err
	}
	w.Exercises[i].Name = name
	w.Exercises[i].Notes = notes
	return nil
}

func (m *memoryStore) InsertExercise(
	_ context.Context,
	workoutID string,
	position int,
	in workout.NewExercise,
) (workout.ExerciseInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.find(workoutID)
	if err != nil {
		return workout.ExerciseInstance{}, err
	}
	if in.TargetSets == 0 {
		in.TargetSets = workout.DefaultCustomSets
	}
	if in.TargetReps == "" {
		in.TargetReps = workout.DefaultCustomReps
	}
	e := workout.ExerciseInstance{
		ID:         m.id("exercise"),
		WorkoutID:  workoutID,
		Name:       in.Name,
		OrderIndex: position,
		TargetSets: in.TargetSets,
		TargetReps: in.TargetReps,
		Notes:      in.Notes,
		IsCustom:   in.IsCustom,
		Sets:       []workout.SetRecord{},
	}
	for i := range w.Exercises {
		if w.Exercises[i].OrderIndex >= position {
			w.Exercises[i].OrderIndex++
		}
	}
	at := slices.IndexFunc(w.Exercises, func(x workout.ExerciseInstance) bool { return x.OrderIndex > position })
	if at < 0 {
		at = len(w.Exercises)
	}
	w.Exercises = slices.Insert(w.Exercises, at, e)
	return e, nil
}

func (m *memoryStore) SavePausedDuration(_ context.Context, workoutID string, totalPausedMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.find(workoutID)
	if err != nil {
		return err
	}
	w.TotalPausedMs = totalPausedMs
	return nil
}

func (m *memoryStore) FinishWorkout(
	_ context.Context,
	workoutID string,
	endedAt time.Time,
	totalPausedMs int64,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.find(workoutID)
	if err != nil {
		return false, err
	}
	if w.SetCount() == 0 {
		m.workouts = slices.DeleteFunc(m.workouts, func(x *workout.Workout) bool { return x.ID == workoutID })
		return true, nil
	}
	w.EndedAt = &endedAt
	w.TotalPausedMs = totalPausedMs
	return false, nil
}

func (m *memoryStore) InstantiateWorkout(
	_ context.Context,
	templateID string,
	quick bool,
	now time.Time,
) (workout.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok {
		return workout.Workout{}, workout.ErrNotFound
	}
	w := &workout.Workout{
		ID:                  m.id("workout"),
		Name:                t.Name,
		StartedAt:           now,
		EndedAt:             nil,
		ProgramNameSnapshot: "Test Program",
		TotalPausedMs:       0,
		IsQuickWorkout:      quick,
		Exercises:           nil,
	}
	for _, et := range t.Exercises {
		sets := et.TargetSets
		if quick {
			sets = workout.QuickSets(sets)
		}
		w.Exercises = append(w.Exercises, workout.ExerciseInstance{
			ID:         m.id("exercise"),
			WorkoutID:  w.ID,
			Name:       et.Name,
			OrderIndex: et.OrderIndex,
			TargetSets: sets,
			TargetReps: et.TargetReps,
			Notes:      et.Notes,
			IsCustom:   false,
			Sets:       []workout.SetRecord{},
		})
	}
	m.workouts = append(m.workouts, w)
	return clone(*w), nil
}

func (m *memoryStore) StartAdHocWorkout(_ context.Context, name string, now time.Time) (workout.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &workout.Workout{ID: m.id("workout"), Name: name, StartedAt: now} //nolint:exhaustruct // ad hoc.
	m.workouts = append(m.workouts, w)
	return clone(*w), nil
}

func (m *memoryStore) GetSettings(context.Context) (workout.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memoryStore) ListWorkouts(_ context.Context, limit int) ([]workout.Workout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []workout.Workout
	for i := len(m.workouts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(*m.workouts[i]))
	}
	return out, nil
}

func (m *memoryStore) stored(id string) (workout.Workout, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.find(id)
	if err != nil {
		return workout.Workout{}, false
	}
	return clone(*w), true
}
