package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
)

var (
	ErrNoSession     = errors.New("no active session")
	ErrSessionActive = errors.New("a session is already active")
)

// DefaultAutoAdvanceDelay is used when Config.AutoAdvanceDelay is zero.
const DefaultAutoAdvanceDelay = 1500 * time.Millisecond

// WorkoutStore creates workouts and reads the settings on top of what a running Session needs.
type WorkoutStore interface {
	Store
	InstantiateWorkout(ctx context.Context, templateID string, quick bool, now time.Time) (workout.Workout, error)
	StartAdHocWorkout(ctx context.Context, name string, now time.Time) (workout.Workout, error)
	GetSettings(ctx context.Context) (workout.Settings, error)
	ListWorkouts(ctx context.Context, limit int) ([]workout.Workout, error)
}

// Config wires a Manager.
type Config struct {
	Store            WorkoutStore
	Substitutes      Substitutes
	Notifier         Notifier
	AutoAdvanceDelay time.Duration
	Logger           *slog.Logger
}

// Manager owns the single active Session of the device.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	active *Session
}

func NewManager(cfg Config) *Manager {
	if cfg.AutoAdvanceDelay <= 0 {
		cfg.AutoAdvanceDelay = DefaultAutoAdvanceDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{mu: sync.Mutex{}, cfg: cfg, active: nil}
}

// StartFromTemplate instantiates the template and makes it the active session.
func (m *Manager) StartFromTemplate(ctx context.Context, templateID string, quick bool) (*Session, error) {
	return m.start(ctx, func(now time.Time) (workout.Workout, error) {
		return m.cfg.Store.InstantiateWorkout(ctx, templateID, quick, now)
	})
}

// StartAdHoc starts an empty workout as the active session.
func (m *Manager) StartAdHoc(ctx context.Context, name string) (*Session, error) {
	return m.start(ctx, func(now time.Time) (workout.Workout, error) {
		return m.cfg.Store.StartAdHocWorkout(ctx, name, now)
	})
}

func (m *Manager) start(ctx context.Context, create func(now time.Time) (workout.Workout, error)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrSessionActive
	}
	settings, err := m.cfg.Store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	w, err := create(time.Now())
	if err != nil {
		return nil, fmt.Errorf("create workout: %w", err)
	}
	return m.attachLocked(w, settings.RestTimer), nil
}

// Restore reattaches to the latest workout if it is still open and was started today in now's location. Older open
// workouts are left to the abandoned-workout cleanup.
func (m *Manager) Restore(ctx context.Context, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return true, nil
	}
	latest, err := m.cfg.Store.ListWorkouts(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("list workouts: %w", err)
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if len(latest) == 0 || latest[0].Completed() || latest[0].StartedAt.Before(startOfToday) {
		return false, nil
	}
	settings, err := m.cfg.Store.GetSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("get settings: %w", err)
	}
	m.attachLocked(latest[0], settings.RestTimer)
	m.cfg.Logger.LogAttrs(ctx, slog.LevelInfo, "restored workout session", slog.String("workout_id", latest[0].ID))
	return true, nil
}

func (m *Manager) attachLocked(w workout.Workout, rest workout.RestTimerSettings) *Session {
	s := newSession(w, m.cfg, rest)
	s.onClose = func() { m.release(s) }
	m.active = s
	return s
}

// Current returns the active session or ErrNoSession.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoSession
	}
	return m.active, nil
}

// Close stops the timers of the active session and detaches it. The workout stays open in the store.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s != nil {
		s.close()
	}
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}
