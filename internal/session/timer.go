package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/myrjola/liftlog/internal/workout"
)

// ErrTimerNotCounting is returned when adding time to a rest timer that is not counting down.
var ErrTimerNotCounting = errors.New("rest timer is not counting down")

// TimerState is the state of the rest timer.
type TimerState string

const (
	TimerIdle      TimerState = "idle"
	TimerCounting  TimerState = "counting"
	TimerCompleted TimerState = "completed"
)

// warnAt lists the remaining seconds that trigger a warning cue.
//
//nolint:gochecknoglobals // constant lookup.
var warnAt = map[int]bool{2: true, 1: true}

// RestSnapshot is the observable state of the rest timer.
type RestSnapshot struct {
	State        TimerState `json:"state"`
	RemainingSec int        `json:"remainingSec"`
	Frozen       bool       `json:"frozen"`
}

// restTimer counts down in one second ticks and reports cues to a Notifier.
//
// The ticker goroutine only runs while counting and not frozen. Every start creates a fresh stop channel; a tick
// from a stopped generation is ignored.
type restTimer struct {
	mu        sync.Mutex
	state     TimerState
	remaining int
	frozen    bool
	sound     bool
	notifier  Notifier
	stop      chan struct{}
	wg        sync.WaitGroup
}

func newRestTimer(notifier Notifier, sound bool) *restTimer {
	return &restTimer{
		mu:        sync.Mutex{},
		state:     TimerIdle,
		remaining: 0,
		frozen:    false,
		sound:     sound,
		notifier:  notifier,
		stop:      nil,
		wg:        sync.WaitGroup{},
	}
}

// Start counts down from seconds, replacing any countdown in progress. A frozen timer stays frozen.
func (t *restTimer) Start(seconds int) {
	t.halt()
	t.mu.Lock()
	t.state = TimerCounting
	t.remaining = seconds
	if !t.frozen {
		t.runLocked()
	}
	t.mu.Unlock()
}

// Skip returns the timer to idle.
func (t *restTimer) Skip() {
	t.halt()
	t.mu.Lock()
	t.state = TimerIdle
	t.remaining = 0
	t.mu.Unlock()
}

// AddTime extends a running countdown.
func (t *restTimer) AddTime(seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TimerCounting {
		return ErrTimerNotCounting
	}
	if seconds <= 0 {
		return fmt.Errorf("%w: add %d seconds: must be positive", workout.ErrInvalidInput, seconds)
	}
	t.remaining += seconds
	return nil
}

// Freeze stops the countdown without losing the remaining time.
func (t *restTimer) Freeze() {
	t.halt()
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Thaw continues a frozen countdown.
func (t *restTimer) Thaw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = false
	if t.state == TimerCounting && t.stop == nil {
		t.runLocked()
	}
}

// Close stops the ticker goroutine and waits for it to exit.
func (t *restTimer) Close() {
	t.halt()
}

func (t *restTimer) Snapshot() RestSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return RestSnapshot{State: t.state, RemainingSec: t.remaining, Frozen: t.frozen}
}

// runLocked starts a ticker goroutine. t.mu must be held.
func (t *restTimer) runLocked() {
	stop := make(chan struct{})
	t.stop = stop
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if done := t.tick(stop); done {
					return
				}
			}
		}
	}()
}

// halt stops the ticker goroutine if one is running and waits for it.
func (t *restTimer) halt() {
	t.mu.Lock()
	stop := t.stop
	t.stop = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	t.wg.Wait()
}

// tick advances the countdown by one second and reports whether the goroutine of generation stop should exit.
func (t *restTimer) tick(stop chan struct{}) bool {
	t.mu.Lock()
	if t.stop != stop {
		t.mu.Unlock()
		return true
	}
	t.remaining--
	var cue *Cue
	switch {
	case t.remaining <= 0:
		t.remaining = 0
		t.state = TimerCompleted
		t.stop = nil
		cue = &Cue{Kind: CueRestComplete, Remaining: 0, Sound: t.sound, Vibrate: true}
	case warnAt[t.remaining]:
		cue = &Cue{Kind: CueRestWarning, Remaining: t.remaining, Sound: t.sound, Vibrate: false}
	}
	done := t.state == TimerCompleted
	notifier := t.notifier
	t.mu.Unlock()

	if cue != nil && notifier != nil {
		notifier.Notify(*cue)
	}
	return done
}
