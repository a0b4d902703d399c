package session

import (
	"sync"
	"time"
)

// CueKind identifies what a Cue signals.
type CueKind string

const (
	CueRestWarning  CueKind = "rest_warning"
	CueRestComplete CueKind = "rest_complete"
)

// Cue asks the device to play a sound or vibrate.
type Cue struct {
	Kind      CueKind `json:"kind"`
	Remaining int     `json:"remaining"`
	Sound     bool    `json:"sound"`
	Vibrate   bool    `json:"vibrate"`
}

// Notifier receives cues from the rest timer goroutine. Notify must not call back into the session.
type Notifier interface {
	Notify(cue Cue)
}

// CueLog is a Notifier that keeps the most recent cues until they are drained.
type CueLog struct {
	mu    sync.Mutex
	limit int
	cues  []TimedCue
}

// TimedCue is a Cue with the time it was raised.
type TimedCue struct {
	Cue
	At time.Time `json:"at"`
}

// NewCueLog creates a CueLog keeping at most limit cues.
func NewCueLog(limit int) *CueLog {
	return &CueLog{mu: sync.Mutex{}, limit: max(1, limit), cues: nil}
}

func (l *CueLog) Notify(cue Cue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cues = append(l.cues, TimedCue{Cue: cue, At: time.Now()})
	if over := len(l.cues) - l.limit; over > 0 {
		l.cues = l.cues[over:]
	}
}

// Drain returns the pending cues oldest first and forgets them.
func (l *CueLog) Drain() []TimedCue {
	l.mu.Lock()
	defer l.mu.Unlock()
	cues := l.cues
	l.cues = nil
	if cues == nil {
		return []TimedCue{}
	}
	return cues
}
