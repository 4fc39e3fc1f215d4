// Package transfer tracks the lifecycle of upload, download and delete
// operations: Idle -> InFlight -> Succeeded|Failed -> Idle.
package transfer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the operation a task performs.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
	KindDelete   Kind = "delete"
)

// State is a task's position in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ErrInvalidTransition is returned for a transition the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid state transition")

var allowed = map[State][]State{
	StateIdle:      {StateInFlight},
	StateInFlight:  {StateSucceeded, StateFailed},
	StateSucceeded: {StateIdle},
	StateFailed:    {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Task is one tracked operation. Thread-safe: use the provided methods.
type Task struct {
	ID     string
	Kind   Kind
	FileID string
	Name   string

	mu          sync.RWMutex
	state       State
	progress    int
	err         error
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

func newTask(kind Kind, fileID, name string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		FileID:    fileID,
		Name:      name,
		state:     StateIdle,
		createdAt: time.Now(),
	}
}

// State returns the current state.
func (t *Task) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Progress returns progress in percent.
func (t *Task) Progress() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Err returns the failure cause of a failed task.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Duration returns how long the task was in flight, or has been so far.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startedAt.IsZero() {
		return 0
	}
	if t.completedAt.IsZero() {
		return time.Since(t.startedAt)
	}
	return t.completedAt.Sub(t.startedAt)
}

func (t *Task) transition(to State, err error) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.state
	if !canTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t.state = to
	switch to {
	case StateInFlight:
		t.startedAt = time.Now()
		t.progress = 0
	case StateSucceeded:
		t.completedAt = time.Now()
		t.progress = 100
	case StateFailed:
		t.completedAt = time.Now()
		t.err = err
	}
	return from, nil
}

// setProgress clamps pct to 0..100 and never moves backwards.
func (t *Task) setProgress(pct int) (int, bool) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateInFlight || pct < t.progress {
		return t.progress, false
	}
	t.progress = pct
	return pct, true
}

// Snapshot is an immutable copy of a task.
type Snapshot struct {
	ID       string
	Kind     Kind
	FileID   string
	Name     string
	State    State
	Progress int
	Err      error
}

// Snapshot returns a copy of the task's current fields.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		ID:       t.ID,
		Kind:     t.Kind,
		FileID:   t.FileID,
		Name:     t.Name,
		State:    t.state,
		Progress: t.progress,
		Err:      t.err,
	}
}
