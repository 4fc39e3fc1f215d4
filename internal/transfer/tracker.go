package transfer

import (
	"sync"

	"github.com/megacloud/megacloud-cli/internal/events"
)

// historySize is how many finished tasks Recent keeps.
const historySize = 32

// Tracker owns in-flight tasks and publishes their transitions.
type Tracker struct {
	eventBus *events.EventBus

	mu      sync.Mutex
	active  map[string]*Task
	history []Snapshot
}

// NewTracker creates a tracker that publishes on eventBus (may be nil).
func NewTracker(eventBus *events.EventBus) *Tracker {
	return &Tracker{
		eventBus: eventBus,
		active:   make(map[string]*Task),
	}
}

// Start creates a task and moves it to InFlight.
func (tr *Tracker) Start(kind Kind, fileID, name string) *Task {
	t := newTask(kind, fileID, name)
	from, _ := t.transition(StateInFlight, nil)

	tr.mu.Lock()
	tr.active[t.ID] = t
	tr.mu.Unlock()

	tr.eventBus.PublishTransferState(t.ID, string(kind), fileID, string(from), string(StateInFlight), nil)
	tr.eventBus.PublishTransferProgress(t.ID, string(kind), name, 0)
	return t
}

// Progress reports coarse progress for an in-flight task.
func (tr *Tracker) Progress(t *Task, pct int) {
	if got, ok := t.setProgress(pct); ok {
		tr.eventBus.PublishTransferProgress(t.ID, string(t.Kind), t.Name, got)
	}
}

// Finish moves t to Succeeded (err == nil) or Failed, records it, and
// returns it to Idle. Finishing a task twice is a no-op.
func (tr *Tracker) Finish(t *Task, err error) {
	to := StateSucceeded
	if err != nil {
		to = StateFailed
	}
	from, terr := t.transition(to, err)
	if terr != nil {
		return
	}
	if to == StateSucceeded {
		tr.eventBus.PublishTransferProgress(t.ID, string(t.Kind), t.Name, 100)
	}
	tr.eventBus.PublishTransferState(t.ID, string(t.Kind), t.FileID, string(from), string(to), err)

	snap := t.Snapshot()
	t.transition(StateIdle, nil)

	tr.mu.Lock()
	delete(tr.active, t.ID)
	tr.history = append(tr.history, snap)
	if len(tr.history) > historySize {
		tr.history = tr.history[len(tr.history)-historySize:]
	}
	tr.mu.Unlock()

	tr.eventBus.PublishTransferState(t.ID, string(t.Kind), t.FileID, string(to), string(StateIdle), nil)
}

// Active returns snapshots of all in-flight tasks.
func (tr *Tracker) Active() []Snapshot {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]Snapshot, 0, len(tr.active))
	for _, t := range tr.active {
		out = append(out, t.Snapshot())
	}
	return out
}

// InFlight reports whether any task of kind is running for fileID.
func (tr *Tracker) InFlight(kind Kind, fileID string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, t := range tr.active {
		if t.Kind == kind && t.FileID == fileID {
			return true
		}
	}
	return false
}

// Recent returns the outcomes of recently finished tasks, oldest first.
func (tr *Tracker) Recent() []Snapshot {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]Snapshot, len(tr.history))
	copy(out, tr.history)
	return out
}
