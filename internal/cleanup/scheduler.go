// Package cleanup runs detached best-effort tasks, either right away or
// after a grace delay. Task failures are logged and never retried.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
)

// Task is one best-effort action.
type Task func(ctx context.Context) error

type entry struct {
	name  string
	task  Task
	timer *time.Timer
}

// Scheduler owns pending and running cleanup tasks.
type Scheduler struct {
	grace   time.Duration
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	eventBus *events.EventBus
	pending  map[uint64]*entry
	nextID   uint64
	stopped  bool
	running  int
	idle     []chan struct{} // closed when running drops to zero
}

// NewScheduler creates a scheduler whose delayed tasks fire after grace.
func NewScheduler(grace time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scheduler{
		grace:   grace,
		timeout: constants.CleanupFlushTimeout,
		logger:  logger,
		pending: make(map[uint64]*entry),
	}
}

// PublishTo makes task failures visible as warn-level log events on bus.
func (s *Scheduler) PublishTo(bus *events.EventBus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventBus = bus
}

// Go runs task now on its own goroutine.
func (s *Scheduler) Go(name string, task Task) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Debug().Str("task", name).Msg("scheduler stopped, cleanup skipped")
		return
	}
	s.running++
	s.mu.Unlock()

	go func() {
		defer s.done()
		s.run(context.Background(), name, task)
	}()
}

// AfterGrace runs task once the grace delay has elapsed, or earlier on Flush.
func (s *Scheduler) AfterGrace(name string, task Task) {
	if s.grace <= 0 {
		s.Go(name, task)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Debug().Str("task", name).Msg("scheduler stopped, cleanup skipped")
		return
	}

	id := s.nextID
	s.nextID++
	e := &entry{name: name, task: task}
	s.pending[id] = e
	e.timer = time.AfterFunc(s.grace, func() {
		if !s.claim(id) {
			return
		}
		defer s.done()
		s.run(context.Background(), e.name, e.task)
	})

	s.logger.Debug().Str("task", name).Dur("grace", s.grace).Msg("cleanup scheduled")
}

// claim removes a pending entry and registers it as running. An entry is
// run by whichever of its timer or Flush claims it first.
func (s *Scheduler) claim(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	s.running++
	return true
}

// done marks one task finished and wakes Flush callers once none run.
func (s *Scheduler) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	if s.running > 0 {
		return
	}
	for _, ch := range s.idle {
		close(ch)
	}
	s.idle = nil
}

func (s *Scheduler) run(ctx context.Context, name string, task Task) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.logger.Warn().Err(err).Str("task", name).Msg("best-effort cleanup failed")
		s.mu.Lock()
		bus := s.eventBus
		s.mu.Unlock()
		if bus != nil {
			bus.PublishLog(events.WarnLevel, "best-effort cleanup failed", name, err)
		}
		return
	}
	s.logger.Debug().Str("task", name).Msg("cleanup done")
}

// Pending returns the number of tasks still waiting for their grace delay.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every pending task immediately and waits for all running
// tasks, or until ctx is done.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	due := make([]*entry, 0, len(s.pending))
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
		s.running++
		due = append(due, e)
	}
	var idle chan struct{}
	if s.running > 0 {
		idle = make(chan struct{})
		s.idle = append(s.idle, idle)
	}
	s.mu.Unlock()

	for _, e := range due {
		go func() {
			defer s.done()
			s.run(ctx, e.name, e.task)
		}()
	}

	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop abandons pending tasks and rejects new ones. Running tasks finish.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	abandoned := len(s.pending)
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
	if abandoned > 0 {
		s.logger.Debug().Int("count", abandoned).Msg("pending cleanups abandoned")
	}
	return abandoned
}
