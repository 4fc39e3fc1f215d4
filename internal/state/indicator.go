package state

import (
	"sync"

	"github.com/megacloud/megacloud-cli/internal/events"
)

// Indicator is the shared loading indicator. It stays active while any
// operation holds it.
type Indicator struct {
	eventBus *events.EventBus

	mu    sync.Mutex
	depth int
}

// NewIndicator creates an inactive indicator.
func NewIndicator(eventBus *events.EventBus) *Indicator {
	return &Indicator{eventBus: eventBus}
}

// Begin activates the indicator and returns the func that releases this
// hold. The returned func is safe to call more than once.
func (i *Indicator) Begin() (end func()) {
	i.mu.Lock()
	i.depth++
	depth := i.depth
	i.mu.Unlock()
	if depth == 1 {
		i.eventBus.PublishLoading(true, depth)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			i.depth--
			depth := i.depth
			i.mu.Unlock()
			if depth == 0 {
				i.eventBus.PublishLoading(false, 0)
			}
		})
	}
}

// Active reports whether any operation holds the indicator.
func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.depth > 0
}

// Depth returns the number of holds.
func (i *Indicator) Depth() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.depth
}
