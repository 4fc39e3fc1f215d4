package state

import (
	"sync"

	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/models"
)

// StatsState always reflects the last successful stats fetch.
type StatsState struct {
	eventBus *events.EventBus

	mu     sync.RWMutex
	stats  models.StatsSnapshot
	loaded bool
}

// NewStatsState creates an empty StatsState.
func NewStatsState(eventBus *events.EventBus) *StatsState {
	return &StatsState{eventBus: eventBus}
}

// Set records a successful fetch.
func (s *StatsState) Set(stats models.StatsSnapshot) {
	s.mu.Lock()
	s.stats = stats
	s.loaded = true
	s.mu.Unlock()

	s.eventBus.PublishStatsRefreshed(stats.StorageUsedMB, stats.TotalFiles, stats.TotalCapacityMB)
}

// Get returns the last fetched stats and whether any fetch has succeeded.
func (s *StatsState) Get() (models.StatsSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, s.loaded
}
