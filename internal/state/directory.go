// Package state provides observable state containers for the dashboard
// client. Containers publish events on change so any frontend can follow
// them without polling.
package state

import (
	"sync"

	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/models"
)

// Generation identifies the navigation epoch a fetch was started in.
type Generation uint64

// DirectorySnapshot is the visible directory state at one point in time.
type DirectorySnapshot struct {
	View    models.DirectoryView
	Visible []models.FileRecord
	Filter  models.Category
	Query   string
	Loaded  bool
}

// DirectoryState holds the directory view shown to the user.
// Thread-safe for concurrent access.
type DirectoryState struct {
	eventBus *events.EventBus

	view       models.DirectoryView
	visible    []models.FileRecord
	filter     models.Category
	query      string
	loaded     bool
	lastError  error
	generation Generation

	mu sync.RWMutex
}

// NewDirectoryState creates an empty DirectoryState.
func NewDirectoryState(eventBus *events.EventBus) *DirectoryState {
	return &DirectoryState{
		eventBus: eventBus,
		view:     models.NewDirectoryView(nil, nil),
		visible:  []models.FileRecord{},
		filter:   models.CategoryAll,
	}
}

// Begin captures the generation a fetch must present when committing.
func (s *DirectoryState) Begin() Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Detach invalidates every fetch begun so far. Their results are dropped.
func (s *DirectoryState) Detach() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// SetListing replaces the view with a listing filtered by filter.
// Returns false when gen is stale and nothing was written.
func (s *DirectoryState) SetListing(gen Generation, view models.DirectoryView, filter models.Category) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.view = view
	s.filter = filter
	s.query = ""
	s.visible = view.Filter(filter)
	s.loaded = true
	s.lastError = nil
	count := len(s.visible)
	s.mu.Unlock()

	s.eventBus.PublishDirectoryRefreshed(filter.String(), "", count)
	return true
}

// SetSearchResults replaces the visible records with search results.
// The categorized view is left as it was.
func (s *DirectoryState) SetSearchResults(gen Generation, query string, files []models.FileRecord) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.visible = files
	s.query = query
	s.filter = models.CategoryAll
	s.loaded = true
	s.lastError = nil
	count := len(files)
	s.mu.Unlock()

	s.eventBus.PublishDirectoryRefreshed(models.CategoryAll.String(), query, count)
	return true
}

// SetError records a failed fetch. The previous view stays visible.
func (s *DirectoryState) SetError(gen Generation, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.lastError = err
	return true
}

// Error returns the last fetch error, cleared by the next success.
func (s *DirectoryState) Error() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Snapshot returns a copy of the current state.
func (s *DirectoryState) Snapshot() DirectorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := make([]models.FileRecord, len(s.visible))
	copy(visible, s.visible)
	return DirectorySnapshot{
		View:    s.view,
		Visible: visible,
		Filter:  s.filter,
		Query:   s.query,
		Loaded:  s.loaded,
	}
}

// FindByID looks a record up in the current view.
func (s *DirectoryState) FindByID(id string) (models.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Find(id)
}
