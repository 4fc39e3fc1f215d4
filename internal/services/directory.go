package services

import (
	"context"
	"strings"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/models"
	"github.com/megacloud/megacloud-cli/internal/state"
)

// Fallback messages for directory failures without a server message.
const (
	msgFetchFilesFailed = "Failed to fetch files."
	msgSearchFailed     = "Failed to search files."
	msgFetchStatsFailed = "Failed to fetch stats."
)

// DirectoryService reads the remote listing and stats and publishes them
// into the observable state.
type DirectoryService struct {
	remote   Remote
	dir      *state.DirectoryState
	stats    *state.StatsState
	eventBus *events.EventBus
	logger   *logging.Logger
}

// NewDirectoryService creates a DirectoryService writing into dir and stats.
func NewDirectoryService(remote Remote, dir *state.DirectoryState, stats *state.StatsState, eventBus *events.EventBus, logger *logging.Logger) *DirectoryService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DirectoryService{
		remote:   remote,
		dir:      dir,
		stats:    stats,
		eventBus: eventBus,
		logger:   logger.Component("directory"),
	}
}

// List returns the records for filter from a fresh listing.
func (d *DirectoryService) List(ctx context.Context, filter models.Category) ([]models.FileRecord, error) {
	view, err := d.remote.ListFiles(ctx)
	if err != nil {
		return nil, api.WithKind(err, api.DirectoryUnavailable, msgFetchFilesFailed)
	}
	return view.Filter(filter), nil
}

// Search runs a server-side search. A blank query lists everything.
func (d *DirectoryService) Search(ctx context.Context, query string) ([]models.FileRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return d.List(ctx, models.CategoryAll)
	}
	files, err := d.remote.SearchFiles(ctx, query)
	if err != nil {
		return nil, api.WithKind(err, api.DirectoryUnavailable, msgSearchFailed)
	}
	return files, nil
}

// Stats returns fresh aggregate usage.
func (d *DirectoryService) Stats(ctx context.Context) (models.StatsSnapshot, error) {
	stats, err := d.remote.Stats(ctx)
	if err != nil {
		return models.StatsSnapshot{}, api.WithKind(err, api.StatsUnavailable, msgFetchStatsFailed)
	}
	return stats, nil
}

// Lookup finds fileID in a fresh listing.
func (d *DirectoryService) Lookup(ctx context.Context, fileID string) (models.FileRecord, bool, error) {
	view, err := d.remote.ListFiles(ctx)
	if err != nil {
		return models.FileRecord{}, false, api.WithKind(err, api.DirectoryUnavailable, msgFetchFilesFailed)
	}
	rec, ok := view.Find(fileID)
	return rec, ok, nil
}

// Refresh fetches the listing and replaces the visible view with the
// records for filter. A result that arrives after Detach is dropped.
func (d *DirectoryService) Refresh(ctx context.Context, filter models.Category) error {
	gen := d.dir.Begin()

	view, err := d.remote.ListFiles(ctx)
	if err != nil {
		err = api.WithKind(err, api.DirectoryUnavailable, msgFetchFilesFailed)
		if d.dir.SetError(gen, err) {
			d.eventBus.PublishRefreshFailed("directory", err)
		}
		return err
	}

	if !d.dir.SetListing(gen, view, filter) {
		d.logger.Debug().Msg("discarding listing for a detached view")
	}
	return nil
}

// RefreshSearch replaces the visible records with search results.
func (d *DirectoryService) RefreshSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return d.Refresh(ctx, models.CategoryAll)
	}

	gen := d.dir.Begin()
	files, err := d.remote.SearchFiles(ctx, query)
	if err != nil {
		err = api.WithKind(err, api.DirectoryUnavailable, msgSearchFailed)
		if d.dir.SetError(gen, err) {
			d.eventBus.PublishRefreshFailed("directory", err)
		}
		return err
	}

	if !d.dir.SetSearchResults(gen, query, files) {
		d.logger.Debug().Msg("discarding search results for a detached view")
	}
	return nil
}

// RefreshStats fetches stats into the stats state. On failure the last
// good stats stay in place.
func (d *DirectoryService) RefreshStats(ctx context.Context) error {
	stats, err := d.Stats(ctx)
	if err != nil {
		d.eventBus.PublishRefreshFailed("stats", err)
		return err
	}
	d.stats.Set(stats)
	return nil
}

// Detach drops every refresh still in flight, as on navigation.
func (d *DirectoryService) Detach() {
	d.dir.Detach()
}

// Snapshot returns the visible directory state.
func (d *DirectoryService) Snapshot() state.DirectorySnapshot {
	return d.dir.Snapshot()
}

// LastStats returns the last successfully fetched stats.
func (d *DirectoryService) LastStats() (models.StatsSnapshot, bool) {
	return d.stats.Get()
}
