package services

import (
	"context"

	"github.com/megacloud/megacloud-cli/internal/cleanup"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/resources"
	"github.com/megacloud/megacloud-cli/internal/state"
	"github.com/megacloud/megacloud-cli/internal/transfer"
)

// Dashboard bundles the services of one client session and the state
// they share.
type Dashboard struct {
	Directory *DirectoryService
	Transfers *TransferService
	Previews  *PreviewManager

	Registry  *resources.Registry
	Tracker   *transfer.Tracker
	Indicator *state.Indicator
	Cleanup   *cleanup.Scheduler
	EventBus  *events.EventBus

	logger *logging.Logger
}

// DashboardConfig configures NewDashboard.
type DashboardConfig struct {
	Remote   Remote
	Notifier Notifier
	EventBus *events.EventBus
	Logger   *logging.Logger
	// Cleanup runs best-effort server cleanups. Required.
	Cleanup *cleanup.Scheduler
}

// NewDashboard wires every service around one registry, one indicator
// and one cleanup scheduler.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	if cfg.EventBus != nil {
		cfg.Cleanup.PublishTo(cfg.EventBus)
	}

	registry := resources.NewRegistry(logger.Component("resources"))
	tracker := transfer.NewTracker(cfg.EventBus)
	indicator := state.NewIndicator(cfg.EventBus)

	directory := NewDirectoryService(cfg.Remote,
		state.NewDirectoryState(cfg.EventBus),
		state.NewStatsState(cfg.EventBus),
		cfg.EventBus, logger)

	transfers := NewTransferService(TransferServiceConfig{
		Remote:    cfg.Remote,
		Directory: directory,
		Registry:  registry,
		Tracker:   tracker,
		Indicator: indicator,
		Cleanup:   cfg.Cleanup,
		Notifier:  cfg.Notifier,
		EventBus:  cfg.EventBus,
		Logger:    logger,
	})

	previews := NewPreviewManager(PreviewManagerConfig{
		Remote:    cfg.Remote,
		Directory: directory,
		Registry:  registry,
		Indicator: indicator,
		Cleanup:   cfg.Cleanup,
		Notifier:  cfg.Notifier,
		EventBus:  cfg.EventBus,
		Logger:    logger,
	})

	return &Dashboard{
		Directory: directory,
		Transfers: transfers,
		Previews:  previews,
		Registry:  registry,
		Tracker:   tracker,
		Indicator: indicator,
		Cleanup:   cfg.Cleanup,
		EventBus:  cfg.EventBus,
		logger:    logger,
	}
}

// Navigate is the user leaving the dashboard view: in-flight refreshes and
// preview opens are discarded and the active preview closes.
func (d *Dashboard) Navigate() {
	d.Directory.Detach()
	d.Previews.Navigate()
}

// Shutdown closes the preview, runs pending cleanups now, and drops any
// handle still registered.
func (d *Dashboard) Shutdown(ctx context.Context) error {
	d.Previews.Close()

	err := d.Cleanup.Flush(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("pending cleanups did not finish")
	}

	if n := d.Registry.ReleaseAll(); n > 0 {
		d.logger.Warn().Int("handles", n).Msg("released leaked handles at shutdown")
	}
	return err
}
