package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/cleanup"
	"github.com/megacloud/megacloud-cli/internal/config"
	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/http"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/notify"
	"github.com/megacloud/megacloud-cli/internal/progress"
	"github.com/megacloud/megacloud-cli/internal/services"
)

// loadConfig reads the config file and applies overrides.
// Priority: flags > environment > config file > defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !verbose && !debug {
		logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// getAPIClient loads configuration and creates an API client that keeps
// its session in the per-user session file.
func getAPIClient() (*config.Config, *api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if http.NeedsProxyPassword(cfg) {
		password, err := readSecret(fmt.Sprintf("Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.ProxyPassword = password
	}

	sessionFile, err := config.SessionFilePath()
	if err != nil {
		GetLogger().Warn().Err(err).Msg("session will not be saved")
		sessionFile = ""
	}

	client, err := api.NewClient(cfg, api.Options{
		SessionFile: sessionFile,
		Logger:      GetLogger().Component("api"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return cfg, client, nil
}

// session is everything one dashboard command needs. close must be
// called before the command returns so pending cleanups run.
type session struct {
	cfg      *config.Config
	client   *api.Client
	bus      *events.EventBus
	notifier *notify.Notifier
	dash     *services.Dashboard
	follower *progress.Follower
	logger   *logging.Logger
}

func openSession() (*session, error) {
	cfg, client, err := getAPIClient()
	if err != nil {
		return nil, err
	}

	log := GetLogger()
	if cfg.LogFile != "" {
		fileLogger, err := logging.NewFileLogger(cfg.LogFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.LogFile).Msg("cannot open log file, logging to console only")
		} else {
			log = fileLogger
		}
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	notifier := notify.NewNotifier(notify.Config{
		Out:      os.Stderr,
		EventBus: bus,
		Desktop:  cfg.DesktopNotify,
	}, log.Component("notify"))

	dash := services.NewDashboard(services.DashboardConfig{
		Remote:   client,
		Notifier: notifier,
		EventBus: bus,
		Logger:   log,
		Cleanup:  cleanup.NewScheduler(cfg.CleanupGrace(), log.Component("cleanup")),
	})

	return &session{
		cfg:      cfg,
		client:   client,
		bus:      bus,
		notifier: notifier,
		dash:     dash,
		follower: progress.Follow(bus, progress.ForWriter(os.Stderr)),
		logger:   log,
	}, nil
}

// close runs pending server cleanups, bounded by the flush timeout, and
// releases everything the session holds.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CleanupFlushTimeout)
	defer cancel()

	if pending := s.dash.Cleanup.Pending(); pending > 0 {
		s.logger.Debug().Int("pending", pending).Msg("running pending cleanups before exit")
	}
	if err := s.dash.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("some server cleanups did not finish")
	}

	s.follower.Stop()
	if dropped := s.bus.GetDroppedEventCount(); dropped > 0 {
		s.logger.Debug().Int64("dropped", dropped).Msg("event subscribers fell behind")
	}
	s.bus.Close()
	if s.logger != GetLogger() {
		s.logger.Close()
	}
}

// result turns a failed operation into errReported.
func result(res services.Result) error {
	if res.OK {
		return nil
	}
	return errReported
}
