package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/cleanup"
	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/mimetype"
	"github.com/megacloud/megacloud-cli/internal/resources"
	"github.com/megacloud/megacloud-cli/internal/state"
)

const msgPreviewFailed = "Failed to load preview"

// ErrPreviewSuperseded is returned by an Open whose result arrived after
// a newer Open or a navigation. Its resources were already released.
var ErrPreviewSuperseded = errors.New("preview superseded")

// Classify maps a MIME type to how it can be previewed.
func Classify(mime string) PreviewKind {
	mime = mimetype.Base(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return PreviewImage
	case mime == "application/pdf":
		return PreviewPDF
	case strings.HasPrefix(mime, "video/"):
		return PreviewVideo
	case strings.HasPrefix(mime, "audio/"):
		return PreviewAudio
	case mime == "text/plain":
		return PreviewText
	default:
		return PreviewUnsupported
	}
}

// PreviewSession is one open preview. It exclusively owns Handle until
// closed; the server-side temp artifact is cleaned up exactly once.
type PreviewSession struct {
	FileID          string
	DisplayFilename string
	MIMEType        string
	Kind            PreviewKind
	Handle          resources.Handle
	// RemoteTempArtifact names the server's staged copy.
	RemoteTempArtifact string

	closeOnce sync.Once
}

// PreviewManager holds at most one active preview session.
type PreviewManager struct {
	remote    Remote
	directory *DirectoryService
	registry  *resources.Registry
	indicator *state.Indicator
	cleanup   *cleanup.Scheduler
	notifier  Notifier
	eventBus  *events.EventBus
	logger    *logging.Logger

	mu     sync.Mutex
	active *PreviewSession
	epoch  uint64
}

// PreviewManagerConfig wires a PreviewManager to its collaborators.
type PreviewManagerConfig struct {
	Remote    Remote
	Directory *DirectoryService
	Registry  *resources.Registry
	Indicator *state.Indicator
	Cleanup   *cleanup.Scheduler
	Notifier  Notifier
	EventBus  *events.EventBus
	Logger    *logging.Logger
}

// NewPreviewManager creates a PreviewManager with no active session.
func NewPreviewManager(cfg PreviewManagerConfig) *PreviewManager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &PreviewManager{
		remote:    cfg.Remote,
		directory: cfg.Directory,
		registry:  cfg.Registry,
		indicator: cfg.Indicator,
		cleanup:   cfg.Cleanup,
		notifier:  cfg.Notifier,
		eventBus:  cfg.EventBus,
		logger:    logger.Component("preview"),
	}
}

// Open closes the active session, then fetches fileID and makes it the
// active session. On failure no session and no handle exist.
func (pm *PreviewManager) Open(ctx context.Context, fileID string) (*PreviewSession, error) {
	pm.mu.Lock()
	pm.epoch++
	epoch := pm.epoch
	prev := pm.active
	pm.active = nil
	pm.mu.Unlock()
	if prev != nil {
		pm.finish(prev)
	}

	end := pm.indicator.Begin()
	defer end()

	payload, err := pm.remote.Preview(ctx, fileID)
	if err != nil {
		if pm.stale(epoch) {
			return nil, ErrPreviewSuperseded
		}
		pm.logger.Warn().Err(err).Str("file_id", fileID).Msg("preview failed")
		pm.notifier.Notify(false, prefixed(msgPreviewFailed, err))
		return nil, api.WithKind(err, api.PreviewError, "Preview failed")
	}

	mime := mimetype.Resolve(payload.ContentType, payload.Filename, payload.Data)
	name := pm.displayName(ctx, fileID, payload.Filename)

	session := &PreviewSession{
		FileID:             fileID,
		DisplayFilename:    name,
		MIMEType:           mime,
		Kind:               Classify(mime),
		Handle:             pm.registry.Acquire(payload.Data, mime),
		RemoteTempArtifact: name,
	}

	pm.mu.Lock()
	if pm.epoch != epoch {
		pm.mu.Unlock()
		pm.logger.Debug().Str("file_id", fileID).Msg("discarding superseded preview")
		pm.finish(session)
		return nil, ErrPreviewSuperseded
	}
	// A concurrent Open may have committed in the meantime; its session
	// is displaced and must still be finished.
	prev = pm.active
	pm.active = session
	pm.mu.Unlock()
	if prev != nil {
		pm.finish(prev)
	}

	pm.logger.Debug().Str("file", name).Str("mime", mime).Str("kind", session.Kind.String()).Msg("preview opened")
	pm.eventBus.PublishPreview(events.EventPreviewOpened, fileID, name, mime, session.Kind.String())
	return session, nil
}

func (pm *PreviewManager) stale(epoch uint64) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.epoch != epoch
}

func (pm *PreviewManager) displayName(ctx context.Context, fileID, headerName string) string {
	rec, ok, err := pm.directory.Lookup(ctx, fileID)
	if err != nil {
		pm.logger.Warn().Err(err).Str("file_id", fileID).Msg("name lookup failed")
	}
	if ok && rec.DisplayFilename != "" {
		return rec.DisplayFilename
	}
	if headerName != "" {
		return headerName
	}
	return constants.FallbackPreviewName
}

// Close ends the active session, if any: its handle is released and the
// server's temp copy is cleaned up in the background.
func (pm *PreviewManager) Close() {
	pm.mu.Lock()
	s := pm.active
	pm.active = nil
	pm.mu.Unlock()

	if s != nil {
		pm.finish(s)
	}
}

// Dismiss handles the user dismissing the preview overlay.
func (pm *PreviewManager) Dismiss() {
	pm.Close()
}

// Navigate handles navigation away from the dashboard: the active session
// closes and any Open still in flight is discarded when it completes.
func (pm *PreviewManager) Navigate() {
	pm.mu.Lock()
	pm.epoch++
	pm.mu.Unlock()
	pm.Close()
}

// Active returns the active session or nil.
func (pm *PreviewManager) Active() *PreviewSession {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.active
}

// Content returns the bytes behind an open session.
func (pm *PreviewManager) Content(s *PreviewSession) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	blob, ok := pm.registry.Open(s.Handle)
	if !ok {
		return nil, false
	}
	return blob.Data, true
}

// finish releases the session's handle and schedules the server cleanup,
// once per session.
func (pm *PreviewManager) finish(s *PreviewSession) {
	s.closeOnce.Do(func() {
		pm.registry.Release(s.Handle)

		name := s.RemoteTempArtifact
		if pm.cleanup != nil && name != "" {
			pm.cleanup.Go("cleanup_preview/"+name, func(ctx context.Context) error {
				return pm.remote.CleanupPreview(ctx, name)
			})
		}

		pm.eventBus.PublishPreview(events.EventPreviewClosed, s.FileID, s.DisplayFilename, s.MIMEType, s.Kind.String())
	})
}
