package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/cleanup"
	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/diskspace"
	"github.com/megacloud/megacloud-cli/internal/events"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/resources"
	"github.com/megacloud/megacloud-cli/internal/state"
	"github.com/megacloud/megacloud-cli/internal/transfer"
	"github.com/megacloud/megacloud-cli/internal/util/paths"
	"github.com/megacloud/megacloud-cli/internal/util/sanitize"
)

// User-facing messages for transfers.
const (
	msgNoFileSelected = "No file selected!"
	msgUploaded       = "File uploaded successfully"
	msgUploadFailed   = "Upload failed"
	msgDownloadFailed = "Download failed"
	msgDeleteFailed   = "Deletion failed"
	msgDeleteDeclined = "Deletion cancelled"
)

// TransferService orchestrates upload, download and delete. Every
// operation reports exactly one notification and never panics on failure.
type TransferService struct {
	remote    Remote
	directory *DirectoryService
	registry  *resources.Registry
	tracker   *transfer.Tracker
	indicator *state.Indicator
	cleanup   *cleanup.Scheduler
	notifier  Notifier
	eventBus  *events.EventBus
	logger    *logging.Logger
}

// TransferServiceConfig wires a TransferService to its collaborators.
type TransferServiceConfig struct {
	Remote    Remote
	Directory *DirectoryService
	Registry  *resources.Registry
	Tracker   *transfer.Tracker
	Indicator *state.Indicator
	Cleanup   *cleanup.Scheduler
	Notifier  Notifier
	EventBus  *events.EventBus
	Logger    *logging.Logger
}

// NewTransferService creates a new TransferService.
func NewTransferService(cfg TransferServiceConfig) *TransferService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &TransferService{
		remote:    cfg.Remote,
		directory: cfg.Directory,
		registry:  cfg.Registry,
		tracker:   cfg.Tracker,
		indicator: cfg.Indicator,
		cleanup:   cfg.Cleanup,
		notifier:  cfg.Notifier,
		eventBus:  cfg.EventBus,
		logger:    logger.Component("transfer"),
	}
}

// Upload sends file to the server. dismiss, when non-nil, clears the
// upload affordance and runs exactly once whatever the outcome.
func (ts *TransferService) Upload(ctx context.Context, file *LocalFile, dismiss func()) Result {
	var dismissOnce sync.Once
	defer func() {
		if dismiss != nil {
			dismissOnce.Do(dismiss)
		}
	}()

	if file == nil || file.Reader == nil {
		err := api.NewValidationError(api.UploadFailed, msgNoFileSelected)
		ts.notifier.Notify(false, msgNoFileSelected)
		return Result{Message: msgNoFileSelected, Err: err}
	}

	end := ts.indicator.Begin()
	defer end()

	task := ts.tracker.Start(transfer.KindUpload, "", file.Name)
	res, err := ts.remote.Upload(ctx, file.Name, file.Reader)
	ts.tracker.Finish(task, err)

	if err != nil {
		msg := api.UserMessage(err, msgUploadFailed)
		ts.logger.Warn().Err(err).Str("file", file.Name).Msg("upload failed")
		ts.notifier.Notify(false, msg)
		return Result{Message: msg, Err: err, Filename: file.Name}
	}

	msg := res.Message
	if msg == "" {
		msg = msgUploaded
	}
	name := res.Filename
	if name == "" {
		name = file.Name
	}
	ts.logger.Info().Str("file", name).Float64("size_mb", res.SizeMB).Msg("uploaded")
	ts.notifier.Notify(true, msg)

	ts.refreshAfterMutation(ctx)
	return Result{OK: true, Message: msg, Filename: name, SizeMB: res.SizeMB}
}

// Download fetches fileID and writes it under destDir with a
// collision-free name. The server's staged copy is cleaned up after the
// grace delay.
func (ts *TransferService) Download(ctx context.Context, fileID, destDir string) Result {
	end := ts.indicator.Begin()
	defer end()

	task := ts.tracker.Start(transfer.KindDownload, fileID, "")
	payload, err := ts.remote.Download(ctx, fileID)
	if err != nil {
		ts.tracker.Finish(task, err)
		return ts.fail(err, msgDownloadFailed, "", Result{})
	}

	handle := ts.registry.Acquire(payload.Data, payload.ContentType)
	defer ts.registry.Release(handle)

	name := ts.displayName(ctx, fileID, payload.Filename, constants.FallbackDownloadName)
	ts.scheduleCleanup("cleanup_download/"+name, func(ctx context.Context) error {
		return ts.remote.CleanupDownload(ctx, name)
	})

	path, err := ts.save(handle, destDir, name)
	ts.tracker.Finish(task, err)
	if err != nil {
		return ts.fail(err, msgDownloadFailed, name, Result{})
	}

	msg := fmt.Sprintf("%q downloaded successfully", name)
	ts.logger.Info().Str("file", name).Str("path", path).Msg("downloaded")
	ts.notifier.Notify(true, msg)
	return Result{
		OK:       true,
		Message:  msg,
		Filename: name,
		Path:     path,
		SizeMB:   float64(len(payload.Data)) / (1024 * 1024),
	}
}

// save writes the blob behind handle to a new file in destDir.
func (ts *TransferService) save(handle resources.Handle, destDir, name string) (string, error) {
	blob, ok := ts.registry.Open(handle)
	if !ok {
		return "", fmt.Errorf("download buffer for %s already released", name)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	safe := sanitize.Filename(name, constants.FallbackDownloadName)
	if err := diskspace.CheckAvailableSpace(filepath.Join(destDir, safe), blob.Size(), constants.DiskSpaceSafetyMargin); err != nil {
		return "", err
	}

	f, err := paths.CreateUnique(destDir, safe)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(blob.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Delete removes fileID after confirm approves. Without approval no
// request is made.
func (ts *TransferService) Delete(ctx context.Context, fileID, displayName string, confirm Confirmer) Result {
	prompt := fmt.Sprintf("Are you sure you want to delete %q?", displayName)
	if confirm == nil || !confirm.Confirm(prompt) {
		ts.logger.Debug().Str("file_id", fileID).Msg("delete not confirmed")
		return Result{Message: msgDeleteDeclined, Filename: displayName}
	}

	end := ts.indicator.Begin()
	defer end()

	task := ts.tracker.Start(transfer.KindDelete, fileID, displayName)
	_, err := ts.remote.Delete(ctx, fileID)
	ts.tracker.Finish(task, err)
	if err != nil {
		msg := api.UserMessage(err, msgDeleteFailed)
		ts.logger.Warn().Err(err).Str("file_id", fileID).Msg("delete failed")
		ts.notifier.Notify(false, msg)
		return Result{Message: msg, Err: err, Filename: displayName}
	}

	msg := fmt.Sprintf("%q deleted successfully", displayName)
	ts.notifier.Notify(true, msg)

	ts.refreshAfterMutation(ctx)
	return Result{OK: true, Message: msg, Filename: displayName}
}

// refreshAfterMutation refreshes the listing and the stats concurrently.
// Each refresh keeps its own error so one failing never cancels the other,
// and neither turns the mutation into a failure.
func (ts *TransferService) refreshAfterMutation(ctx context.Context) {
	filter := ts.directory.Snapshot().Filter

	var g errgroup.Group
	g.Go(func() error {
		if err := ts.directory.Refresh(ctx, filter); err != nil {
			ts.logger.Warn().Err(err).Msg("directory refresh after mutation failed")
		}
		return nil
	})
	g.Go(func() error {
		if err := ts.directory.RefreshStats(ctx); err != nil {
			ts.logger.Warn().Err(err).Msg("stats refresh after mutation failed")
		}
		return nil
	})
	_ = g.Wait()
}

// displayName resolves a file's name from a fresh listing, then from the
// response headers, then fallback.
func (ts *TransferService) displayName(ctx context.Context, fileID, headerName, fallback string) string {
	rec, ok, err := ts.directory.Lookup(ctx, fileID)
	if err != nil {
		ts.logger.Warn().Err(err).Str("file_id", fileID).Msg("name lookup failed")
	}
	if ok && rec.DisplayFilename != "" {
		return rec.DisplayFilename
	}
	if headerName != "" {
		return headerName
	}
	return fallback
}

func (ts *TransferService) scheduleCleanup(name string, task cleanup.Task) {
	if ts.cleanup == nil {
		return
	}
	ts.cleanup.AfterGrace(name, task)
}

// fail notifies "<prefix>: <reason>" when the failure carries a message,
// else prefix alone.
func (ts *TransferService) fail(err error, prefix, name string, res Result) Result {
	msg := prefixed(prefix, err)
	ts.logger.Warn().Err(err).Str("file", name).Msg(prefix)
	ts.notifier.Notify(false, msg)
	res.Message = msg
	res.Err = err
	res.Filename = name
	return res
}

func prefixed(prefix string, err error) string {
	if e, ok := api.AsError(err); ok {
		switch e.Class {
		case api.ServerError, api.ValidationError:
			if e.Message != "" {
				return prefix + ": " + e.Message
			}
		case api.TransportError:
			if msg := e.UserMessage(); msg == api.NotLoggedInMessage {
				return prefix + ": " + msg
			}
		}
		return prefix
	}
	// Local failures such as a full disk.
	return prefix + ": " + err.Error()
}
