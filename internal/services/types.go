// Package services provides frontend-agnostic business logic for the
// MegaCloud dashboard client. It sits between the CLI and the HTTP client
// and owns the lifecycle of transfers, previews and their resources.
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/models"
)

// Remote is the subset of the API client the services use.
type Remote interface {
	ListFiles(ctx context.Context) (models.DirectoryView, error)
	SearchFiles(ctx context.Context, query string) ([]models.FileRecord, error)
	Stats(ctx context.Context) (models.StatsSnapshot, error)
	Upload(ctx context.Context, filename string, content io.Reader) (*api.UploadResult, error)
	Download(ctx context.Context, fileID string) (*api.Payload, error)
	Preview(ctx context.Context, fileID string) (*api.Payload, error)
	Delete(ctx context.Context, fileID string) (string, error)
	CleanupPreview(ctx context.Context, filename string) error
	CleanupDownload(ctx context.Context, filename string) error
}

// Notifier shows one user-visible notification.
type Notifier interface {
	Notify(success bool, message string)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// LocalFile is a file chosen for upload.
type LocalFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// OpenLocalFile opens path for upload. The caller closes the returned file.
func OpenLocalFile(path string) (*LocalFile, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{Name: filepath.Base(path), Size: info.Size(), Reader: f}, f, nil
}

// Result is the outcome of one user-initiated operation. Message is what
// was shown to the user.
type Result struct {
	OK      bool
	Message string
	Err     error

	// Filename is the display name the operation acted on.
	Filename string
	// Path is where a download was written.
	Path   string
	SizeMB float64
}

// PreviewKind selects how a preview is rendered.
type PreviewKind int

const (
	PreviewUnsupported PreviewKind = iota
	PreviewImage
	PreviewPDF
	PreviewVideo
	PreviewAudio
	PreviewText
)

var previewKindNames = [...]string{
	PreviewUnsupported: "unsupported",
	PreviewImage:       "image",
	PreviewPDF:         "pdf",
	PreviewVideo:       "video",
	PreviewAudio:       "audio",
	PreviewText:        "text",
}

func (k PreviewKind) String() string {
	if k < 0 || int(k) >= len(previewKindNames) {
		return fmt.Sprintf("PreviewKind(%d)", int(k))
	}
	return previewKindNames[k]
}
