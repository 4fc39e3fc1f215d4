package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the config directory, log file and notifications.
	AppName = "megacloud"

	// DisplayName is shown in desktop notifications and the CLI help text.
	DisplayName = "MegaCloud"

	// DefaultBaseURL is the dashboard server used when no config is present.
	DefaultBaseURL = "http://127.0.0.1:5000"
)

// Cleanup timing
const (
	// CleanupGrace - delay before a download's server-side temp copy is removed (60 seconds)
	// The server stages a copy for the download; removing it earlier can cut
	// off a slow reader on the server side.
	CleanupGrace = 60 * time.Second

	// CleanupFlushTimeout - upper bound for flushing pending cleanups at CLI exit
	CleanupFlushTimeout = 10 * time.Second
)

// HTTP client settings
const (
	// DefaultRetryMax - retries for idempotent GETs (list, search, stats, preview, download)
	DefaultRetryMax = 3

	// RetryInitialDelay - first backoff delay for retryable requests
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - backoff ceiling
	RetryMaxDelay = 5 * time.Second

	// DefaultRequestTimeout - overall timeout applied by the CLI per request (0 means transport only)
	DefaultRequestTimeout = 0

	// RequestBurst - requests allowed back to back before requests_per_second applies
	RequestBurst = 10

	// MaxRetryAfter - longest server-requested pause honored by the request limiter
	MaxRetryAfter = time.Minute

	// MaxErrorBodyBytes - how much of a failed response body is read for the error message
	MaxErrorBodyBytes = 64 * 1024
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - per-subscriber channel buffer
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - cap for caller-supplied buffer sizes
	EventBusMaxBuffer = 4096
)

// Fallback names used when the directory lookup misses the file id.
const (
	FallbackDownloadName = "downloaded_file"
	FallbackPreviewName  = "Unknown File"
)

// DefaultMIMEType is assumed when a response carries no Content-Type.
const DefaultMIMEType = "application/octet-stream"

// CSRF token transport
const (
	CSRFHeader   = "X-CSRFToken"
	CSRFMetaName = "csrf-token"
)

// Disk space
const (
	// DiskSpaceSafetyMargin - multiplier applied to the blob size before saving
	DiskSpaceSafetyMargin = 1.05
)
