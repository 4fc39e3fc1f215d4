// Package api provides the HTTP client for the MegaCloud dashboard endpoints
// and the error taxonomy shared by every operation built on it.
package api

import (
	"errors"
	"fmt"
)

// Class says where a failure came from and how it is surfaced.
type Class int

const (
	// ValidationError is a local precondition failure. The network was never touched.
	ValidationError Class = iota
	// TransportError is a network failure or an unreadable response.
	TransportError
	// ServerError is a non-2xx status or an explicit failure payload.
	ServerError
	// BestEffortFailure is a failed cleanup call. Logged only.
	BestEffortFailure
)

func (c Class) String() string {
	switch c {
	case ValidationError:
		return "validation"
	case TransportError:
		return "transport"
	case ServerError:
		return "server"
	case BestEffortFailure:
		return "best-effort"
	default:
		return "unknown"
	}
}

// Kind names the operation that failed.
type Kind string

const (
	DirectoryUnavailable Kind = "directory_unavailable"
	StatsUnavailable     Kind = "stats_unavailable"
	PreviewError         Kind = "preview_error"
	UploadFailed         Kind = "upload_failed"
	DownloadFailed       Kind = "download_failed"
	DeleteFailed         Kind = "delete_failed"
	AuthFailed           Kind = "auth_failed"
	CleanupFailed        Kind = "cleanup_failed"
)

// Generic user-facing messages, used when the server supplies none.
var genericMessages = map[Kind]string{
	DirectoryUnavailable: "Failed to fetch files.",
	StatsUnavailable:     "Failed to fetch stats.",
	PreviewError:         "Preview failed",
	UploadFailed:         "Upload failed",
	DownloadFailed:       "Download failed",
	DeleteFailed:         "Deletion failed",
	AuthFailed:           "Authentication failed",
	CleanupFailed:        "Cleanup failed",
}

// Sentinel causes
var (
	// ErrCSRFTokenMissing means the page metadata carried no anti-forgery token.
	ErrCSRFTokenMissing = errors.New("csrf token missing from page metadata")

	// ErrNotLoggedIn means the server answered with its login page instead of JSON.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrMalformedResponse means a response body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// User-facing messages for the sentinel causes.
const (
	CSRFMissingMessage = "Security token missing. Please reload the page."
	NotLoggedInMessage = "Not logged in. Run `megacloud login` first."
)

// Error is the single error type returned by the api and services packages.
type Error struct {
	Class   Class
	Kind    Kind
	Op      string // e.g. "GET /list_files"
	Status  int    // HTTP status, 0 when no response
	Message string // server-supplied or validation message
	Err     error  // underlying cause
	// Fallback overrides the generic message for the kind.
	Fallback string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.fallback()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Class, e.Status, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Class, msg)
	}
	return fmt.Sprintf("%s: %s", e.Class, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is what gets shown to the user: the server's message verbatim
// for server errors, the precondition message for validation errors, and a
// generic message otherwise.
func (e *Error) UserMessage() string {
	switch e.Class {
	case ValidationError, ServerError:
		if e.Message != "" {
			return e.Message
		}
		if e.Class == ValidationError && e.Err != nil {
			return e.Err.Error()
		}
	case TransportError:
		if errors.Is(e.Err, ErrNotLoggedIn) {
			return NotLoggedInMessage
		}
	}
	return e.fallback()
}

func (e *Error) fallback() string {
	if e.Fallback != "" {
		return e.Fallback
	}
	if msg, ok := genericMessages[e.Kind]; ok {
		return msg
	}
	return "Request failed"
}

// NewValidationError returns a local precondition failure.
func NewValidationError(kind Kind, message string) *Error {
	return &Error{Class: ValidationError, Kind: kind, Message: message}
}

func newTransportError(kind Kind, op string, err error) *Error {
	return &Error{Class: TransportError, Kind: kind, Op: op, Err: err}
}

func newServerError(kind Kind, op string, status int, message string) *Error {
	return &Error{Class: ServerError, Kind: kind, Op: op, Status: status, Message: message}
}

// WithKind returns a copy of err re-tagged with kind and fallback message.
// Non-*Error values are wrapped as transport errors.
func WithKind(err error, kind Kind, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		cp := *apiErr
		cp.Kind = kind
		cp.Fallback = fallback
		return &cp
	}
	return &Error{Class: TransportError, Kind: kind, Err: err, Fallback: fallback}
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsValidation reports whether err is a local precondition failure.
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Class == ValidationError
}

// IsServer reports whether err was signalled by the server.
func IsServer(err error) bool {
	e, ok := AsError(err)
	return ok && e.Class == ServerError
}

// IsTransport reports whether err is a network or decoding failure.
func IsTransport(err error) bool {
	e, ok := AsError(err)
	return ok && e.Class == TransportError
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsNotFound reports whether the server answered 404.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Status == 404
}

// UserMessage returns the user-facing message for any error.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.UserMessage()
	}
	return fallback
}
