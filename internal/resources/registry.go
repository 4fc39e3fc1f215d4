// Package resources owns the in-memory blobs that transfers and previews
// hand out as locally addressable handles.
package resources

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/megacloud/megacloud-cli/internal/logging"
)

// HandlePrefix starts every handle string.
const HandlePrefix = "blob:"

// Handle is a locally addressable reference to a blob held by a Registry.
// The zero Handle is never issued.
type Handle string

// Blob is the payload behind a handle.
type Blob struct {
	Data       []byte
	MIMEType   string
	AcquiredAt time.Time
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 {
	return int64(len(b.Data))
}

// Registry is the single owner of blob handles. Every Acquire must be
// matched by one Release on every exit path of the operation that made it.
type Registry struct {
	blobs    map[Handle]*Blob
	bytes    int64
	acquired int64
	released int64
	mu       sync.Mutex
	logger   *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		blobs:  make(map[Handle]*Blob),
		logger: logger,
	}
}

// Acquire registers data and returns a fresh handle for it.
func (r *Registry) Acquire(data []byte, mimeType string) Handle {
	h := Handle(HandlePrefix + uuid.NewString())

	r.mu.Lock()
	r.blobs[h] = &Blob{Data: data, MIMEType: mimeType, AcquiredAt: time.Now()}
	r.bytes += int64(len(data))
	r.acquired++
	live := len(r.blobs)
	r.mu.Unlock()

	r.logger.Debug().
		Str("handle", string(h)).
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Int("live", live).
		Msg("blob acquired")
	return h
}

// Release frees the blob behind h. Releasing an unknown or already
// released handle is a no-op and reports false.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	blob, ok := r.blobs[h]
	if ok {
		delete(r.blobs, h)
		r.bytes -= int64(len(blob.Data))
		r.released++
	}
	live := len(r.blobs)
	r.mu.Unlock()

	if ok {
		r.logger.Debug().Str("handle", string(h)).Int("live", live).Msg("blob released")
	}
	return ok
}

// ReleaseAll frees every outstanding blob and returns how many were live.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	n := len(r.blobs)
	r.released += int64(n)
	r.blobs = make(map[Handle]*Blob)
	r.bytes = 0
	r.mu.Unlock()

	if n > 0 {
		r.logger.Debug().Int("count", n).Msg("released all blobs")
	}
	return n
}

// Open returns the blob behind a live handle.
func (r *Registry) Open(h Handle) (*Blob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[h]
	return blob, ok
}

// Live returns the number of outstanding handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blobs)
}

// Stats is a point-in-time view of registry usage.
type Stats struct {
	Live     int
	Bytes    int64
	Acquired int64
	Released int64
}

// Stats returns current usage counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Live:     len(r.blobs),
		Bytes:    r.bytes,
		Acquired: r.acquired,
		Released: r.released,
	}
}
