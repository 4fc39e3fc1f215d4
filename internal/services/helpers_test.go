package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/cleanup"
	"github.com/megacloud/megacloud-cli/internal/config"
	"github.com/megacloud/megacloud-cli/internal/events"
)

const listingJSON = `{
	"success": true,
	"files": [
		{"file_id": "1", "display_filename": "a.png", "category": "Images", "size_mb": 1},
		{"file_id": "2", "display_filename": "b.pdf", "category": "Documents", "size_mb": 2},
		{"file_id": "3", "display_filename": "c.mp3", "category": "Audio", "size_mb": 3}
	],
	"categorized": {
		"Images": [{"file_id": "1", "display_filename": "a.png", "category": "Images", "size_mb": 1}],
		"Documents": [{"file_id": "2", "display_filename": "b.pdf", "category": "Documents", "size_mb": 2}],
		"Audio": [{"file_id": "3", "display_filename": "c.mp3", "category": "Audio", "size_mb": 3}]
	}
}`

const statsJSON = `{"success": true, "storage_used": 6, "total_files": 3, "total_size_mb": 1024}`

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type note struct {
	success bool
	message string
}

// recorder is a Notifier that keeps every notification.
type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(success bool, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{success, message})
}

func (r *recorder) all() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]note, len(r.notes))
	copy(out, r.notes)
	return out
}

// fakeServer is a MegaCloud server double that counts calls per route.
type fakeServer struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, mux: http.NewServeMux(), calls: make(map[string]int)}
	page := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><meta name="csrf-token" content="test-token"></head><body></body></html>`)
	}
	fs.mux.HandleFunc("GET /{$}", page)
	fs.mux.HandleFunc("GET /dashboard", page)
	fs.srv = httptest.NewServer(fs.mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

// handle registers h for pattern and counts its calls under pattern.
func (fs *fakeServer) handle(pattern string, h http.HandlerFunc) {
	fs.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.calls[pattern]++
		fs.mu.Unlock()
		h(w, r)
	})
}

func (fs *fakeServer) json(pattern string, status int, body string) {
	fs.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

func (fs *fakeServer) count(pattern string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls[pattern]
}

func (fs *fakeServer) total() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for _, c := range fs.calls {
		n += c
	}
	return n
}

// fixture is a dashboard talking to a fakeServer.
type fixture struct {
	server *fakeServer
	client *api.Client
	dash   *Dashboard
	notes  *recorder
	bus    *events.EventBus
}

func newFixture(t *testing.T, fs *fakeServer, grace time.Duration) *fixture {
	t.Helper()

	cfg := config.New()
	cfg.BaseURL = fs.srv.URL
	cfg.RetryMax = 0

	client, err := api.NewClient(cfg, api.Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	bus := events.NewEventBus(256)
	t.Cleanup(bus.Close)
	notes := &recorder{}
	dash := NewDashboard(DashboardConfig{
		Remote:   client,
		Notifier: notes,
		EventBus: bus,
		Cleanup:  cleanup.NewScheduler(grace, nil),
	})

	return &fixture{server: fs, client: client, dash: dash, notes: notes, bus: bus}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.dash.Cleanup.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func binary(contentType string, data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

func (f *fixture) onlyNote(t *testing.T) note {
	t.Helper()
	notes := f.notes.all()
	if len(notes) != 1 {
		t.Fatalf("got %d notifications %v, want exactly 1", len(notes), notes)
	}
	return notes[0]
}

func (n note) String() string {
	mark := "ok"
	if !n.success {
		mark = "err"
	}
	return fmt.Sprintf("%s:%s", mark, strings.TrimSpace(n.message))
}
