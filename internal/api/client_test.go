package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/megacloud/megacloud-cli/internal/config"
	"github.com/megacloud/megacloud-cli/internal/models"
	"github.com/megacloud/megacloud-cli/internal/ratelimit"
)

const testToken = "tok-123"

func pageWithToken(token string) string {
	if token == "" {
		return `<html><head><title>MegaCloud</title></head><body>dashboard</body></html>`
	}
	return fmt.Sprintf(`<html><head><meta charset="utf-8"><meta name="csrf-token" content="%s"></head><body></body></html>`, token)
}

// newTestClient starts a server with the dashboard and login pages mounted
// and returns a client pointed at it with retries disabled.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	for _, page := range []string{LoginPage, DashboardPage} {
		pattern := page
		if page == LoginPage {
			pattern = "/{$}"
		}
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, pageWithToken(testToken))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 0

	c, err := NewClient(cfg, Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.New()
	cfg.BaseURL = ""

	_, err := NewClient(cfg, Options{})
	if err == nil {
		t.Fatal("NewClient() should return error for empty base URL")
	}
	if !strings.Contains(err.Error(), "invalid base URL") {
		t.Errorf("NewClient() error = %q, want error containing 'invalid base URL'", err.Error())
	}
}

func TestListFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /list_files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{
			"success": true,
			"files": [
				{"file_id": "1", "display_filename": "a.png", "category": "Images", "size_mb": 1.5},
				{"file_id": 2, "display_filename": "b.pdf", "category": "Documents", "size_mb": 0.2},
				{"file_id": "3", "display_filename": "c.bin", "category": "Misc", "size_mb": 3}
			],
			"categorized": {
				"Images": [{"file_id": "1", "display_filename": "a.png", "category": "Images", "size_mb": 1.5}],
				"Documents": [{"file_id": 2, "display_filename": "b.pdf", "category": "Documents", "size_mb": 0.2}],
				"Misc": [{"file_id": "3", "display_filename": "c.bin", "category": "Misc", "size_mb": 3}]
			}
		}`)
	})
	c, _ := newTestClient(t, mux)

	view, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	if got := len(view.Filter(models.CategoryAll)); got != 3 {
		t.Errorf("len(All) = %d, want 3", got)
	}
	if got := len(view.Filter(models.CategoryImages)); got != 1 {
		t.Errorf("len(Images) = %d, want 1", got)
	}
	other := view.Filter(models.CategoryOther)
	if len(other) != 1 || other[0].FileID != "3" {
		t.Errorf("Other = %+v, want the unknown-category file", other)
	}
	if got := view.Filter(models.CategoryDocuments); len(got) != 1 || got[0].FileID != "2" {
		t.Errorf("Documents = %+v, want numeric id normalized to \"2\"", got)
	}
}

func TestListFilesServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /list_files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, `{"success": false, "error": "database offline"}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.ListFiles(context.Background())
	if !IsServer(err) {
		t.Fatalf("ListFiles() error = %v, want server error", err)
	}
	if !IsKind(err, DirectoryUnavailable) {
		t.Errorf("kind mismatch: %v", err)
	}
	if got := UserMessage(err, ""); got != "database offline" {
		t.Errorf("UserMessage() = %q, want server message verbatim", got)
	}
}

func TestListFilesSuccessFalse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /list_files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success": false}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.ListFiles(context.Background())
	if !IsServer(err) {
		t.Fatalf("ListFiles() error = %v, want server error", err)
	}
	if got := UserMessage(err, ""); got != "Failed to fetch files." {
		t.Errorf("UserMessage() = %q, want generic fallback", got)
	}
}

func TestListFilesLoginPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /list_files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>Login</body></html>")
	})
	c, _ := newTestClient(t, mux)

	_, err := c.ListFiles(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("ListFiles() error = %v, want ErrNotLoggedIn", err)
	}
	if got := UserMessage(err, ""); got != NotLoggedInMessage {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestSearchFilesEscapesQuery(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search_files", func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("query")
		writeJSON(w, 200, `{"success": true, "files": []}`)
	})
	c, _ := newTestClient(t, mux)

	files, err := c.SearchFiles(context.Background(), "q4 report&draft=1")
	if err != nil {
		t.Fatalf("SearchFiles() error = %v", err)
	}
	if got != "q4 report&draft=1" {
		t.Errorf("server saw query %q", got)
	}
	if files == nil {
		t.Error("SearchFiles() returned nil slice, want empty")
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"complete", `{"success": true, "storage_used": 12.5, "total_files": 4, "total_size_mb": 1024}`, false},
		{"zero values present", `{"success": true, "storage_used": 0, "total_files": 0, "total_size_mb": 0}`, false},
		{"missing total_files", `{"success": true, "storage_used": 12.5, "total_size_mb": 1024}`, true},
		{"empty object", `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, 200, tt.body)
			})
			c, _ := newTestClient(t, mux)

			stats, err := c.Stats(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) || !IsKind(err, StatsUnavailable) {
					t.Fatalf("Stats() error = %v, want malformed StatsUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if tt.name == "complete" && (stats.StorageUsedMB != 12.5 || stats.TotalFiles != 4 || stats.TotalCapacityMB != 1024) {
				t.Errorf("Stats() = %+v", stats)
			}
		})
	}
}

func TestUploadSendsMultipartWithToken(t *testing.T) {
	var gotToken, gotName, gotBody, gotType string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-CSRFToken")
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, 400, `{"error": "No file part"}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotBody = string(data)
		gotType = header.Header.Get("Content-Type")
		writeJSON(w, 200, `{"message": "File uploaded successfully", "filename": "notes.txt", "size_mb": 0.01}`)
	})
	c, _ := newTestClient(t, mux)

	res, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotToken != testToken {
		t.Errorf("X-CSRFToken = %q, want %q", gotToken, testToken)
	}
	if gotName != "notes.txt" || gotBody != "hello" {
		t.Errorf("server got %q with %q", gotName, gotBody)
	}
	if !strings.HasPrefix(gotType, "text/plain") {
		t.Errorf("part Content-Type = %q, want text/plain", gotType)
	}
	if res.Message != "File uploaded successfully" || res.Filename != "notes.txt" {
		t.Errorf("Upload() = %+v", res)
	}
}

func TestUploadServerErrorIsVerbatim(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error": "File type not allowed"}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Upload(context.Background(), "x.exe", strings.NewReader("MZ"))
	if !IsServer(err) || !IsKind(err, UploadFailed) {
		t.Fatalf("Upload() error = %v", err)
	}
	if got := UserMessage(err, ""); got != "File type not allowed" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestMissingCSRFTokenBlocksMutation(t *testing.T) {
	var deletes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, pageWithToken(""))
	})
	mux.HandleFunc("DELETE /delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		writeJSON(w, 200, `{"success": true, "message": "deleted"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.New()
	cfg.BaseURL = srv.URL
	c, err := NewClient(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Delete(context.Background(), "7")
	if !IsValidation(err) {
		t.Fatalf("Delete() error = %v, want validation error", err)
	}
	if !errors.Is(err, ErrCSRFTokenMissing) {
		t.Errorf("Delete() error should wrap ErrCSRFTokenMissing")
	}
	if !IsKind(err, DeleteFailed) {
		t.Errorf("Delete() kind = %v, want DeleteFailed", err)
	}
	if got := UserMessage(err, ""); got != CSRFMissingMessage {
		t.Errorf("UserMessage() = %q", got)
	}
	if deletes.Load() != 0 {
		t.Errorf("delete endpoint called %d times, want 0", deletes.Load())
	}
}

func TestDelete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			writeJSON(w, 404, `{"success": false, "error": "File not found"}`)
			return
		}
		writeJSON(w, 200, `{"success": true, "message": "File deleted"}`)
	})
	c, _ := newTestClient(t, mux)

	msg, err := c.Delete(context.Background(), "42")
	if err != nil || msg != "File deleted" {
		t.Fatalf("Delete(42) = %q, %v", msg, err)
	}

	_, err = c.Delete(context.Background(), "43")
	if !IsNotFound(err) {
		t.Fatalf("Delete(43) error = %v, want 404", err)
	}
	if got := UserMessage(err, ""); got != "File not found" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestDownloadPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /download/{id}", func(w http.ResponseWriter, r *http.Request) {
		// Suppress content sniffing so the header is absent.
		w.Header()["Content-Type"] = nil
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Write([]byte{0x01, 0x02, 0x03})
	})
	c, _ := newTestClient(t, mux)

	p, err := c.Download(context.Background(), "5")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(p.Data) != 3 {
		t.Errorf("len(Data) = %d, want 3", len(p.Data))
	}
	if p.ContentType != "application/octet-stream" {
		t.Errorf("ContentType = %q, want default", p.ContentType)
	}
	if p.Filename != "report.pdf" {
		t.Errorf("Filename = %q", p.Filename)
	}
}

func TestPreviewNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /preview/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, `{"error": "File not found"}`)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Preview(context.Background(), "9")
	if !IsNotFound(err) || !IsKind(err, PreviewError) {
		t.Fatalf("Preview() error = %v", err)
	}
	if got := UserMessage(err, ""); got != "File not found" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestCleanupIsBestEffortAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	var gotName string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cleanup_preview/{name}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotName = r.PathValue("name")
		writeJSON(w, 503, `{"success": false, "error": "busy"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, pageWithToken(testToken))
	})

	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 3
	c, err := NewClient(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	err = c.CleanupPreview(context.Background(), "my file.png")
	e, ok := AsError(err)
	if !ok || e.Class != BestEffortFailure {
		t.Fatalf("CleanupPreview() error = %v, want best-effort failure", err)
	}
	if calls.Load() != 1 {
		t.Errorf("cleanup called %d times, want exactly 1", calls.Load())
	}
	if gotName != "my file.png" {
		t.Errorf("server saw name %q", gotName)
	}
}

func TestGetIsRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, 503, `{"error": "starting"}`)
			return
		}
		writeJSON(w, 200, `{"success": true, "storage_used": 1, "total_files": 1, "total_size_mb": 10}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 2
	c, err := NewClient(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Stats(context.Background()); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("stats called %d times, want 2", calls.Load())
	}
}

func TestThrottledClientPausesAfterTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, 429, `{"error": "slow down"}`)
			return
		}
		writeJSON(w, 200, `{"success": true, "storage_used": 1, "total_files": 1, "total_size_mb": 10}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 0
	cfg.RequestsPerSecond = 100
	c, err := NewClient(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.limiter == nil {
		t.Fatal("expected a request limiter when requests_per_second is set")
	}

	if _, err := c.Stats(context.Background()); err == nil {
		t.Fatal("Stats() should fail on 429")
	}

	start := time.Now()
	if _, err := c.Stats(context.Background()); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("second request went out after %v, want it held for Retry-After", elapsed)
	}
}

func TestThrottledClientHonorsContext(t *testing.T) {
	mux := http.NewServeMux()
	c, _ := newTestClient(t, mux)
	c.limiter = ratelimit.New(1, 1, nil)
	c.limiter.Pause(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Stats(ctx)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Class != TransportError {
		t.Fatalf("Stats() error = %v, want transport error", err)
	}
	if c.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", c.RequestCount())
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"3", 3 * time.Second},
		{" 7 ", 7 * time.Second},
		{"0", time.Second},
		{"Wed, 21 Oct 2015 07:28:00 GMT", time.Second},
		{"86400", time.Minute},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := retryAfter(resp); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestRequestOTPValidation(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())

	for _, email := range []string{"", "not-an-email", "a@b", "a b@c.d"} {
		_, err := c.RequestOTP(context.Background(), email)
		if !IsValidation(err) {
			t.Errorf("RequestOTP(%q) error = %v, want validation error", email, err)
			continue
		}
		if got := UserMessage(err, ""); got != InvalidEmailMessage {
			t.Errorf("RequestOTP(%q) message = %q", email, got)
		}
	}
	if n := c.RequestCount(); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

func TestRequestOTPPlainTextReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /request_otp", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != testToken {
			http.Error(w, "CSRF token missing", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "OTP sent")
	})
	c, _ := newTestClient(t, mux)

	msg, err := c.RequestOTP(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if msg != "OTP sent" {
		t.Errorf("RequestOTP() = %q", msg)
	}
}

func TestVerifyOTPValidation(t *testing.T) {
	c, _ := newTestClient(t, http.NewServeMux())

	_, err := c.VerifyOTP(context.Background(), "  ")
	if got := UserMessage(err, ""); got != MissingOTPMessage {
		t.Errorf("VerifyOTP(blank) message = %q", got)
	}
	_, err = c.VerifyOTP(context.Background(), "12ab")
	if !IsValidation(err) {
		t.Errorf("VerifyOTP(12ab) error = %v, want validation", err)
	}
	if n := c.RequestCount(); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

func TestSessionPersistsAcrossClients(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify_otp", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeJSON(w, 200, `{"message": "Login successful", "redirect": "/dashboard"}`)
	})
	mux.HandleFunc("GET /list_files", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "abc" {
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<html>login</html>")
			return
		}
		writeJSON(w, 200, `{"success": true, "files": [], "categorized": {}}`)
	})
	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"message": "Logged out", "redirect": "/"}`)
	})
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, pageWithToken(testToken))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 0

	first, err := NewClient(cfg, Options{SessionFile: sessionFile})
	if err != nil {
		t.Fatal(err)
	}
	res, err := first.VerifyOTP(context.Background(), "123456")
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if res.Redirect != "/dashboard" {
		t.Errorf("Redirect = %q", res.Redirect)
	}

	second, err := NewClient(cfg, Options{SessionFile: sessionFile})
	if err != nil {
		t.Fatal(err)
	}
	if !second.HasSession() {
		t.Fatal("second client did not load the saved session")
	}
	if _, err := second.ListFiles(context.Background()); err != nil {
		t.Fatalf("ListFiles() with restored session error = %v", err)
	}

	msg, err := second.Logout(context.Background())
	if err != nil || msg != "Logged out" {
		t.Fatalf("Logout() = %q, %v", msg, err)
	}
	if second.HasSession() {
		t.Error("session still held after logout")
	}

	third, err := NewClient(cfg, Options{SessionFile: sessionFile})
	if err != nil {
		t.Fatal(err)
	}
	if third.HasSession() {
		t.Error("session file survived logout")
	}
}

func TestExtractCSRFToken(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"present", pageWithToken("abc"), "abc"},
		{"absent", pageWithToken(""), ""},
		{"attribute order", `<html><head><meta content="xyz" name="csrf-token"></head></html>`, "xyz"},
		{"other meta only", `<html><head><meta name="viewport" content="width=device-width"></head></html>`, ""},
		{"empty document", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCSRFToken(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("ExtractCSRFToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractCSRFToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConcurrentRequestsShareSessionFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeJSON(w, 200, `{"success": true, "storage_used": 1, "total_files": 1, "total_size_mb": 10}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "session.json")
	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RetryMax = 0
	c, err := NewClient(cfg, Options{SessionFile: sessionFile})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Stats(context.Background()); err != nil {
				errs <- err
			}
			if err := c.saveSession(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent request error = %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary session files left behind: %v", leftovers)
	}

	again, err := NewClient(cfg, Options{SessionFile: sessionFile})
	if err != nil {
		t.Fatal(err)
	}
	if !again.HasSession() {
		t.Error("session cookie not restored from file")
	}
}
