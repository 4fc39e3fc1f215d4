package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"

	"github.com/megacloud/megacloud-cli/internal/config"
	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/http"
	"github.com/megacloud/megacloud-cli/internal/logging"
	"github.com/megacloud/megacloud-cli/internal/ratelimit"
	"github.com/megacloud/megacloud-cli/internal/version"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Options tunes a Client beyond what the config file carries.
type Options struct {
	// SessionFile persists session cookies between runs. Empty keeps them in memory.
	SessionFile string
	Logger      *logging.Logger
}

// Client talks to the MegaCloud dashboard server.
type Client struct {
	httpClient  *nethttp.Client
	baseURL     string
	base        *url.URL
	jar         *cookiejar.Jar
	sessionFile string
	logger      *logging.Logger
	limiter     *ratelimit.Limiter // nil when unthrottled

	sessionMu sync.Mutex
	csrfMu    sync.Mutex
	csrfToken string

	requests atomic.Int64
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, opts Options) (*Client, error) {
	baseURL := cfg.NormalizedBaseURL()
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	httpClient, err := http.CreateClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.CheckRetry = http.RetryPolicy
	retryClient.Backoff = http.Backoff
	// Hand the final response back so server error bodies can be read.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{logger: logger}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	standard := retryClient.StandardClient()
	standard.Jar = jar
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		standard.Timeout = timeout
	}

	c := &Client{
		httpClient:  standard,
		baseURL:     baseURL,
		base:        base,
		jar:         jar,
		sessionFile: opts.SessionFile,
		logger:      logger,
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = ratelimit.New(float64(cfg.RequestsPerSecond), constants.RequestBurst, logger.Component("ratelimit"))
	}

	if err := c.loadSession(); err != nil {
		logger.Warn().Err(err).Str("file", c.sessionFile).Msg("ignoring unreadable session file")
	}

	return c, nil
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestCount returns how many HTTP requests this client has issued.
func (c *Client) RequestCount() int64 {
	return c.requests.Load()
}

// request describes one API call.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	accept      string
	kind        Kind
	// csrfPage is the page whose metadata supplies the anti-forgery token.
	// Empty means the request carries no token.
	csrfPage string
}

func (r request) op() string {
	path := r.path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return r.method + " " + path
}

// do performs an HTTP request. Failures before a response exist come back
// as *Error (validation or transport); any response, whatever its status,
// is returned to the caller to interpret.
func (c *Client) do(ctx context.Context, r request) (*nethttp.Response, error) {
	var token string
	if r.csrfPage != "" {
		var err error
		token, err = c.CSRFToken(ctx, r.csrfPage)
		if err != nil {
			return nil, WithKind(err, r.kind, "")
		}
	}

	if r.method != nethttp.MethodGet && r.method != nethttp.MethodHead {
		ctx = http.WithoutRetry(ctx)
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, newTransportError(r.kind, r.op(), fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set(constants.CSRFHeader, token)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newTransportError(r.kind, r.op(), err)
		}
	}

	c.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", r.op()).Msg("request failed")
		return nil, newTransportError(r.kind, r.op(), err)
	}

	c.logger.Debug().Str("op", r.op()).Int("status", resp.StatusCode).Msg("response")

	if resp.StatusCode == nethttp.StatusTooManyRequests && c.limiter != nil {
		c.limiter.Pause(retryAfter(resp))
	}

	if err := c.saveSession(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist session")
	}

	return resp, nil
}

// retryAfter reads a Retry-After header given in seconds, capped at
// constants.MaxRetryAfter. A missing or unparseable header means one second.
func retryAfter(resp *nethttp.Response) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return time.Second
	}
	d := time.Duration(secs) * time.Second
	if d > constants.MaxRetryAfter {
		d = constants.MaxRetryAfter
	}
	return d
}

// envelope is the common shape of JSON responses.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doJSON performs r and decodes a JSON success payload into v (which may be nil).
// Non-2xx, success:false, or a non-empty error field become ServerError.
func (c *Client) doJSON(ctx context.Context, r request, v interface{}) (*envelope, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, r, v)
}

func decodeJSON(resp *nethttp.Response, r request, v interface{}) (*envelope, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverErrorFrom(resp, r)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(r.kind, r.op(), fmt.Errorf("failed to read response: %w", err))
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		return nil, newTransportError(r.kind, r.op(), ErrNotLoggedIn)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newTransportError(r.kind, r.op(), fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	if (env.Success != nil && !*env.Success) || env.Error != "" {
		return nil, newServerError(r.kind, r.op(), resp.StatusCode, env.Error)
	}

	if v != nil {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, newTransportError(r.kind, r.op(), fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}
	}

	return &env, nil
}

// serverErrorFrom reads a failed response body for the server's message.
func serverErrorFrom(resp *nethttp.Response, r request) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, constants.MaxErrorBodyBytes))

	var env envelope
	message := ""
	if err := json.Unmarshal(data, &env); err == nil {
		message = env.Error
		if message == "" {
			message = env.Message
		}
	} else if !isHTML(resp.Header.Get("Content-Type")) {
		// Some endpoints answer with a short plain-text reason.
		text := strings.TrimSpace(string(data))
		if len(text) <= 200 && !strings.ContainsAny(text, "<>") {
			message = text
		}
	}

	return newServerError(r.kind, r.op(), resp.StatusCode, message)
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

// storedCookie is the on-disk form of a session cookie.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *Client) loadSession() error {
	if c.sessionFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.sessionFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	cookies := make([]*nethttp.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &nethttp.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

func (c *Client) saveSession() error {
	if c.sessionFile == "" {
		return nil
	}

	cookies := c.jar.Cookies(c.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.sessionFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	// CreateTemp gives every write its own 0600 file.
	tmp, err := os.CreateTemp(dir, filepath.Base(c.sessionFile)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.sessionFile); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// HasSession reports whether any session cookie is held for the server.
func (c *Client) HasSession() bool {
	return len(c.jar.Cookies(c.base)) > 0
}

// ClearSession drops all cookies, the cached token and the session file.
func (c *Client) ClearSession() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	c.jar = jar
	c.httpClient.Jar = jar
	c.resetCSRFToken()

	if c.sessionFile == "" {
		return nil
	}
	if err := os.Remove(c.sessionFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
