package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	nethttp "net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/mimetype"
	"github.com/megacloud/megacloud-cli/internal/models"
)

type listResponse struct {
	Files       []models.FileRecord            `json:"files"`
	Categorized map[string][]models.FileRecord `json:"categorized"`
}

// ListFiles fetches the full listing with the server's category partition.
func (c *Client) ListFiles(ctx context.Context) (models.DirectoryView, error) {
	var resp listResponse
	_, err := c.doJSON(ctx, request{
		method: nethttp.MethodGet,
		path:   "/list_files",
		kind:   DirectoryUnavailable,
	}, &resp)
	if err != nil {
		return models.DirectoryView{}, err
	}

	categorized := make(map[models.Category][]models.FileRecord, len(resp.Categorized))
	for name, recs := range resp.Categorized {
		cat := models.ParseCategory(name)
		categorized[cat] = append(categorized[cat], recs...)
	}

	return models.NewDirectoryView(resp.Files, categorized), nil
}

// SearchFiles runs a server-side search. The query is URL-escaped here.
func (c *Client) SearchFiles(ctx context.Context, query string) ([]models.FileRecord, error) {
	var resp listResponse
	_, err := c.doJSON(ctx, request{
		method: nethttp.MethodGet,
		path:   "/search_files?query=" + url.QueryEscape(query),
		kind:   DirectoryUnavailable,
	}, &resp)
	if err != nil {
		return nil, WithKind(err, DirectoryUnavailable, "Failed to search files.")
	}
	if resp.Files == nil {
		resp.Files = []models.FileRecord{}
	}
	return resp.Files, nil
}

type statsResponse struct {
	StorageUsed *float64 `json:"storage_used"`
	TotalFiles  *int     `json:"total_files"`
	TotalSizeMB *float64 `json:"total_size_mb"`
}

// Stats fetches aggregate usage. Every numeric field must be present.
func (c *Client) Stats(ctx context.Context) (models.StatsSnapshot, error) {
	r := request{method: nethttp.MethodGet, path: "/stats", kind: StatsUnavailable}

	var resp statsResponse
	if _, err := c.doJSON(ctx, r, &resp); err != nil {
		return models.StatsSnapshot{}, err
	}

	var missing []string
	if resp.StorageUsed == nil {
		missing = append(missing, "storage_used")
	}
	if resp.TotalFiles == nil {
		missing = append(missing, "total_files")
	}
	if resp.TotalSizeMB == nil {
		missing = append(missing, "total_size_mb")
	}
	if len(missing) > 0 {
		return models.StatsSnapshot{}, newTransportError(StatsUnavailable, r.op(),
			fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", ")))
	}

	return models.StatsSnapshot{
		StorageUsedMB:   *resp.StorageUsed,
		TotalFiles:      *resp.TotalFiles,
		TotalCapacityMB: *resp.TotalSizeMB,
	}, nil
}

// UploadResult is the server's answer to a successful upload.
type UploadResult struct {
	Message  string  `json:"message"`
	Filename string  `json:"filename"`
	SizeMB   float64 `json:"size_mb"`
}

// Upload sends one file as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filename,
	}))
	header.Set("Content-Type", mimetype.FromName(filename))

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, newTransportError(UploadFailed, "POST /upload", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, newTransportError(UploadFailed, "POST /upload", fmt.Errorf("failed to read %s: %w", filename, err))
	}
	if err := mw.Close(); err != nil {
		return nil, newTransportError(UploadFailed, "POST /upload", err)
	}

	var result UploadResult
	_, err = c.doJSON(ctx, request{
		method:      nethttp.MethodPost,
		path:        "/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		kind:        UploadFailed,
		csrfPage:    DashboardPage,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Payload is a binary response body.
type Payload struct {
	Data        []byte
	ContentType string // as sent, or application/octet-stream
	Filename    string // from Content-Disposition, may be empty
}

// Download fetches a file's bytes.
func (c *Client) Download(ctx context.Context, fileID string) (*Payload, error) {
	return c.fetchBinary(ctx, request{
		method: nethttp.MethodGet,
		path:   "/download/" + url.PathEscape(fileID),
		accept: "*/*",
		kind:   DownloadFailed,
	})
}

// Preview fetches a file's bytes for inline display.
func (c *Client) Preview(ctx context.Context, fileID string) (*Payload, error) {
	return c.fetchBinary(ctx, request{
		method: nethttp.MethodGet,
		path:   "/preview/" + url.PathEscape(fileID),
		accept: "*/*",
		kind:   PreviewError,
	})
}

func (c *Client) fetchBinary(ctx context.Context, r request) (*Payload, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverErrorFrom(resp, r)
	}
	if isHTML(resp.Header.Get("Content-Type")) && resp.Request != nil && resp.Request.URL.Path == LoginPage {
		// Redirected to the login page.
		return nil, newTransportError(r.kind, r.op(), ErrNotLoggedIn)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(r.kind, r.op(), fmt.Errorf("failed to read body: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = constants.DefaultMIMEType
	}

	var filename string
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			filename = params["filename"]
		}
	}

	return &Payload{Data: data, ContentType: contentType, Filename: filename}, nil
}

// Delete removes a file and returns the server's confirmation message.
func (c *Client) Delete(ctx context.Context, fileID string) (string, error) {
	env, err := c.doJSON(ctx, request{
		method:   nethttp.MethodDelete,
		path:     "/delete/" + url.PathEscape(fileID),
		kind:     DeleteFailed,
		csrfPage: DashboardPage,
	}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// CleanupPreview asks the server to drop its staged preview copy.
// Failures are BestEffortFailure and are never retried.
func (c *Client) CleanupPreview(ctx context.Context, filename string) error {
	return c.cleanup(ctx, "/cleanup_preview/"+url.PathEscape(filename))
}

// CleanupDownload asks the server to drop its staged download copy.
func (c *Client) CleanupDownload(ctx context.Context, filename string) error {
	return c.cleanup(ctx, "/cleanup_download/"+url.PathEscape(filename))
}

func (c *Client) cleanup(ctx context.Context, path string) error {
	_, err := c.doJSON(ctx, request{
		method:   nethttp.MethodPost,
		path:     path,
		kind:     CleanupFailed,
		csrfPage: DashboardPage,
	}, nil)
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		cp := *e
		cp.Class = BestEffortFailure
		return &cp
	}
	return &Error{Class: BestEffortFailure, Kind: CleanupFailed, Op: "POST " + path, Err: err}
}
