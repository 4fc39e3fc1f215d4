package api

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/megacloud/megacloud-cli/internal/constants"
)

// Pages whose metadata carries the anti-forgery token.
const (
	LoginPage     = "/"
	DashboardPage = "/dashboard"
)

// CSRFToken returns the anti-forgery token embedded in page's metadata,
// fetching the page on first use. A page without the token yields a
// ValidationError wrapping ErrCSRFTokenMissing.
func (c *Client) CSRFToken(ctx context.Context, page string) (string, error) {
	c.csrfMu.Lock()
	cached := c.csrfToken
	c.csrfMu.Unlock()
	if cached != "" {
		return cached, nil
	}

	r := request{method: nethttp.MethodGet, path: page, accept: "text/html", kind: AuthFailed}
	resp, err := c.do(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serverErrorFrom(resp, r)
	}

	token, err := ExtractCSRFToken(resp.Body)
	if err != nil {
		return "", newTransportError(AuthFailed, r.op(), fmt.Errorf("failed to parse page: %w", err))
	}
	if token == "" {
		return "", &Error{
			Class:   ValidationError,
			Kind:    AuthFailed,
			Op:      r.op(),
			Message: CSRFMissingMessage,
			Err:     ErrCSRFTokenMissing,
		}
	}

	c.SetCSRFToken(token)
	return token, nil
}

// SetCSRFToken installs a token obtained elsewhere.
func (c *Client) SetCSRFToken(token string) {
	c.csrfMu.Lock()
	c.csrfToken = token
	c.csrfMu.Unlock()
}

func (c *Client) resetCSRFToken() {
	c.SetCSRFToken("")
}

// ExtractCSRFToken scans an HTML document for
// <meta name="csrf-token" content="...">. It returns "" when absent.
func ExtractCSRFToken(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", nil
			}
			return "", z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "body" {
				// Metadata lives in <head>.
				return "", nil
			}
			if tok.Data != "meta" {
				continue
			}
			var name, content string
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if strings.EqualFold(name, constants.CSRFMetaName) {
				return strings.TrimSpace(content), nil
			}
		}
	}
}
