package engines

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// captioned wraps an engine and fills in a missing caption from the title
// of the best match's page.
type captioned struct {
	Engine
	client *http.Client
}

// WithCaptions returns e decorated with page-title caption enrichment.
// Enrichment runs inside the engine's own invocation, so it shares the
// engine's deadline.
func WithCaptions(e Engine, client *http.Client) Engine {
	if client == nil {
		client = newHTTPClient(0)
	}
	return &captioned{Engine: e, client: client}
}

// Baseline forwards to the wrapped engine when it has one.
func (c *captioned) Baseline(ref string) *SearchResult {
	if b, ok := c.Engine.(Baseliner); ok {
		return b.Baseline(ref)
	}
	r := NewResult(c.Tag(), "")
	r.Fail("%s: no baseline available", c.Name())
	return r
}

func (c *captioned) Search(ctx context.Context, ref string) *SearchResult {
	r := c.Engine.Search(ctx, ref)
	if r == nil || r.Fallback || !r.HasURL() || r.Caption != "" || r.Similarity == nil {
		return r
	}

	title, err := c.pageTitle(ctx, r.URL)
	if err != nil {
		slog.Debug("caption enrichment failed", "engine", c.Name(), "url", r.URL, "error", err)
		r.AddDiagnostic("caption lookup failed: %v", err)
		return r
	}
	if title != "" {
		r.Caption = title
		r.AddDiagnostic("caption from page title")
	}
	return r
}

func (c *captioned) pageTitle(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	body, _, err := httpGet(ctx, c.client, c.Name(), pageURL, "text/html", "")
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.Title), nil
}
