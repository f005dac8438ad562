package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "imgsx/1.0"
)

// Engine is the interface that all reverse image search engines implement.
type Engine interface {
	// Name returns the display name of the engine
	Name() string

	// Tag returns the identifier used to enable and prioritize the engine
	Tag() Tag

	// Color is a display hint for the presentation layer
	Color() color.Attribute

	// Search looks up the image at ref. Backend failures do not produce an
	// error: the returned result carries the baseline URL and diagnostics
	// describing what went wrong.
	Search(ctx context.Context, ref string) *SearchResult
}

// Baseliner is implemented by engines that can build their redirect result
// without any network access.
type Baseliner interface {
	Baseline(ref string) *SearchResult
}

// Configuration errors. These are the only failures surfaced to callers.
var (
	ErrNoEngines     = errors.New("no search engines enabled")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// EngineError represents an error from a specific engine
type EngineError struct {
	Engine string
	Err    error
	Code   int // HTTP status code or custom error code
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Error codes for engine failures
const (
	ErrCodeInvalidInput    = iota // Empty or unusable image reference
	ErrCodeNetwork                // Network/connectivity issue
	ErrCodeAuth                   // Authentication failure
	ErrCodeRateLimit              // Rate limited
	ErrCodeInvalidResponse        // Invalid/malformed response
	ErrCodeEmpty                  // Backend answered but had nothing usable
)

// Basic is the baseline engine: it builds a search URL by appending the
// image reference to a fixed template. Redirect-only engines are plain
// Basic values; richer engines embed it for their fallback URL.
type Basic struct {
	name     string
	tag      Tag
	color    color.Attribute
	template string
}

// NewBasic creates a redirect engine.
func NewBasic(name string, tag Tag, attr color.Attribute, template string) *Basic {
	return &Basic{name: name, tag: tag, color: attr, template: template}
}

func (b *Basic) Name() string           { return b.name }
func (b *Basic) Tag() Tag               { return b.tag }
func (b *Basic) Color() color.Attribute { return b.color }

// Template returns the URL prefix the image reference is appended to.
func (b *Basic) Template() string { return b.template }

// Baseline returns the redirect result for ref. The reference is appended
// verbatim.
func (b *Basic) Baseline(ref string) *SearchResult {
	if strings.TrimSpace(ref) == "" {
		r := NewResult(b.tag, "")
		err := &EngineError{Engine: b.name, Err: errors.New("invalid input: empty image reference"), Code: ErrCodeInvalidInput}
		r.Fail("%v", err)
		return r
	}
	return NewResult(b.tag, b.template+ref)
}

// Search returns the baseline result.
func (b *Basic) Search(_ context.Context, ref string) *SearchResult {
	return b.Baseline(ref)
}

// fallback builds the baseline result and records err on it.
func (b *Basic) fallback(ref string, err error) *SearchResult {
	r := b.Baseline(ref)
	if err != nil {
		r.Fail("%v", err)
	}
	return r
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// httpGet performs a GET request and returns the body of a 200 response.
// The status code is returned even on failure so callers can report it.
func httpGet(ctx context.Context, client *http.Client, engine, reqURL, accept, userAgent string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &EngineError{
			Engine: engine,
			Err:    fmt.Errorf("failed to create request: %v", err),
			Code:   ErrCodeNetwork,
		}
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, &EngineError{
			Engine: engine,
			Err:    fmt.Errorf("request failed: %w", err),
			Code:   ErrCodeNetwork,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &EngineError{
			Engine: engine,
			Err:    fmt.Errorf("failed to read response: %v", err),
			Code:   ErrCodeInvalidResponse,
		}
	}

	if resp.StatusCode != http.StatusOK {
		snippet := truncate(strings.TrimSpace(string(body)), 200)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return body, resp.StatusCode, &EngineError{
				Engine: engine,
				Err:    fmt.Errorf("authentication failed: %s", snippet),
				Code:   ErrCodeAuth,
			}
		case http.StatusTooManyRequests:
			return body, resp.StatusCode, &EngineError{
				Engine: engine,
				Err:    fmt.Errorf("rate limited: %s", snippet),
				Code:   ErrCodeRateLimit,
			}
		default:
			return body, resp.StatusCode, &EngineError{
				Engine: engine,
				Err:    fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet),
				Code:   resp.StatusCode,
			}
		}
	}

	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
