package engines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	traceMoeAPI      = "https://api.trace.moe/search"
	traceMoeBasicURL = "https://trace.moe/?url="
	anilistURL       = "https://anilist.co/anime/"
)

// TraceMoeEngine queries the trace.moe anime scene search API.
type TraceMoeEngine struct {
	*Basic
	UserAgent string
	endpoint  string
	client    *http.Client
}

// NewTraceMoeEngine creates a trace.moe engine.
func NewTraceMoeEngine(timeout time.Duration) *TraceMoeEngine {
	return &TraceMoeEngine{
		Basic:    NewBasic("trace.moe", TraceMoe, color.FgCyan, traceMoeBasicURL),
		endpoint: traceMoeAPI,
		client:   newHTTPClient(timeout),
	}
}

type traceMoeResponse struct {
	FrameCount int           `json:"frameCount"`
	Error      string        `json:"error"`
	Result     []traceMoeDoc `json:"result"`
}

type traceMoeDoc struct {
	Anilist    int             `json:"anilist"`
	Filename   string          `json:"filename"`
	Episode    json.RawMessage `json:"episode"` // number, string or list
	From       float64         `json:"from"`
	To         float64         `json:"to"`
	Similarity float64         `json:"similarity"`
	Video      string          `json:"video"`
	Image      string          `json:"image"`
}

// traceMoeCall records how the request went, for the diagnostic written
// when no envelope could be decoded.
type traceMoeCall struct {
	status    int
	transport string
	err       error
}

// Search queries trace.moe. Documents are reported in the order the API
// returns them, which is most similar first.
func (t *TraceMoeEngine) Search(ctx context.Context, ref string) *SearchResult {
	if strings.TrimSpace(ref) == "" {
		return t.Baseline(ref)
	}

	resp, call := t.query(ctx, ref)
	if resp == nil {
		slog.Debug("trace.moe returned no envelope", "status", call.status, "error", call.err)
		r := t.Baseline(ref)
		r.Fail("API: returned null (possible timeout) [%d %s %v]", call.status, call.transport, call.err)
		return r
	}

	if len(resp.Result) == 0 {
		r := t.Baseline(ref)
		if resp.Error != "" {
			r.Fail("API: empty result set (%s)", resp.Error)
		} else {
			r.Fail("API: empty result set")
		}
		return r
	}

	items, err := convertTraceMoe(resp.Result)
	if err != nil {
		slog.Debug("trace.moe conversion failed", "error", err)
		r := t.Baseline(ref)
		r.Fail("%v", err)
		return r
	}

	r := NewResult(t.Tag(), "")
	r.SetBest(items[0])
	r.AddExtendedResults(items...)
	return r
}

func (t *TraceMoeEngine) query(ctx context.Context, ref string) (*traceMoeResponse, traceMoeCall) {
	params := url.Values{}
	params.Set("url", ref)

	body, status, err := httpGet(ctx, t.client, t.Name(), t.endpoint+"?"+params.Encode(), "application/json", t.UserAgent)
	call := traceMoeCall{status: status, transport: transportStatus(ctx, err), err: err}
	if err != nil {
		return nil, call
	}

	var resp *traceMoeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		call.err = &EngineError{Engine: t.Name(), Err: fmt.Errorf("failed to parse JSON: %v", err), Code: ErrCodeInvalidResponse}
		return nil, call
	}
	if resp == nil {
		call.err = &EngineError{Engine: t.Name(), Err: errors.New("null response body"), Code: ErrCodeInvalidResponse}
	}
	return resp, call
}

// convertTraceMoe builds one item per document. A document without an
// anilist id cannot be linked and fails the whole conversion.
func convertTraceMoe(docs []traceMoeDoc) (items []ResultItem, err error) {
	defer func() {
		if p := recover(); p != nil {
			items, err = nil, fmt.Errorf("trace.moe: failed to convert results: %v", p)
		}
	}()

	items = make([]ResultItem, len(docs))
	for i, doc := range docs {
		if doc.Anilist <= 0 {
			return nil, fmt.Errorf("trace.moe: document %d has no anilist id", i)
		}
		items[i] = ResultItem{
			URL:        anilistURL + strconv.Itoa(doc.Anilist),
			Similarity: floatPtr(doc.Similarity * 100),
			Caption:    traceMoeCaption(doc),
			Source:     "AniList",
		}
	}
	return items, nil
}

func traceMoeCaption(doc traceMoeDoc) string {
	episode := strings.Trim(string(doc.Episode), `"`)
	if episode == "" || episode == "null" {
		return doc.Filename
	}
	return fmt.Sprintf("%s (episode %s)", doc.Filename, episode)
}

// transportStatus describes how far the request got.
func transportStatus(ctx context.Context, err error) string {
	var (
		engineErr *EngineError
		netErr    net.Error
	)
	switch {
	case err == nil:
		return "completed"
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timed out"
	case errors.As(err, &engineErr) && engineErr.Code == ErrCodeNetwork:
		return "error"
	default:
		return "completed"
	}
}
