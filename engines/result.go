package engines

import (
	"fmt"
	"sort"
)

// ResultItem is a single match reported by an engine.
type ResultItem struct {
	URL        string   `json:"url,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
	Caption    string   `json:"caption,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	Source     string   `json:"source,omitempty"` // backend origin label, cosmetic only
}

// FullResolution returns width*height when both are known.
func (r ResultItem) FullResolution() (int, bool) {
	return fullResolution(r.Width, r.Height)
}

// SearchResult is the outcome of one engine invocation.
//
// A result is filled in by the engine that produced it and is not modified
// once Search returns. It always carries either a URL or at least one
// diagnostic explaining why there is none.
type SearchResult struct {
	Engine      Tag          `json:"engine"`
	URL         string       `json:"url,omitempty"`
	Similarity  *float64     `json:"similarity,omitempty"`
	Caption     string       `json:"caption,omitempty"`
	Width       *int         `json:"width,omitempty"`
	Height      *int         `json:"height,omitempty"`
	Extended    []ResultItem `json:"extended,omitempty"`
	Diagnostics []string     `json:"diagnostics,omitempty"`

	// Fallback is set when the engine could not produce its own match and
	// the result only carries the baseline redirect URL.
	Fallback bool `json:"fallback"`
}

// NewResult returns an empty result for the given engine.
func NewResult(tag Tag, url string) *SearchResult {
	return &SearchResult{Engine: tag, URL: url}
}

// FullResolution returns width*height when both are known.
func (r *SearchResult) FullResolution() (int, bool) {
	return fullResolution(r.Width, r.Height)
}

// AddDiagnostic appends a note to the result.
func (r *SearchResult) AddDiagnostic(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Fail marks the result as a fallback and records why.
func (r *SearchResult) Fail(format string, args ...any) {
	r.Fallback = true
	r.AddDiagnostic(format, args...)
}

// SetBest copies the fields of item into the top-level best match.
func (r *SearchResult) SetBest(item ResultItem) {
	r.URL = item.URL
	r.Similarity = item.Similarity
	r.Caption = item.Caption
	r.Width = item.Width
	r.Height = item.Height
}

// Best returns the top-level match as an item.
func (r *SearchResult) Best() ResultItem {
	return ResultItem{
		URL:        r.URL,
		Similarity: r.Similarity,
		Caption:    r.Caption,
		Width:      r.Width,
		Height:     r.Height,
	}
}

// AddExtendedResults appends secondary matches. The list stays ordered by
// descending similarity; equal scores keep insertion order and unscored
// items sort after scored ones.
func (r *SearchResult) AddExtendedResults(items ...ResultItem) {
	r.Extended = append(r.Extended, items...)
	sortBySimilarity(r.Extended)
}

// HasURL reports whether the result points anywhere.
func (r *SearchResult) HasURL() bool {
	return r.URL != ""
}

func sortBySimilarity(items []ResultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Similarity, items[j].Similarity
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func fullResolution(w, h *int) (int, bool) {
	if w == nil || h == nil {
		return 0, false
	}
	return *w * *h, true
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }
