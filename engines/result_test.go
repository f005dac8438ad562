package engines

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSearchResult_FullResolution(t *testing.T) {
	r := NewResult(Iqdb, "https://example.com")
	if _, ok := r.FullResolution(); ok {
		t.Error("expected no resolution without dimensions")
	}

	r.Width = intPtr(640)
	if _, ok := r.FullResolution(); ok {
		t.Error("expected no resolution with only a width")
	}

	r.Height = intPtr(480)
	if res, ok := r.FullResolution(); !ok || res != 640*480 {
		t.Errorf("expected %d, got %d (%v)", 640*480, res, ok)
	}
}

func TestSearchResult_AddExtendedResults_Order(t *testing.T) {
	r := NewResult(SauceNao, "")
	r.AddExtendedResults(
		ResultItem{URL: "a", Similarity: floatPtr(50)},
		ResultItem{URL: "unscored"},
		ResultItem{URL: "b", Similarity: floatPtr(90)},
	)
	r.AddExtendedResults(
		ResultItem{URL: "c", Similarity: floatPtr(90)},
		ResultItem{URL: "d", Similarity: floatPtr(70)},
	)

	var got []string
	for _, item := range r.Extended {
		got = append(got, item.URL)
	}
	want := "b c d a unscored"
	if strings.Join(got, " ") != want {
		t.Errorf("expected order %q, got %q", want, strings.Join(got, " "))
	}
	assertNonIncreasing(t, r.Extended)
}

func TestSearchResult_Diagnostics(t *testing.T) {
	r := NewResult(TraceMoe, "")
	r.AddDiagnostic("first %d", 1)
	r.Fail("second")

	if !r.Fallback {
		t.Error("Fail should mark the result as fallback")
	}
	if len(r.Diagnostics) != 2 || r.Diagnostics[0] != "first 1" || r.Diagnostics[1] != "second" {
		t.Errorf("unexpected diagnostics %v", r.Diagnostics)
	}
}

func TestSearchResult_SetBest(t *testing.T) {
	r := NewResult(Iqdb, "")
	item := ResultItem{URL: "u", Similarity: floatPtr(12.5), Caption: "c", Width: intPtr(2), Height: intPtr(3), Source: "s"}
	r.SetBest(item)

	best := r.Best()
	if best.URL != item.URL || *best.Similarity != 12.5 || best.Caption != "c" || *best.Width != 2 || *best.Height != 3 {
		t.Errorf("unexpected best %+v", best)
	}
}

func TestSearchResult_JSON(t *testing.T) {
	r := NewResult(GoogleImages, "https://example.com")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"engine":"GoogleImages"`) {
		t.Errorf("expected engine name in JSON, got %s", s)
	}
	if strings.Contains(s, "similarity") {
		t.Errorf("absent similarity should be omitted, got %s", s)
	}
}
