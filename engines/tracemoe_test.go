package engines

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestTraceMoe(serverURL string) *TraceMoeEngine {
	e := NewTraceMoeEngine(5 * time.Second)
	e.endpoint = serverURL
	return e
}

func traceMoeServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "http://example.com/frame.jpg" {
			t.Errorf("expected url param, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const testFrame = "http://example.com/frame.jpg"

func TestTraceMoeEngine_Search_Success(t *testing.T) {
	body := `{"frameCount": 1000, "error": "", "result": [
	  {"anilist": 21034, "filename": "Gochuumon wa Usagi Desuka 2 - 01.mp4", "episode": 1, "from": 1.5, "to": 2.5, "similarity": 0.87},
	  {"anilist": 99, "filename": "Other.mp4", "episode": "2-3", "similarity": 0.5}
	]}`
	server := traceMoeServer(t, http.StatusOK, body)

	r := newTestTraceMoe(server.URL).Search(context.Background(), testFrame)
	if r.Fallback {
		t.Fatalf("unexpected fallback: %v", r.Diagnostics)
	}
	if r.URL != "https://anilist.co/anime/21034" {
		t.Errorf("expected anilist URL, got %q", r.URL)
	}
	if r.Similarity == nil || math.Abs(*r.Similarity-87.0) > 1e-9 {
		t.Errorf("expected similarity 87.0, got %v", r.Similarity)
	}
	if r.Caption != "Gochuumon wa Usagi Desuka 2 - 01.mp4 (episode 1)" {
		t.Errorf("unexpected caption %q", r.Caption)
	}
	if len(r.Extended) != 2 {
		t.Fatalf("expected 2 extended results, got %d", len(r.Extended))
	}
	if r.Extended[1].URL != "https://anilist.co/anime/99" {
		t.Errorf("expected backend order to be kept, got %q", r.Extended[1].URL)
	}
	if r.Extended[1].Caption != "Other.mp4 (episode 2-3)" {
		t.Errorf("unexpected caption %q", r.Extended[1].Caption)
	}
	for _, item := range r.Extended {
		if *item.Similarity < 0 || *item.Similarity > 100 {
			t.Errorf("similarity out of range: %v", *item.Similarity)
		}
	}
}

func TestTraceMoeEngine_Search_NullAndEmptyDiffer(t *testing.T) {
	nullServer := traceMoeServer(t, http.StatusOK, `null`)
	emptyServer := traceMoeServer(t, http.StatusOK, `{"frameCount": 10, "error": "", "result": []}`)

	nullResult := newTestTraceMoe(nullServer.URL).Search(context.Background(), testFrame)
	emptyResult := newTestTraceMoe(emptyServer.URL).Search(context.Background(), testFrame)

	for _, r := range []*SearchResult{nullResult, emptyResult} {
		if !r.Fallback {
			t.Error("expected fallback result")
		}
		if r.URL != traceMoeBasicURL+testFrame {
			t.Errorf("expected baseline URL, got %q", r.URL)
		}
		if len(r.Diagnostics) == 0 {
			t.Fatal("expected a diagnostic")
		}
	}

	if !containsDiagnostic(nullResult, "returned null") {
		t.Errorf("expected null diagnostic, got %v", nullResult.Diagnostics)
	}
	if !containsDiagnostic(emptyResult, "empty result set") {
		t.Errorf("expected empty diagnostic, got %v", emptyResult.Diagnostics)
	}
	if nullResult.Diagnostics[0] == emptyResult.Diagnostics[0] {
		t.Error("null and empty diagnostics should differ")
	}
}

func TestTraceMoeEngine_Search_TransportFailure(t *testing.T) {
	server := traceMoeServer(t, http.StatusBadRequest, `{"error": "Failed to fetch image"}`)

	r := newTestTraceMoe(server.URL).Search(context.Background(), testFrame)
	if !r.Fallback {
		t.Error("expected fallback result")
	}
	if !containsDiagnostic(r, "returned null") || !containsDiagnostic(r, "400") {
		t.Errorf("expected null diagnostic with status code, got %v", r.Diagnostics)
	}
}

func TestTraceMoeEngine_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	e := NewTraceMoeEngine(50 * time.Millisecond)
	e.endpoint = server.URL

	r := e.Search(context.Background(), testFrame)
	if !r.Fallback {
		t.Error("expected fallback result")
	}
	if !containsDiagnostic(r, "timed out") {
		t.Errorf("expected timeout diagnostic, got %v", r.Diagnostics)
	}
}

func TestTraceMoeEngine_Search_ConversionFailure(t *testing.T) {
	server := traceMoeServer(t, http.StatusOK, `{"result": [{"anilist": 0, "filename": "x.mp4", "similarity": 0.9}]}`)

	r := newTestTraceMoe(server.URL).Search(context.Background(), testFrame)
	if !r.Fallback {
		t.Error("expected fallback result")
	}
	if r.URL != traceMoeBasicURL+testFrame {
		t.Errorf("expected baseline URL, got %q", r.URL)
	}
	if !containsDiagnostic(r, "no anilist id") {
		t.Errorf("expected conversion diagnostic, got %v", r.Diagnostics)
	}
	for _, d := range r.Diagnostics {
		if strings.Contains(d, "empty result set") || strings.Contains(d, "returned null") {
			t.Errorf("conversion failure reported as %q", d)
		}
	}
}
