package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgsx/engines"
)

func TestValidateReference(t *testing.T) {
	local := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(local, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ref     string
		wantErr error
	}{
		{"http://example.com/img.png", nil},
		{"https://example.com/a b.jpg?x=1&y=2", nil},
		{"not a url but passed through", nil},
		{"", errEmptyReference},
		{"   ", errEmptyReference},
		{local, errLocalFile},
		{"file:///tmp/cat.png", errLocalFile},
	}
	for _, tt := range tests {
		err := validateReference(tt.ref)
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("validateReference(%q) = %v, want nil", tt.ref, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("validateReference(%q) = %v, want %v", tt.ref, err, tt.wantErr)
		}
	}
}

func TestFilterPriority(t *testing.T) {
	tests := []struct {
		priority []string
		enabled  []string
		want     []string
	}{
		{[]string{"SauceNao"}, []string{"Bing", "Yandex"}, nil},
		{[]string{"SauceNao", "Iqdb"}, []string{"iqdb", "saucenao"}, []string{"SauceNao", "Iqdb"}},
		{[]string{"TraceMoe"}, []string{"All"}, []string{"TraceMoe"}},
	}
	for _, tt := range tests {
		got, err := filterPriority(tt.priority, tt.enabled)
		if err != nil {
			t.Fatalf("filterPriority(%v, %v) failed: %v", tt.priority, tt.enabled, err)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("filterPriority(%v, %v) = %v, want %v", tt.priority, tt.enabled, got, tt.want)
		}
	}

	if _, err := filterPriority(nil, []string{"Altavista"}); err == nil {
		t.Error("expected error for an unknown engine")
	}
}

func TestPerformSearch_RedirectEngines(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.SearchEngines = []string{"Bing", "GoogleImages"}
	cfg.PriorityEngines = []string{"GoogleImages"}

	ref := "http://example.com/img.png"
	outcomes, err := performSearch(context.Background(), ref, cfg)
	if err != nil {
		t.Fatalf("performSearch failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Engine != engines.GoogleImages || !outcomes[0].Priority {
		t.Errorf("expected GoogleImages first as priority, got %v", outcomes[0].Engine)
	}
	for _, o := range outcomes {
		if !strings.HasSuffix(o.Result.URL, ref) {
			t.Errorf("%s: expected redirect URL ending in the reference, got %q", o.Name, o.Result.URL)
		}
	}
}

func TestPerformSearch_Errors(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.SearchEngines = []string{"Bing"}
	cfg.PriorityEngines = nil

	if _, err := performSearch(context.Background(), "", cfg); !errors.Is(err, errEmptyReference) {
		t.Errorf("expected errEmptyReference, got %v", err)
	}

	cfg.SearchEngines = nil
	if _, err := performSearch(context.Background(), "http://example.com/img.png", cfg); !errors.Is(err, engines.ErrNoEngines) {
		t.Errorf("expected ErrNoEngines, got %v", err)
	}
}
