package engines

import (
	"context"
	"testing"
)

func TestRedirectEngines(t *testing.T) {
	ref := "http://example.com/img.png"
	tests := []struct {
		engine *Basic
		tag    Tag
		base   string
	}{
		{NewGoogleImages(), GoogleImages, "http://images.google.com/searchbyimage?image_url="},
		{NewTinEye(), TinEye, tinEyeURL},
		{NewYandex(), Yandex, yandexURL},
		{NewBing(), Bing, bingURL},
		{NewImgOps(), ImgOps, imgOpsURL},
		{NewKarmaDecay(), KarmaDecay, karmaDecayURL},
	}

	for _, tt := range tests {
		t.Run(tt.engine.Name(), func(t *testing.T) {
			if tt.engine.Tag() != tt.tag {
				t.Errorf("expected tag %v, got %v", tt.tag, tt.engine.Tag())
			}

			r := tt.engine.Search(context.Background(), ref)
			if r.URL != tt.base+ref {
				t.Errorf("expected %q, got %q", tt.base+ref, r.URL)
			}
			if r.Similarity != nil || r.Caption != "" || len(r.Extended) != 0 {
				t.Errorf("redirect result should only carry a URL: %+v", r)
			}
			if r.Fallback || len(r.Diagnostics) != 0 {
				t.Errorf("unexpected failure: %v", r.Diagnostics)
			}
		})
	}
}

func TestBasic_Search_EmptyReference(t *testing.T) {
	for _, ref := range []string{"", "   "} {
		r := NewGoogleImages().Search(context.Background(), ref)
		if r.URL != "" {
			t.Errorf("expected no URL for %q, got %q", ref, r.URL)
		}
		if !r.Fallback {
			t.Error("expected fallback result")
		}
		if !containsDiagnostic(r, "invalid input") {
			t.Errorf("expected invalid input diagnostic, got %v", r.Diagnostics)
		}
	}
}

func TestAdapters_EmptyReference(t *testing.T) {
	sn, _ := NewSauceNaoEngine("", 0, 0)
	engines := []Engine{sn, NewTraceMoeEngine(0), NewIqdbEngine(0)}
	for _, e := range engines {
		r := e.Search(context.Background(), "")
		if r.HasURL() || !containsDiagnostic(r, "invalid input") {
			t.Errorf("%s: expected invalid input result, got %+v", e.Name(), r)
		}
	}
}
