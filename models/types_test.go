package models

import "testing"

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"french", LanguageFrench, true},
		{"French", LanguageFrench, true},
		{"  Mandarin. ", LanguageMandarin, true},
		{"klingon", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseLanguage(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseLanguage(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLocaleTags(t *testing.T) {
	if got := LanguageFrench.LocaleTag(); got != "fr-FR" {
		t.Fatalf("expected fr-FR, got %q", got)
	}
	if got := LanguageMandarin.ShortCode(); got != "zh" {
		t.Fatalf("expected zh, got %q", got)
	}
	if got := Language("unknown").LocaleTag(); got != "en-US" {
		t.Fatalf("expected en-US fallback, got %q", got)
	}
}
