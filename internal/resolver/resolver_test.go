package resolver

import "testing"

func newTestResolver() *YouTubeResolver {
	return &YouTubeResolver{
		languages:       map[string]bool{"en": true, "de": true},
		defaultLanguage: "en",
	}
}

func TestNormalizeLanguage(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		hint string
		want string
	}{
		{"en", "en"},
		{"de", "de"},
		{"DE", "de"},
		{" en ", "en"},
		{"fr", "en"},
		{"english", "en"},
		{"", "en"},
		{"de-AT", "en"},
	}

	for _, tt := range tests {
		if got := r.NormalizeLanguage(tt.hint); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.hint, got, tt.want)
		}
	}
}
