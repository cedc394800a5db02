package store

import "testing"

func TestMatchesPatternExact(t *testing.T) {
	if !matchesPattern("evil.com", "evil.com") {
		t.Error("exact match should match")
	}
	if matchesPattern("notevil.com", "evil.com") {
		t.Error("unrelated domain should not match")
	}
}

func TestMatchesPatternLike(t *testing.T) {
	cases := []struct {
		domain, pattern string
		want            bool
	}{
		{"sub.evil.com", "%.evil.com", true},
		{"evil.com", "%.evil.com", false},
		{"badsite1.net", "badsite_.net", true},
		{"badsite12.net", "badsite_.net", false},
		{"example.com", "example.%", true},
	}
	for _, c := range cases {
		if got := matchesPattern(c.domain, c.pattern); got != c.want {
			t.Errorf("matchesPattern(%q, %q) = %v, want %v", c.domain, c.pattern, got, c.want)
		}
	}
}
