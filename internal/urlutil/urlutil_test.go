package urlutil

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"removes default https port", "https://example.com:443/a", "https://example.com/a"},
		{"removes default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps explicit port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"sorts query parameters", "https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
		{"decodes unreserved escapes", "https://example.com/%7Euser", "https://example.com/~user"},
		{"keeps trailing slash", "https://example.com/a/", "https://example.com/a/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.COM:443/Path?b=2&a=1#frag",
		"http://example.com/%7Euser/",
		"https://sub.example.co.uk/a?z=1&y=2",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: first %q, second %q", once, twice)
		}
	}
}

func TestNormalizeRejectsRelative(t *testing.T) {
	if _, err := Normalize("/just/a/path"); err == nil {
		t.Error("expected error for relative URL")
	}
	if _, err := Normalize("not a url at all ::"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.example.com", "example.com"},
		{"a.b.example.co.uk", "example.co.uk"},
		{"example.com", "example.com"},
		{"EXAMPLE.COM", "example.com"},
	}
	for _, tt := range tests {
		if got := RegistrableDomain(tt.host); got != tt.want {
			t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestInScope(t *testing.T) {
	seed := "https://example.com/"
	tests := []struct {
		candidate string
		allowSubs bool
		want      bool
	}{
		{"https://example.com/about", false, true},
		{"https://www.example.com/about", false, true},
		{"https://blog.example.com/post", false, false},
		{"https://blog.example.com/post", true, true},
		{"https://other.org/", true, false},
	}
	for _, tt := range tests {
		if got := InScope(seed, tt.candidate, tt.allowSubs); got != tt.want {
			t.Errorf("InScope(%q, %q, %v) = %v, want %v", seed, tt.candidate, tt.allowSubs, got, tt.want)
		}
	}
}

func TestShouldSkip(t *testing.T) {
	skip := []string{
		"https://example.com/logo.png",
		"https://example.com/app.JS",
		"https://example.com/wp-content/uploads/x.html",
		"https://example.com/cdn-cgi/challenge",
		"https://example.com/report.pdf",
	}
	keep := []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/products?id=3",
	}
	for _, u := range skip {
		if !ShouldSkip(u) {
			t.Errorf("ShouldSkip(%q) = false, want true", u)
		}
	}
	for _, u := range keep {
		if ShouldSkip(u) {
			t.Errorf("ShouldSkip(%q) = true, want false", u)
		}
	}
}

func TestStripTracking(t *testing.T) {
	in := "https://other.org/page?utm_source=x&utm_medium=y&id=7&fbclid=abc#top"
	want := "https://other.org/page?id=7"
	if got := StripTracking(in); got != want {
		t.Errorf("StripTracking(%q) = %q, want %q", in, got, want)
	}
}

func TestHashStable(t *testing.T) {
	a := Hash("https://example.com/")
	b := Hash("https://example.com/")
	if a != b {
		t.Error("hash not stable for identical input")
	}
	if Hash("https://example.com/x") == a {
		t.Error("distinct URLs should not collide in a trivial case")
	}
}
