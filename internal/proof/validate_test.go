package proof

import (
	"errors"
	"strings"
	"testing"

	"github.com/rankproof/rankproof/internal/apperrors"
)

func TestValidateDomainAccepts(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme.com", "acme.com"},
		{"ACME.COM", "acme.com"},
		{"  acme.com  ", "acme.com"},
		{"shop.acme-plumbing.co", "shop.acme-plumbing.co"},
		{"a.io", "a.io"},
	}
	for _, tc := range cases {
		got, err := ValidateDomain(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestValidateDomainRejects(t *testing.T) {
	cases := []string{
		"",
		"localhost",     // single label
		"acme.c",        // TLD too short
		"acme.c0m",      // TLD not alphabetic
		"acme..com",     // empty label
		".com",          // empty first label
		"ab",            // too short
		strings.Repeat("a", 250) + ".com", // too long
	}
	for _, tc := range cases {
		if _, err := ValidateDomain(tc); err == nil {
			t.Fatalf("%q: expected validation error", tc)
		} else if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", tc, err)
		}
	}
}

func TestSanitizeStripsUnsafeCharacters(t *testing.T) {
	got := Sanitize(`<script>alert('x')&"done"</script>`)
	for _, c := range []string{"<", ">", "'", `"`, "&"} {
		if strings.Contains(got, c) {
			t.Fatalf("sanitized value still contains %q: %q", c, got)
		}
	}
	if got != "scriptalert(x)done/script" {
		t.Fatalf("unexpected sanitized output: %q", got)
	}
}

func TestValidateKeyword(t *testing.T) {
	if _, err := ValidateKeyword("a"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("one-character keyword should be rejected")
	}
	if _, err := ValidateKeyword("  x "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("keyword shorter than 2 after trim should be rejected")
	}
	if _, err := ValidateKeyword(strings.Repeat("k", 101)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("keyword longer than 100 should be rejected")
	}

	got, err := ValidateKeyword("  emergency plumber  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "emergency plumber" {
		t.Fatalf("expected trimmed keyword, got %q", got)
	}
}

func TestValidateRequestAllOrNothing(t *testing.T) {
	if _, _, err := ValidateRequest("acme.com", "x"); err == nil {
		t.Fatalf("bad keyword should reject the whole request")
	}
	if _, _, err := ValidateRequest("bad", "emergency plumber"); err == nil {
		t.Fatalf("bad domain should reject the whole request")
	}

	domain, keyword, err := ValidateRequest("Acme.COM", " emergency plumber ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "acme.com" || keyword != "emergency plumber" {
		t.Fatalf("unexpected normalization: %q / %q", domain, keyword)
	}
}
