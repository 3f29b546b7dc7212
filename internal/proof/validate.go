// Package proof implements the proof score pipeline.
package proof

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"github.com/rankproof/rankproof/internal/apperrors"
)

const (
	minDomainLength  = 3
	maxDomainLength  = 253
	minKeywordLength = 2
	maxKeywordLength = 100
)

// sanitizeReplacer strips characters that must never reach storage,
// prompts, or logs.
var sanitizeReplacer = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "", "&", "")

// Sanitize removes unsafe characters from a user-supplied field.
func Sanitize(s string) string {
	return sanitizeReplacer.Replace(s)
}

// ValidateDomain sanitizes and validates a hostname. The grammar requires
// at least two dot-separated labels, a final label that is alphabetic with
// length >= 2, and a total length of 3-253. Unicode hostnames are
// normalized to ASCII before the grammar check.
func ValidateDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(Sanitize(raw)))
	if ascii, err := idna.ToASCII(domain); err == nil {
		domain = ascii
	}

	if len(domain) < minDomainLength || len(domain) > maxDomainLength {
		return "", fmt.Errorf("%w: domain must be %d-%d characters", apperrors.ErrInvalidInput, minDomainLength, maxDomainLength)
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("%w: domain must contain at least two labels", apperrors.ErrInvalidInput)
	}
	for _, label := range labels {
		if label == "" {
			return "", fmt.Errorf("%w: domain contains an empty label", apperrors.ErrInvalidInput)
		}
	}

	tld := labels[len(labels)-1]
	if len(tld) < 2 || !isAlphabetic(tld) {
		return "", fmt.Errorf("%w: domain must end in an alphabetic top-level label of at least two characters", apperrors.ErrInvalidInput)
	}

	return domain, nil
}

// ValidateKeyword sanitizes and validates a keyword: trimmed length 2-100.
func ValidateKeyword(raw string) (string, error) {
	keyword := strings.TrimSpace(Sanitize(raw))
	if len(keyword) < minKeywordLength || len(keyword) > maxKeywordLength {
		return "", fmt.Errorf("%w: keyword must be %d-%d characters", apperrors.ErrInvalidInput, minKeywordLength, maxKeywordLength)
	}
	return keyword, nil
}

// ValidateRequest validates both fields. Validation is all-or-nothing:
// any failure rejects the request before anything downstream sees it.
func ValidateRequest(domain, keyword string) (string, string, error) {
	cleanDomain, err := ValidateDomain(domain)
	if err != nil {
		return "", "", err
	}
	cleanKeyword, err := ValidateKeyword(keyword)
	if err != nil {
		return "", "", err
	}
	return cleanDomain, cleanKeyword, nil
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
