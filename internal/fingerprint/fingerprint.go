// Package fingerprint canonicalises submitted URLs and derives the stable
// identifiers (fingerprint, domain) every other component keys off of.
// It performs no I/O.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when the input is not an absolute http/https URL.
var ErrInvalidURL = errors.New("invalid url")

// Result holds the canonical form of a URL plus its derived identifiers.
type Result struct {
	Canonical   string
	Fingerprint string
	Domain      string
}

// Canonicalise lowercases the scheme and host, strips a leading "www.",
// drops the fragment, and keeps the query string. It is idempotent:
// Canonicalise(Canonicalise(u)) == Canonicalise(u).
func Canonicalise(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidURL
	}
	if u.Host == "" {
		return "", ErrInvalidURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Fragment = ""

	return u.String(), nil
}

// Domain extracts the registrable domain from an already-canonical URL:
// the lowercased host with any leading "www." stripped.
func Domain(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host, nil
}

// Hash returns the hex-encoded SHA-256 digest of the canonical string.
func Hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Compute canonicalises raw, then derives its fingerprint and domain in one
// step. It is the entry point used by the API surface and the submission
// path.
func Compute(raw string) (Result, error) {
	canonical, err := Canonicalise(raw)
	if err != nil {
		return Result{}, err
	}
	domain, err := Domain(canonical)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Canonical:   canonical,
		Fingerprint: Hash(canonical),
		Domain:      domain,
	}, nil
}
