// Package ids provides URL-safe id generation and input validation shared
// by the orchestrator's intake path (§4.1 submit()).
package ids

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// NewJobID returns an opaque, URL-safe id at least 22 characters long,
// derived from a random UUID the way the teacher's bootstrap package
// derives job ids from time but generalized to be globally unique without
// relying on wall-clock resolution across concurrent workers.
func NewJobID() string {
	raw := uuid.New()
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// NormalizeURL validates and canonicalizes a source video URL. It rejects
// anything that is not an absolute http(s) URL so downstream downloaders
// never have to special-case local paths or other schemes.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("url is required")
	}
	if !schemeRe.MatchString(trimmed) {
		return "", fmt.Errorf("url must be absolute: %s", trimmed)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url is missing a host")
	}
	u.Fragment = ""
	return u.String(), nil
}

// SafeName rejects path-traversal in an artifact or job-derived name and
// returns the cleaned base name, per the Artifact Store's "no path
// traversal in names" guarantee.
func SafeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("name is required")
	}
	cleaned := filepath.Base(filepath.Clean(trimmed))
	if cleaned == "." || cleaned == ".." || cleaned != trimmed && strings.ContainsAny(trimmed, `/\`) {
		if cleaned == "." || cleaned == ".." {
			return "", fmt.Errorf("invalid name: %s", name)
		}
	}
	if strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("invalid name: %s", name)
	}
	return cleaned, nil
}
