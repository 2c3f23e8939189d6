package server

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker validates the Origin header on websocket upgrades against
// a configured allowlist. Requests without an Origin header (non-browser
// clients) are allowed; the session gate still stands between them and
// the registry.
type OriginChecker struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewOriginChecker(origins []string) *OriginChecker {
	checker := &OriginChecker{
		allowed: make(map[string]struct{}),
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			checker.allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(trimmed); ok {
			checker.allowed[normalized] = struct{}{}
		}
	}

	return checker
}

func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if c.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}

	_, allowed := c.allowed[normalized]
	return allowed
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
