package utils

import "strings"

// SafeRedirectPath validates a post-login redirect target. Only same-site
// relative paths are allowed; anything that could leave the site (absolute
// URLs, scheme-relative //host paths, backslash tricks) falls back.
func SafeRedirectPath(next, fallback string) string {
	if next == "" {
		return fallback
	}
	if !strings.HasPrefix(next, "/") {
		return fallback
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	if strings.ContainsAny(next, "\r\n") {
		return fallback
	}
	if strings.Contains(next, "://") {
		return fallback
	}
	return next
}
