package utils

import "strings"

// SniffLocale extracts the locale segment from a page path like /en/profile.
// Paths without a recognized segment fall back to the default locale.
func SniffLocale(path string, supported []string, fallback string) string {
	trimmed := strings.TrimPrefix(path, "/")
	segment, _, _ := strings.Cut(trimmed, "/")
	for _, loc := range supported {
		if segment == loc {
			return loc
		}
	}
	return fallback
}

// LocalizePath prepends the locale segment to target unless it already
// starts with a supported locale.
func LocalizePath(target, locale string, supported []string) string {
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	for _, loc := range supported {
		if target == "/"+loc || strings.HasPrefix(target, "/"+loc+"/") {
			return target
		}
	}
	return "/" + locale + target
}

// LoginPath returns the locale-aware login path for the page the user is
// currently on.
func LoginPath(currentPath string, supported []string, fallback string) string {
	locale := SniffLocale(currentPath, supported, fallback)
	return "/" + locale + "/login"
}
