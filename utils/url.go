package utils

import "strings"

// SafeCallbackPath sanitizes a post-login callback target. Only same-origin
// relative paths survive; absolute URLs, scheme-relative URLs ("//evil.com")
// and anything that does not start with "/" are rejected so the login
// redirect can never be turned into an open redirect.
func SafeCallbackPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		return ""
	}
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return ""
	}
	if strings.ContainsAny(path, "\r\n") {
		return ""
	}
	return path
}
