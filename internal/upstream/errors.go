package upstream

import (
	"errors"
	"net/http"
)

// Backend auth error codes that indicate a dead credential.
const (
	codeTokenInvalid = 2000
	codeTokenExpired = 2001
	codeTokenRevoked = 2002
)

// Error is a failed backend call. Message is human-readable and is shown
// directly in UI error banners.
type Error struct {
	Status  int
	Code    int
	Message string
	TraceID string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// IsAuthError reports whether err means the bearer credential is invalid
// or expired.
func IsAuthError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusUnauthorized {
		return true
	}
	switch apiErr.Code {
	case codeTokenInvalid, codeTokenExpired, codeTokenRevoked:
		return true
	}
	return false
}

// UserMessage extracts the banner text for err. Non-upstream errors get a
// generic message so internals never leak to the UI.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "service temporarily unavailable"
}
