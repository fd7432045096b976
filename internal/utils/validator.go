package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	otpRegex   = regexp.MustCompile(`^[0-9]{6}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateOTPCode validates a 6-digit one-time code
func ValidateOTPCode(code string) bool {
	return otpRegex.MatchString(code)
}

// ValidateAccount accepts either an email address or a phone number,
// matching what the login form sends as "account".
func ValidateAccount(account string) bool {
	return ValidateEmail(account) || phoneRegex.MatchString(account)
}

// ValidateNickname enforces the display-name length limits.
func ValidateNickname(nickname string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(nickname))
	return n >= 1 && n <= 30
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
