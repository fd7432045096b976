package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieCodec mints and validates the signed session cookie. The cookie
// carries only the session ID; the credential itself never reaches the
// browser.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewCookieCodec creates a codec signing with the given secret.
func NewCookieCodec(secret string, ttl time.Duration) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), ttl: ttl}
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// Mint signs a cookie value for the session ID.
func (c *CookieCodec) Mint(sessionID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Parse validates a cookie value and returns the session ID. Any invalid
// or expired cookie is an error; callers respond by minting a fresh
// anonymous session.
func (c *CookieCodec) Parse(value string) (string, error) {
	token, err := jwt.Parse(value, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session cookie: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid session cookie")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid session cookie claims")
	}

	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("session cookie missing sid")
	}
	return sid, nil
}

// TTL returns the cookie lifetime.
func (c *CookieCodec) TTL() time.Duration {
	return c.ttl
}
