package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youthloop/webgate/internal/domain"
	"github.com/youthloop/webgate/pkg/database"
)

// ErrNoCredential is returned when a session has no stored credential.
var ErrNoCredential = errors.New("no credential stored for session")

// CredentialStore owns the bearer credential of each browser session.
// Presence of a credential is necessary but not sufficient for a logged-in
// session; the manager additionally requires a loaded profile.
type CredentialStore interface {
	// Credential returns the stored credential, or ErrNoCredential.
	Credential(ctx context.Context, sessionID string) (domain.Credential, error)
	// Save persists the credential for the session TTL.
	Save(ctx context.Context, sessionID string, cred domain.Credential) error
	// Clear removes the credential. Clearing an absent credential is not
	// an error.
	Clear(ctx context.Context, sessionID string) error
}

// IsAuthenticated reports whether a credential is stored for the
// session. Presence alone does not make the session logged in; the
// manager additionally requires a loaded profile.
func IsAuthenticated(ctx context.Context, store CredentialStore, sessionID string) bool {
	_, err := store.Credential(ctx, sessionID)
	return err == nil
}

// RedisCredentialStore keeps credentials in Redis so sessions survive
// gateway restarts. The store never inspects credential expiry; a dead
// credential is discovered when a profile fetch fails.
type RedisCredentialStore struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewRedisCredentialStore creates a store with the given session TTL.
func NewRedisCredentialStore(redis *database.Redis, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{redis: redis, ttl: ttl}
}

func credentialKey(sessionID string) string {
	return database.Key("credential", sessionID)
}

// Credential implements CredentialStore.
func (s *RedisCredentialStore) Credential(ctx context.Context, sessionID string) (domain.Credential, error) {
	raw, err := s.redis.Client.Get(ctx, credentialKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Credential{}, ErrNoCredential
		}
		return domain.Credential{}, fmt.Errorf("failed to read credential: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("failed to decode credential: %w", err)
	}
	if cred.Empty() {
		return domain.Credential{}, ErrNoCredential
	}
	return cred, nil
}

// Save implements CredentialStore.
func (s *RedisCredentialStore) Save(ctx context.Context, sessionID string, cred domain.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := s.redis.Client.Set(ctx, credentialKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear implements CredentialStore.
func (s *RedisCredentialStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.redis.Client.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
