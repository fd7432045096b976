package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
	"github.com/youthloop/webgate/internal/session"
)

func TestHubReturnsSameCenterPerSession(t *testing.T) {
	store := &staticStore{cred: domain.Credential{AccessToken: "tok"}}
	hub := NewHub(&fakeService{}, store, 20, zap.NewNop())
	mgr := session.NewManager("session-1", store, stubProfiles{}, zap.NewNop())

	first := hub.Center(mgr)
	second := hub.Center(mgr)

	assert.Same(t, first, second)
	assert.Equal(t, 1, hub.Len())
}

func TestHubDrop(t *testing.T) {
	store := &staticStore{cred: domain.Credential{AccessToken: "tok"}}
	hub := NewHub(&fakeService{}, store, 20, zap.NewNop())
	mgr := session.NewManager("session-1", store, stubProfiles{}, zap.NewNop())
	hub.Center(mgr)

	hub.Drop("session-1")

	assert.Zero(t, hub.Len())
}

func TestSweepDropsCentersWithManagers(t *testing.T) {
	store := &staticStore{err: session.ErrNoCredential}
	registry := session.NewRegistry(store, stubProfiles{}, time.Minute, zap.NewNop())
	hub := NewHub(&fakeService{}, store, 20, zap.NewNop())

	for _, sid := range []string{"s1", "s2", "s3"} {
		hub.Center(registry.Manager(sid))
	}
	require.Equal(t, 3, registry.Len())
	require.Equal(t, 3, hub.Len())

	for _, sid := range registry.Sweep(time.Now().Add(2 * time.Minute)) {
		hub.Drop(sid)
	}

	assert.Zero(t, registry.Len())
	assert.Zero(t, hub.Len(), "an expired session must not leave its notification center behind")
}
