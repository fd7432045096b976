package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
)

type fakeStore struct {
	mu     sync.Mutex
	creds  map[string]domain.Credential
	getErr error
	clears int
}

func newFakeStore() *fakeStore {
	return &fakeStore{creds: make(map[string]domain.Credential)}
}

func (s *fakeStore) Credential(_ context.Context, sessionID string) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Credential{}, s.getErr
	}
	cred, ok := s.creds[sessionID]
	if !ok {
		return domain.Credential{}, ErrNoCredential
	}
	return cred, nil
}

func (s *fakeStore) Save(_ context.Context, sessionID string, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[sessionID] = cred
	return nil
}

func (s *fakeStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, sessionID)
	s.clears++
	return nil
}

func (s *fakeStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

type fakeProfiles struct {
	mu         sync.Mutex
	profile    domain.Profile
	getErr     error
	updateErr  error
	getCalls   int
	updates    []domain.ProfilePatch
	blockFetch chan struct{}
}

func (f *fakeProfiles) GetMyProfile(_ context.Context, _ string) (*domain.Profile, error) {
	f.mu.Lock()
	f.getCalls++
	block := f.blockFetch
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	profile := f.profile
	return &profile, nil
}

func (f *fakeProfiles) UpdateMyProfile(_ context.Context, _ string, patch domain.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, patch)
	return f.updateErr
}

func (f *fakeProfiles) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func testManager(t *testing.T, store CredentialStore, profiles ProfileService) *Manager {
	t.Helper()
	return NewManager("session-1", store, profiles, zap.NewNop())
}

func loggedInCredential() domain.Credential {
	return domain.Credential{AccessToken: "access", RefreshToken: "refresh"}
}

func TestSnapshotBeforeResolveIsLoading(t *testing.T) {
	mgr := testManager(t, newFakeStore(), &fakeProfiles{})

	snap := mgr.Snapshot()

	assert.True(t, snap.Loading)
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
}

func TestResolveWithoutCredentialSettlesAnonymous(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{}
	mgr := testManager(t, store, profiles)

	require.NoError(t, mgr.Resolve(context.Background()))

	snap := mgr.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.Equal(t, 0, profiles.fetchCount(), "anonymous resolution must not call the API")
}

func TestResolveWithCredentialSettlesAuthenticated(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1", Nickname: "green"}}
	mgr := testManager(t, store, profiles)

	require.NoError(t, mgr.Resolve(context.Background()))

	snap := mgr.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsLoggedIn)
	require.NotNil(t, snap.User)
	assert.Equal(t, "green", snap.User.Nickname)
}

func TestResolveFetchFailureClearsCredential(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{getErr: errors.New("401")}
	mgr := testManager(t, store, profiles)

	require.NoError(t, mgr.Resolve(context.Background()))

	snap := mgr.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.Equal(t, 1, store.clearCount(), "a credential that cannot load a profile must be cleared")

	_, err := store.Credential(context.Background(), "session-1")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestResolveStoreFailureLeavesSessionUnresolved(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	store.getErr = errors.New("connection refused")
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)

	err := mgr.Resolve(context.Background())

	require.Error(t, err)
	snap := mgr.Snapshot()
	assert.True(t, snap.Loading, "a store failure must not settle the session")
	assert.Equal(t, 0, store.clearCount(), "a store failure must not clear the credential")
	assert.Equal(t, 0, profiles.fetchCount())
}

func TestResolveRetriesAfterStoreFailure(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	store.getErr = errors.New("connection refused")
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)

	require.Error(t, mgr.Resolve(context.Background()))

	store.mu.Lock()
	store.getErr = nil
	store.mu.Unlock()

	require.NoError(t, mgr.Resolve(context.Background()))

	snap := mgr.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsLoggedIn, "the stored credential must survive the outage")
}

func TestResolveRunsExactlyOnce(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Resolve(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, profiles.fetchCount())
	assert.True(t, mgr.Snapshot().IsLoggedIn)
}

func TestResolveAfterSettledIsNoop(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)

	require.NoError(t, mgr.Resolve(context.Background()))
	require.NoError(t, mgr.Resolve(context.Background()))

	assert.Equal(t, 1, profiles.fetchCount())
}

func TestLoginSettlesAuthenticatedWithoutResolve(t *testing.T) {
	mgr := testManager(t, newFakeStore(), &fakeProfiles{})

	mgr.Login(domain.Profile{UserID: "u2", Nickname: "river"})

	snap := mgr.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.IsLoggedIn)
	require.NotNil(t, snap.User)
	assert.Equal(t, "river", snap.User.Nickname)

	// Resolution after a login must not overwrite the session.
	require.NoError(t, mgr.Resolve(context.Background()))
	assert.True(t, mgr.Snapshot().IsLoggedIn)
}

func TestLoginDuringResolveWins(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	block := make(chan struct{})
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "stale"}, blockFetch: block}
	mgr := testManager(t, store, profiles)

	done := make(chan struct{})
	go func() {
		_ = mgr.Resolve(context.Background())
		close(done)
	}()

	// Wait for the fetch to be in flight, then race a login past it.
	for profiles.fetchCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	mgr.Login(domain.Profile{UserID: "fresh"})
	close(block)
	<-done

	snap := mgr.Snapshot()
	assert.True(t, snap.IsLoggedIn)
	require.NotNil(t, snap.User)
	assert.Equal(t, "fresh", snap.User.UserID, "the stale resolution result must be dropped")
}

func TestLogoutClearsEverything(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	require.NoError(t, mgr.Logout(context.Background()))

	snap := mgr.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.False(t, IsAuthenticated(context.Background(), store, "session-1"))

	// Logging out twice must not fail.
	require.NoError(t, mgr.Logout(context.Background()))
}

func TestUpdateUserAppliesOptimistically(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1", Nickname: "old"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	nickname := "new"
	result := mgr.UpdateUser(context.Background(), domain.ProfilePatch{Nickname: &nickname})

	assert.True(t, result.OK)
	assert.True(t, result.Applied)
	assert.NoError(t, result.Err)
	assert.Equal(t, "new", mgr.Snapshot().User.Nickname)
	assert.Len(t, profiles.updates, 1)
}

func TestUpdateUserRevertsOnFailure(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1", Nickname: "old"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	profiles.mu.Lock()
	profiles.updateErr = errors.New("422")
	profiles.mu.Unlock()

	nickname := "new"
	result := mgr.UpdateUser(context.Background(), domain.ProfilePatch{Nickname: &nickname})

	assert.False(t, result.OK)
	assert.Error(t, result.Err)
	require.NotNil(t, result.Previous)
	assert.Equal(t, "old", result.Previous.Nickname)
	assert.Equal(t, "old", mgr.Snapshot().User.Nickname, "the optimistic patch must be reverted")
}

func TestUpdateUserIsNoopWhileAnonymous(t *testing.T) {
	store := newFakeStore()
	profiles := &fakeProfiles{}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	nickname := "new"
	result := mgr.UpdateUser(context.Background(), domain.ProfilePatch{Nickname: &nickname})

	assert.False(t, result.OK)
	assert.False(t, result.Applied)
	assert.NoError(t, result.Err)
	assert.Empty(t, profiles.updates)
}

func TestUpdateUserEmptyPatchSkipsUpstream(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	result := mgr.UpdateUser(context.Background(), domain.ProfilePatch{})

	assert.True(t, result.OK)
	assert.False(t, result.Applied)
	assert.Empty(t, profiles.updates)
}

func TestRefreshProfileFailureKeepsState(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1", Nickname: "keep"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	profiles.mu.Lock()
	profiles.getErr = errors.New("503")
	profiles.mu.Unlock()

	mgr.RefreshProfile(context.Background())

	snap := mgr.Snapshot()
	assert.True(t, snap.IsLoggedIn, "a refresh failure never logs the user out")
	assert.Equal(t, "keep", snap.User.Nickname)
}

func TestRefreshProfileDropsStaleResponse(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	block := make(chan struct{})
	profiles.mu.Lock()
	profiles.blockFetch = block
	profiles.mu.Unlock()

	done := make(chan struct{})
	go func() {
		mgr.RefreshProfile(context.Background())
		close(done)
	}()

	for profiles.fetchCount() < 2 {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, mgr.Logout(context.Background()))
	close(block)
	<-done

	snap := mgr.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User, "a refresh response arriving after logout must be dropped")
}

func TestOnChangeFiresOnSettledTransitions(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1"}}
	mgr := testManager(t, store, profiles)

	var mu sync.Mutex
	var seen []bool
	mgr.OnChange(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap.IsLoggedIn)
		mu.Unlock()
	})

	require.NoError(t, mgr.Resolve(context.Background()))
	require.NoError(t, mgr.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

func TestSnapshotProfileIsACopy(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Save(context.Background(), "session-1", loggedInCredential()))
	profiles := &fakeProfiles{profile: domain.Profile{UserID: "u1", Nickname: "orig"}}
	mgr := testManager(t, store, profiles)
	require.NoError(t, mgr.Resolve(context.Background()))

	snap := mgr.Snapshot()
	snap.User.Nickname = "mutated"

	assert.Equal(t, "orig", mgr.Snapshot().User.Nickname)
}
