// Package session holds the per-browser-session authentication state
// machine and its supporting pieces: the credential store, the manager
// registry, and the session cookie codec.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/domain"
)

// State is the lifecycle phase of a session's auth state machine.
type State int

const (
	// StateUninitialized means Resolve has not started yet.
	StateUninitialized State = iota
	// StateResolving means the one-shot resolution pass is in flight.
	StateResolving
	// StateAuthenticated means a credential is stored and a profile loaded.
	StateAuthenticated
	// StateAnonymous means the session is settled logged-out.
	StateAnonymous
)

// Snapshot is the tuple every consumer reads. IsLoggedIn is true only
// when a profile is loaded AND the credential store reported a
// credential; Loading is true only before the first resolution settles.
type Snapshot struct {
	User       *domain.Profile
	Loading    bool
	IsLoggedIn bool
}

// ProfileService is the slice of the upstream client the manager needs.
type ProfileService interface {
	GetMyProfile(ctx context.Context, token string) (*domain.Profile, error)
	UpdateMyProfile(ctx context.Context, token string, patch domain.ProfilePatch) error
}

// UpdateResult reports the outcome of an optimistic profile update. When
// the confirming call fails the local patch has been reverted and
// Previous carries the restored profile.
type UpdateResult struct {
	OK       bool
	Applied  bool
	Previous *domain.Profile
	Err      error
}

// Manager is the authentication state machine for one browser session.
//
// Transitions: Uninitialized -> Resolving -> {Authenticated, Anonymous},
// then Login/Logout flip between the settled states. Resolution runs
// exactly once per manager lifetime; failures during it are fail-closed
// (credential cleared, session anonymous), while RefreshProfile failures
// are fail-open (logged, state kept).
type Manager struct {
	sessionID string
	store     CredentialStore
	profiles  ProfileService
	logger    *zap.Logger

	mu            sync.Mutex
	state         State
	user          *domain.Profile
	hasCredential bool
	generation    uint64
	resolveDone   chan struct{}
	subscribers   []func(Snapshot)
}

// NewManager creates the state machine for one session.
func NewManager(sessionID string, store CredentialStore, profiles ProfileService, logger *zap.Logger) *Manager {
	return &Manager{
		sessionID: sessionID,
		store:     store,
		profiles:  profiles,
		logger:    logger.With(zap.String("session_id", sessionID)),
	}
}

// SessionID returns the session this manager belongs to.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Snapshot returns the current auth tuple. The returned profile is a
// copy; callers cannot mutate manager state through it.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Loading:    m.state == StateUninitialized || m.state == StateResolving,
		IsLoggedIn: m.user != nil && m.hasCredential,
	}
	if m.user != nil {
		user := *m.user
		snap.User = &user
	}
	return snap
}

// OnChange registers fn to run after every settled state change. fn is
// called without the manager lock held and receives the new snapshot.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.mu.Lock()
	subs := make([]func(Snapshot), len(m.subscribers))
	copy(subs, m.subscribers)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Resolve runs the one-shot initialization pass. The first caller
// performs it; concurrent callers block until it settles; later callers
// return immediately. A session with no stored credential settles
// Anonymous without any network call. A stored credential whose profile
// fetch fails is treated as invalid: the store is cleared and the
// session settles Anonymous (fail-closed). A store failure is different:
// the session got no answer at all, so the pass is rolled back to
// Uninitialized and the next request retries.
func (m *Manager) Resolve(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateAuthenticated, StateAnonymous:
		m.mu.Unlock()
		return nil
	case StateResolving:
		done := m.resolveDone
		m.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.state = StateResolving
	m.resolveDone = make(chan struct{})
	gen := m.generation
	done := m.resolveDone
	m.mu.Unlock()

	cred, err := m.store.Credential(ctx, m.sessionID)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			m.settleResolve(gen, done, nil, false)
			return nil
		}
		m.logger.Warn("credential lookup failed, leaving session unresolved", zap.Error(err))
		m.abortResolve(gen, done)
		return fmt.Errorf("resolve session: %w", err)
	}

	profile, err := m.profiles.GetMyProfile(ctx, cred.AccessToken)
	if err != nil {
		// The credential is indistinguishable from "never logged in"
		// once the profile fetch fails, so clear it and stay silent.
		m.logger.Info("profile fetch failed, clearing credential", zap.Error(err))
		if clearErr := m.store.Clear(ctx, m.sessionID); clearErr != nil {
			m.logger.Warn("failed to clear credential", zap.Error(clearErr))
		}
		m.settleResolve(gen, done, nil, false)
		return nil
	}

	m.settleResolve(gen, done, profile, true)
	return nil
}

// abortResolve rolls the pass back to Uninitialized so a later request
// can retry, unless a Login or Logout already settled the session.
// Waiters are released; they observe a still-loading snapshot.
func (m *Manager) abortResolve(gen uint64, done chan struct{}) {
	m.mu.Lock()
	if m.state == StateResolving && m.generation == gen {
		m.state = StateUninitialized
		m.resolveDone = nil
	}
	m.mu.Unlock()

	close(done)
}

// settleResolve commits the resolution result unless a Login or Logout
// raced ahead of it, then releases waiters.
func (m *Manager) settleResolve(gen uint64, done chan struct{}, profile *domain.Profile, hasCredential bool) {
	m.mu.Lock()
	if m.generation == gen {
		m.user = profile
		m.hasCredential = hasCredential
		if profile != nil && hasCredential {
			m.state = StateAuthenticated
		} else {
			m.state = StateAnonymous
		}
	} else if m.state == StateResolving {
		// A concurrent Login already settled the session; keep its state.
		if m.user != nil {
			m.state = StateAuthenticated
		} else {
			m.state = StateAnonymous
		}
	}
	m.mu.Unlock()

	close(done)
	m.notify()
}

// Login settles the session Authenticated with a profile the caller
// already obtained. The caller is responsible for having saved the
// credential to the store beforehand; Login itself never touches it.
func (m *Manager) Login(profile domain.Profile) {
	m.mu.Lock()
	m.generation++
	user := profile
	m.user = &user
	m.hasCredential = true
	m.state = StateAuthenticated
	if m.resolveDone == nil {
		m.resolveDone = closedChan()
	}
	m.mu.Unlock()

	m.notify()
}

// Logout clears the credential and settles the session Anonymous. It is
// idempotent; the handler layer performs the locale-aware redirect and
// drops the per-session state afterwards.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	m.user = nil
	m.hasCredential = false
	m.state = StateAnonymous
	if m.resolveDone == nil {
		m.resolveDone = closedChan()
	}
	m.mu.Unlock()

	err := m.store.Clear(ctx, m.sessionID)
	if err != nil {
		m.logger.Warn("failed to clear credential on logout", zap.Error(err))
	}

	m.notify()
	return err
}

// UpdateUser applies an optimistic local patch, confirms it upstream,
// and reverts the patch when the confirming call fails. It is a strict
// no-op while the session is anonymous.
func (m *Manager) UpdateUser(ctx context.Context, patch domain.ProfilePatch) UpdateResult {
	m.mu.Lock()
	if m.user == nil || !m.hasCredential {
		m.mu.Unlock()
		return UpdateResult{OK: false, Applied: false}
	}
	if patch.IsEmpty() {
		m.mu.Unlock()
		return UpdateResult{OK: true, Applied: false}
	}

	previous := *m.user
	updated := patch.Apply(previous)
	m.user = &updated
	gen := m.generation
	m.mu.Unlock()

	m.notify()

	cred, err := m.store.Credential(ctx, m.sessionID)
	if err == nil {
		err = m.profiles.UpdateMyProfile(ctx, cred.AccessToken, patch)
	}
	if err == nil {
		return UpdateResult{OK: true, Applied: true}
	}

	m.logger.Warn("profile update rejected upstream, reverting", zap.Error(err))

	m.mu.Lock()
	reverted := false
	if m.generation == gen && m.user != nil {
		restored := previous
		m.user = &restored
		reverted = true
	}
	m.mu.Unlock()

	if reverted {
		m.notify()
	}

	prev := previous
	return UpdateResult{OK: false, Applied: false, Previous: &prev, Err: err}
}

// RefreshProfile re-fetches the profile and replaces it wholesale. It is
// a no-op while anonymous. Failures are logged and swallowed: unlike the
// initialization pass, a refresh error never logs the user out, and a
// response arriving after a Logout is dropped.
func (m *Manager) RefreshProfile(ctx context.Context) {
	m.mu.Lock()
	if m.user == nil || !m.hasCredential {
		m.mu.Unlock()
		return
	}
	gen := m.generation
	m.mu.Unlock()

	cred, err := m.store.Credential(ctx, m.sessionID)
	if err != nil {
		m.logger.Warn("refresh skipped, credential unavailable", zap.Error(err))
		return
	}

	profile, err := m.profiles.GetMyProfile(ctx, cred.AccessToken)
	if err != nil {
		m.logger.Warn("failed to refresh profile", zap.Error(err))
		return
	}

	m.mu.Lock()
	stale := m.generation != gen || m.user == nil
	if !stale {
		m.user = profile
	}
	m.mu.Unlock()

	if !stale {
		m.notify()
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
