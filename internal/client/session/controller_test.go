package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popcoin-idle/popcoin/internal/client/api"
	"github.com/popcoin-idle/popcoin/internal/client/identity"
	"github.com/popcoin-idle/popcoin/internal/models"
)

type fakeBackend struct {
	mu          sync.Mutex
	loginCalls  int
	logoutCalls int

	loginUser *models.User
	loginErr  error
	logoutErr error

	statusOK   bool
	statusUser *models.User
	statusErr  error
}

func (f *fakeBackend) Login(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	f.loginCalls++
	f.mu.Unlock()
	return f.loginUser, f.loginErr
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeBackend) Status(ctx context.Context) (bool, *models.User, error) {
	return f.statusOK, f.statusUser, f.statusErr
}

func (f *fakeBackend) logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

type fakeProvider struct {
	mu           sync.Mutex
	signInCalls  int
	signOutCalls int

	cred      *identity.Credential
	signInErr error
	cached    *identity.Credential
	// block, when non-nil, stalls SignIn until closed.
	block chan struct{}
}

func (f *fakeProvider) SignIn(ctx context.Context) (*identity.Credential, error) {
	f.mu.Lock()
	f.signInCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.cred, f.signInErr
}

func (f *fakeProvider) CachedCredential(ctx context.Context) (*identity.Credential, error) {
	return f.cached, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

type fakeNavigator struct {
	mu        sync.Mutex
	current   string
	navigated []string
}

func (f *fakeNavigator) CurrentRoute() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeNavigator) Navigate(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, route)
	f.current = route
}

func (f *fakeNavigator) visits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

var testRoutes = Routes{Landing: "/", Game: "/game"}

func newTestController(backend *fakeBackend, provider *fakeProvider, nav *fakeNavigator) *Controller {
	cfg := Config{
		Backend:  backend,
		Provider: provider,
		Routes:   testRoutes,
	}
	if nav != nil {
		cfg.Navigator = nav
	}
	return NewController(cfg)
}

func TestSignInInteractive_Success(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1", Name: "Bob"}}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	nav := &fakeNavigator{current: "/"}
	c := newTestController(backend, provider, nav)

	var states []State
	c.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	err := c.SignInInteractive(context.Background())
	require.NoError(t, err)

	snap := c.Current()
	assert.True(t, snap.IsAuthenticated)
	require.NotNil(t, snap.User)
	assert.Equal(t, "uid-1", snap.User.UID)
	assert.Equal(t, []State{StateLoggingIn, StateAuthenticated}, states)
	assert.Equal(t, []string{"/game"}, nav.visits())
}

func TestSignInInteractive_ConcurrentCallsSingleLogin(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1"}}
	provider := &fakeProvider{
		cred:  &identity.Credential{Token: "tok"},
		block: make(chan struct{}),
	}
	c := newTestController(backend, provider, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.SignInInteractive(context.Background())
		}()
	}

	// Let both goroutines reach the guard, then release the provider.
	time.Sleep(50 * time.Millisecond)
	close(provider.block)
	wg.Wait()

	assert.Equal(t, 1, backend.logins(), "overlapping logins must produce one backend exchange")
	assert.True(t, c.Current().IsAuthenticated)
}

func TestSignInInteractive_CancelledIsSilent(t *testing.T) {
	backend := &fakeBackend{}
	provider := &fakeProvider{signInErr: identity.NewError(identity.KindCancelled, errors.New("closed"))}
	c := newTestController(backend, provider, nil)

	err := c.SignInInteractive(context.Background())
	assert.NoError(t, err, "cancellation is not an error")
	assert.Equal(t, StateUnauthenticated, c.Current().State)
	assert.Equal(t, 0, backend.logins())
}

func TestSignInInteractive_ProviderBlocked(t *testing.T) {
	provider := &fakeProvider{signInErr: identity.NewError(identity.KindBlocked, errors.New("popup blocked"))}
	c := newTestController(&fakeBackend{}, provider, nil)

	err := c.SignInInteractive(context.Background())
	require.Error(t, err)
	assert.Equal(t, identity.KindBlocked, identity.Classify(err))
	assert.Equal(t, StateUnauthenticated, c.Current().State)
}

func TestSignInInteractive_BackendRejection(t *testing.T) {
	backend := &fakeBackend{loginErr: fmt.Errorf("%w: invalid token", api.ErrRejected)}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	c := newTestController(backend, provider, nil)

	err := c.SignInInteractive(context.Background())
	require.Error(t, err)
	assert.Equal(t, identity.KindRejected, identity.Classify(err))
	assert.Equal(t, StateUnauthenticated, c.Current().State, "no half-authenticated state")
	assert.Equal(t, 1, provider.signOuts(), "provider must be signed out after backend rejection")
}

func TestSignInInteractive_BackendUnreachable(t *testing.T) {
	backend := &fakeBackend{loginErr: errors.New("connection refused")}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	c := newTestController(backend, provider, nil)

	err := c.SignInInteractive(context.Background())
	require.Error(t, err)
	assert.Equal(t, identity.KindNetwork, identity.Classify(err))
	assert.Equal(t, 1, provider.signOuts())
}

func TestSignInInteractive_GuardClearedAfterFailure(t *testing.T) {
	backend := &fakeBackend{loginErr: errors.New("down")}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	c := newTestController(backend, provider, nil)

	_ = c.SignInInteractive(context.Background())

	// A second attempt must run, not be swallowed by a stuck guard.
	backend.loginErr = nil
	backend.loginUser = &models.User{UID: "uid-1"}
	require.NoError(t, c.SignInInteractive(context.Background()))
	assert.True(t, c.Current().IsAuthenticated)
}

func TestSignOut_BestEffort(t *testing.T) {
	backend := &fakeBackend{logoutErr: errors.New("backend down")}
	provider := &fakeProvider{}
	nav := &fakeNavigator{current: "/game"}
	c := newTestController(backend, provider, nav)

	// Get authenticated first.
	backend.loginUser = &models.User{UID: "uid-1"}
	provider.cred = &identity.Credential{Token: "tok"}
	require.NoError(t, c.SignInInteractive(context.Background()))

	c.SignOut(context.Background())

	assert.Equal(t, StateUnauthenticated, c.Current().State, "local logout proceeds despite backend failure")
	assert.Contains(t, nav.visits(), "/")
}

func TestForceLogout(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1"}}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	nav := &fakeNavigator{current: "/game"}
	c := newTestController(backend, provider, nav)
	require.NoError(t, c.SignInInteractive(context.Background()))

	c.ForceLogout(context.Background())

	assert.Equal(t, StateUnauthenticated, c.Current().State)
	assert.Equal(t, 0, backend.logoutCalls, "forced logout must not call the backend again")
	assert.Contains(t, nav.visits(), "/")
}

func TestCheckServerSession_BackendWins(t *testing.T) {
	backend := &fakeBackend{statusOK: true, statusUser: &models.User{UID: "uid-srv"}}
	provider := &fakeProvider{cached: &identity.Credential{Token: "stale"}}
	c := newTestController(backend, provider, nil)

	c.CheckServerSession(context.Background())

	snap := c.Current()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "uid-srv", snap.User.UID)
	assert.Equal(t, 0, backend.logins(), "backend session makes the credential exchange unnecessary")

	select {
	case <-c.Ready():
	default:
		t.Fatal("ready signal not fired after session check")
	}
}

func TestCheckServerSession_FallsBackToCachedCredential(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1"}}
	provider := &fakeProvider{cached: &identity.Credential{Token: "cached"}}
	c := newTestController(backend, provider, nil)

	c.CheckServerSession(context.Background())

	assert.True(t, c.Current().IsAuthenticated)
	assert.Equal(t, 1, backend.logins())
}

func TestCheckServerSession_NothingRecovered(t *testing.T) {
	c := newTestController(&fakeBackend{}, &fakeProvider{}, nil)

	c.CheckServerSession(context.Background())

	assert.Equal(t, StateUnauthenticated, c.Current().State)
	select {
	case <-c.Ready():
	default:
		t.Fatal("ready signal not fired")
	}
}

func TestCheckServerSession_ReadyFiresOnce(t *testing.T) {
	c := newTestController(&fakeBackend{}, &fakeProvider{}, nil)

	c.CheckServerSession(context.Background())
	c.CheckServerSession(context.Background()) // must not panic on double close

	<-c.Ready()
}

func TestNavigation_OnePerTransition(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1"}}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	nav := &fakeNavigator{current: "/"}
	c := newTestController(backend, provider, nav)

	require.NoError(t, c.SignInInteractive(context.Background()))

	assert.Equal(t, []string{"/game"}, nav.visits(), "exactly one navigation for the login transition")
}

func TestNavigation_NoRedirectWhenAlreadyOnTarget(t *testing.T) {
	backend := &fakeBackend{loginUser: &models.User{UID: "uid-1"}}
	provider := &fakeProvider{cred: &identity.Credential{Token: "tok"}}
	nav := &fakeNavigator{current: "/game"}
	c := newTestController(backend, provider, nav)

	require.NoError(t, c.SignInInteractive(context.Background()))

	assert.Empty(t, nav.visits(), "already on the game route, nothing to do")
}

func TestCachedProfile(t *testing.T) {
	cache := &ProfileCache{Path: filepath.Join(t.TempDir(), "profile.json")}
	require.NoError(t, cache.Store(&models.User{UID: "uid-1", Name: "Bob"}))

	c := NewController(Config{
		Backend:  &fakeBackend{},
		Provider: &fakeProvider{},
		Cache:    cache,
	})

	user := c.CachedProfile()
	require.NotNil(t, user)
	assert.Equal(t, "Bob", user.Name)
}

func TestProfileCache_RoundTrip(t *testing.T) {
	cache := &ProfileCache{Path: filepath.Join(t.TempDir(), "profile.json")}

	user, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, user, "empty cache loads as nil")

	require.NoError(t, cache.Store(&models.User{UID: "uid-1"}))
	user, err = cache.Load()
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "uid-1", user.UID)

	require.NoError(t, cache.Clear())
	require.NoError(t, cache.Clear(), "clearing twice is fine")
	user, err = cache.Load()
	require.NoError(t, err)
	assert.Nil(t, user)
}
