// Package session owns the client's authentication state machine. The
// controller reconciles the identity provider's credential, the
// backend session and the local profile cache into a single
// authoritative snapshot. The backend always wins: a provider
// credential that the backend has not confirmed is not an
// authenticated session.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/popcoin-idle/popcoin/internal/client/api"
	"github.com/popcoin-idle/popcoin/internal/client/identity"
	"github.com/popcoin-idle/popcoin/internal/models"
)

// State is the controller's position in the auth lifecycle.
type State int

const (
	// StateUnauthenticated: no backend-confirmed session.
	StateUnauthenticated State = iota
	// StateLoggingIn: an interactive login is in flight.
	StateLoggingIn
	// StateAuthenticated: the backend has confirmed the session.
	StateAuthenticated
)

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State           State
	IsAuthenticated bool
	User            *models.User
}

// Listener receives a snapshot on every state transition.
type Listener func(Snapshot)

// Backend is the slice of the API client the controller needs.
type Backend interface {
	Login(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (bool, *models.User, error)
}

// Navigator applies the controller's post-transition routing policy.
// Navigation is a side effect, not an invariant: target routes are
// configuration and a nil Navigator disables the policy entirely.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string)
}

// Routes names the two routes the navigation policy cares about.
type Routes struct {
	// Landing is where unauthenticated users belong.
	Landing string
	// Game is the protected route for authenticated users.
	Game string
}

// Config assembles a Controller.
type Config struct {
	Backend  Backend
	Provider identity.Provider
	// Navigator may be nil.
	Navigator Navigator
	Routes    Routes
	// Cache may be nil; it is never trusted over the backend.
	Cache  *ProfileCache
	Logger *zap.Logger
}

// Controller is the single owner of the session. All methods are safe
// for concurrent use.
type Controller struct {
	backend  Backend
	provider identity.Provider
	nav      Navigator
	routes   Routes
	cache    *ProfileCache
	log      *zap.Logger

	mu              sync.Mutex
	state           State
	user            *models.User
	loginInProgress bool
	redirecting     bool
	listeners       []Listener

	readyOnce sync.Once
	ready     chan struct{}
}

// NewController constructs a Controller in StateUnauthenticated.
func NewController(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		backend:  cfg.Backend,
		provider: cfg.Provider,
		nav:      cfg.Navigator,
		routes:   cfg.Routes,
		cache:    cfg.Cache,
		log:      log,
		ready:    make(chan struct{}),
	}
}

// Ready is closed exactly once, when the cold-start session check has
// finished (whatever its outcome). Callers gate startup on it instead
// of polling.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Current returns a snapshot of the session.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers a listener fired with the new snapshot on every
// state transition.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// CachedProfile returns the locally cached user profile, if any. Only
// for provisional display: it says nothing about whether a session is
// live.
func (c *Controller) CachedProfile() *models.User {
	if c.cache == nil {
		return nil
	}
	user, err := c.cache.Load()
	if err != nil {
		c.log.Debug("profile cache unreadable", zap.Error(err))
		return nil
	}
	return user
}

// SignInInteractive runs the interactive credential flow and, on
// success, the backend exchange. A login already in progress makes
// this a no-op, so two overlapping calls produce at most one backend
// session. Cancellation by the user is silent: nil error, back to
// Unauthenticated.
func (c *Controller) SignInInteractive(ctx context.Context) error {
	c.mu.Lock()
	if c.loginInProgress {
		c.mu.Unlock()
		c.log.Debug("login already in progress, ignoring")
		return nil
	}
	c.loginInProgress = true
	c.setStateLocked(StateLoggingIn, c.user)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loginInProgress = false
		c.mu.Unlock()
	}()

	cred, err := c.provider.SignIn(ctx)
	if err != nil {
		kind := identity.Classify(err)
		c.transition(StateUnauthenticated, nil)
		if kind == identity.KindCancelled {
			c.log.Info("sign-in cancelled by user")
			return nil
		}
		c.log.Warn("sign-in failed", zap.String("kind", kind.String()), zap.Error(err))
		return identity.NewError(kind, err)
	}

	return c.completeLogin(ctx, cred)
}

// completeLogin exchanges a fresh credential for a backend session.
// The backend is the sole authority: on rejection or transport failure
// the provider is signed out too, so the two systems never disagree
// about who is logged in.
func (c *Controller) completeLogin(ctx context.Context, cred *identity.Credential) error {
	user, err := c.backend.Login(ctx, cred.Token)
	if err != nil {
		// No half-authenticated state: drop the provider credential.
		if soErr := c.provider.SignOut(ctx); soErr != nil {
			c.log.Warn("provider sign-out after failed login", zap.Error(soErr))
		}
		c.transition(StateUnauthenticated, nil)

		kind := identity.KindNetwork
		if errors.Is(err, api.ErrRejected) {
			kind = identity.KindRejected
		}
		c.log.Warn("backend login failed", zap.String("kind", kind.String()), zap.Error(err))
		return identity.NewError(kind, err)
	}

	if c.cache != nil {
		if err := c.cache.Store(user); err != nil {
			c.log.Debug("profile cache write failed", zap.Error(err))
		}
	}
	c.log.Info("login complete", zap.String("uid", user.UID))
	c.transition(StateAuthenticated, user)
	return nil
}

// SignOut drops the session everywhere. Backend notification is
// best-effort: a failure never blocks the local logout.
func (c *Controller) SignOut(ctx context.Context) {
	if err := c.backend.Logout(ctx); err != nil {
		c.log.Warn("backend logout failed, clearing locally anyway", zap.Error(err))
	}
	if err := c.provider.SignOut(ctx); err != nil {
		c.log.Warn("provider sign-out failed", zap.Error(err))
	}
	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			c.log.Debug("profile cache clear failed", zap.Error(err))
		}
	}
	c.log.Info("signed out")
	c.transition(StateUnauthenticated, nil)
}

// ForceLogout is the path for a session the backend has already
// invalidated (a 401 on a later call): local state clears without
// notifying the backend again.
func (c *Controller) ForceLogout(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		c.log.Warn("provider sign-out failed", zap.Error(err))
	}
	if c.cache != nil {
		_ = c.cache.Clear()
	}
	c.log.Warn("session invalidated by backend, forcing logout")
	c.transition(StateUnauthenticated, nil)
}

// CheckServerSession recovers a session on cold start. Precedence: an
// existing backend session wins; failing that, a cached provider
// credential is exchanged; failing that, the session stays
// unauthenticated. The ready signal fires exactly once when the check
// completes, whatever the outcome.
func (c *Controller) CheckServerSession(ctx context.Context) {
	defer c.readyOnce.Do(func() { close(c.ready) })

	ok, user, err := c.backend.Status(ctx)
	if err != nil {
		c.log.Warn("session status check failed", zap.Error(err))
	} else if ok {
		c.log.Info("recovered backend session", zap.String("uid", user.UID))
		if c.cache != nil {
			_ = c.cache.Store(user)
		}
		c.transition(StateAuthenticated, user)
		return
	}

	cred, err := c.provider.CachedCredential(ctx)
	if err != nil || cred == nil {
		if err != nil {
			c.log.Debug("no cached credential", zap.Error(err))
		}
		c.transition(StateUnauthenticated, nil)
		return
	}
	if err := c.completeLogin(ctx, cred); err != nil {
		c.log.Info("cached credential exchange failed", zap.Error(err))
	}
}

// transition moves the state machine and fires side effects: listener
// notifications and at most one navigation per transition.
func (c *Controller) transition(state State, user *models.User) {
	c.mu.Lock()
	c.setStateLocked(state, user)
	c.mu.Unlock()
}

// setStateLocked updates state, notifies listeners and applies the
// navigation policy. Callers hold c.mu. Listener and navigator calls
// deliberately happen under the lock so transitions observe snapshots
// in order; listeners must not call back into the controller.
func (c *Controller) setStateLocked(state State, user *models.User) {
	c.state = state
	c.user = user
	c.redirecting = false

	snap := c.snapshotLocked()
	for _, l := range c.listeners {
		l(snap)
	}
	c.navigateLocked(snap)
}

// navigateLocked applies the routing policy: authenticated users leave
// the landing route, unauthenticated users leave the game route. The
// redirecting flag limits it to one navigation per transition.
func (c *Controller) navigateLocked(snap Snapshot) {
	if c.nav == nil || c.redirecting {
		return
	}
	current := c.nav.CurrentRoute()
	switch {
	case snap.IsAuthenticated && current == c.routes.Landing:
		c.redirecting = true
		c.nav.Navigate(c.routes.Game)
	case !snap.IsAuthenticated && snap.State == StateUnauthenticated && current == c.routes.Game:
		c.redirecting = true
		c.nav.Navigate(c.routes.Landing)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:           c.state,
		IsAuthenticated: c.state == StateAuthenticated,
		User:            c.user,
	}
}
