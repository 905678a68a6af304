// Package engine runs the client-side game loop: the 100ms tick that
// accrues passive income, click handling, purchases, prestige and the
// save cadence against the backend. The engine owns the working copy
// of the game state; the backend remains authoritative and every
// snapshot sent to it is re-sanitized server-side.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/popcoin-idle/popcoin/internal/client/api"
	"github.com/popcoin-idle/popcoin/internal/client/session"
	"github.com/popcoin-idle/popcoin/internal/game"
	"github.com/popcoin-idle/popcoin/internal/models"
)

const (
	// TickInterval is the passive-income accrual period.
	TickInterval = 100 * time.Millisecond
	// AutosaveInterval is the periodic save cadence.
	AutosaveInterval = 30 * time.Second
	// SaveCooldown is the minimum gap between non-forced saves.
	SaveCooldown = 5 * time.Second
	// ClickBatch is how many clicks accumulate before a save is queued.
	ClickBatch = 10
)

// ErrNotAuthenticated is returned by Start without a live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrAlreadyRunning is returned by a second Start on a running engine.
var ErrAlreadyRunning = errors.New("engine already running")

// Backend is the slice of the API client the engine needs.
type Backend interface {
	GetState(ctx context.Context) (*models.GameState, error)
	SaveState(ctx context.Context, state *models.GameState) error
}

// SessionController lets the engine check and revoke the session when
// the backend rejects a call.
type SessionController interface {
	Current() session.Snapshot
	ForceLogout(ctx context.Context)
}

// View receives pushed updates. The engine never waits for the view;
// every call carries a copy the view may keep.
type View interface {
	// UpdateState is called after every state change, including ticks.
	UpdateState(state models.GameState)
	// NotifyAchievement fires once per unlock, when it happens.
	NotifyAchievement(id, description string)
	// ShowMessage carries transient notices like offline earnings.
	ShowMessage(msg string)
	// ConfirmPrestige asks the user to approve a reset for the given
	// per-click bonus.
	ConfirmPrestige(bonus int) bool
}

// Config assembles an Engine. Zero intervals fall back to the package
// defaults.
type Config struct {
	Backend Backend
	Session SessionController
	View    View
	Logger  *zap.Logger

	TickInterval     time.Duration
	AutosaveInterval time.Duration
	SaveCooldown     time.Duration
}

// Engine drives the game loop. All methods are safe for concurrent
// use.
type Engine struct {
	backend Backend
	session SessionController
	view    View
	log     *zap.Logger

	tickInterval     time.Duration
	autosaveInterval time.Duration
	saveCooldown     time.Duration
	now              func() time.Time

	mu              sync.Mutex
	state           *models.GameState
	running         bool
	dirty           bool
	lastSaveAt      time.Time
	saveInFlight    bool
	clicksSinceSave int
	unauthorized    bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New constructs a stopped Engine.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		backend:          cfg.Backend,
		session:          cfg.Session,
		view:             cfg.View,
		log:              log,
		tickInterval:     cfg.TickInterval,
		autosaveInterval: cfg.AutosaveInterval,
		saveCooldown:     cfg.SaveCooldown,
		now:              time.Now,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
	if e.tickInterval <= 0 {
		e.tickInterval = TickInterval
	}
	if e.autosaveInterval <= 0 {
		e.autosaveInterval = AutosaveInterval
	}
	if e.saveCooldown <= 0 {
		e.saveCooldown = SaveCooldown
	}
	return e
}

// Start loads the state from the backend, credits offline earnings and
// begins the tick and autosave loops. It requires an authenticated
// session: the engine never runs against a guessed identity.
func (e *Engine) Start(ctx context.Context) error {
	if e.session.Current().State != session.StateAuthenticated {
		return ErrNotAuthenticated
	}

	// Reserve the engine before the load so an overlapping Start
	// cannot spawn a second run loop while this one is still fetching.
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	state, err := e.backend.GetState(ctx)
	if err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if errors.Is(err, api.ErrUnauthorized) {
			e.handleUnauthorized(ctx)
		}
		return fmt.Errorf("load state: %w", err)
	}

	now := e.now().Unix()
	game.Normalize(state, now)
	earned := game.OfflineEarnings(state, now)

	e.mu.Lock()
	e.state = state
	e.dirty = earned > 0
	unlocked := game.EvaluateAchievements(e.state)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if earned > 0 {
		e.log.Info("offline earnings credited", zap.Float64("coins", earned))
		if e.view != nil {
			e.view.ShowMessage(fmt.Sprintf("Welcome back! You earned %.0f coins while away.", earned))
		}
	}
	e.pushUpdate(snap, unlocked)
	if len(unlocked) > 0 {
		if err := e.Save(ctx, true); err != nil {
			e.log.Warn("post-unlock save failed", zap.Error(err))
		}
	}

	go e.run(ctx)
	return nil
}

// run is the engine goroutine: passive income every tick, a save on
// the autosave cadence.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	tick := time.NewTicker(e.tickInterval)
	defer tick.Stop()
	autosave := time.NewTicker(e.autosaveInterval)
	defer autosave.Stop()

	last := e.now()
	for {
		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		case t := <-tick.C:
			elapsed := t.Sub(last).Seconds()
			last = t
			e.onTick(ctx, elapsed)
		case <-autosave.C:
			if err := e.Save(ctx, false); err != nil {
				e.log.Warn("autosave failed", zap.Error(err))
			}
		}
	}
}

// onTick accrues passive income for the elapsed wall time. An unlock
// earned by the income forces a save so it survives a crash.
func (e *Engine) onTick(ctx context.Context, elapsedSeconds float64) {
	e.mu.Lock()
	if e.state == nil || e.state.CoinsPerSecond <= 0 {
		e.mu.Unlock()
		return
	}
	game.Tick(e.state, elapsedSeconds)
	e.dirty = true
	unlocked := game.EvaluateAchievements(e.state)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.pushUpdate(snap, unlocked)
	if len(unlocked) > 0 {
		if err := e.Save(ctx, true); err != nil {
			e.log.Warn("post-unlock save failed", zap.Error(err))
		}
	}
}

// RegisterClick credits one click. Every ClickBatch clicks a save is
// queued so bursts coalesce into one request; a click that unlocks an
// achievement saves immediately instead.
func (e *Engine) RegisterClick(ctx context.Context) float64 {
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return 0
	}
	earned := game.Click(e.state)
	e.dirty = true
	e.clicksSinceSave++
	flush := e.clicksSinceSave >= ClickBatch
	unlocked := game.EvaluateAchievements(e.state)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.pushUpdate(snap, unlocked)
	switch {
	case len(unlocked) > 0:
		if err := e.Save(ctx, true); err != nil {
			e.log.Warn("post-unlock save failed", zap.Error(err))
		}
	case flush:
		if err := e.Save(ctx, false); err != nil {
			e.log.Warn("click batch save failed", zap.Error(err))
		}
	}
	return earned
}

// PurchaseUpgrade buys one level of the given upgrade and forces a
// save, so a purchase is never lost to the cadence. Returns the price
// paid.
func (e *Engine) PurchaseUpgrade(ctx context.Context, kind models.UpgradeKind) (float64, error) {
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return 0, ErrNotAuthenticated
	}
	cost, err := game.Purchase(e.state, kind)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	e.dirty = true
	unlocked := game.EvaluateAchievements(e.state)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.pushUpdate(snap, unlocked)
	if err := e.Save(ctx, true); err != nil {
		e.log.Warn("post-purchase save failed", zap.Error(err))
	}
	return cost, nil
}

// Prestige resets progress for a permanent click bonus, after the view
// confirms. Below the threshold it returns ErrInsufficientCoins.
func (e *Engine) Prestige(ctx context.Context) error {
	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return ErrNotAuthenticated
	}
	if !game.CanPrestige(e.state) {
		e.mu.Unlock()
		return game.ErrInsufficientCoins
	}
	bonus := game.PrestigeBonus(e.state)
	e.mu.Unlock()

	if e.view != nil && !e.view.ConfirmPrestige(bonus) {
		return nil
	}

	e.mu.Lock()
	// Re-checked: the tick loop ran while the user decided.
	granted, err := game.Prestige(e.state)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.dirty = true
	unlocked := game.EvaluateAchievements(e.state)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Info("prestige", zap.Int("bonus", granted), zap.Int("level", snap.PrestigeLevel))
	e.pushUpdate(snap, unlocked)
	if err := e.Save(ctx, true); err != nil {
		e.log.Warn("post-prestige save failed", zap.Error(err))
	}
	return nil
}

// State returns a copy of the current game state, or nil before Start.
func (e *Engine) State() *models.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	snap := e.snapshotLocked()
	return &snap
}

// Save pushes the state to the backend. A save already in flight makes
// this a no-op; the change stays dirty and the next cadence picks it
// up. Non-forced saves additionally respect the cooldown and skip when
// nothing changed.
func (e *Engine) Save(ctx context.Context, force bool) error {
	e.mu.Lock()
	if e.state == nil || e.saveInFlight || e.unauthorized {
		e.mu.Unlock()
		return nil
	}
	if !force {
		if !e.dirty || e.now().Sub(e.lastSaveAt) < e.saveCooldown {
			e.mu.Unlock()
			return nil
		}
	}
	e.saveInFlight = true
	snap := e.snapshotLocked()
	e.mu.Unlock()

	err := e.backend.SaveState(ctx, &snap)

	e.mu.Lock()
	e.saveInFlight = false
	if err == nil {
		e.lastSaveAt = e.now()
		e.dirty = false
		e.clicksSinceSave = 0
	}
	e.mu.Unlock()

	if errors.Is(err, api.ErrUnauthorized) {
		e.handleUnauthorized(ctx)
		return err
	}
	return err
}

// handleUnauthorized reacts to a backend 401: the session is gone, so
// the engine stops and the controller clears local auth. No final save
// is attempted; it would only 401 again.
func (e *Engine) handleUnauthorized(ctx context.Context) {
	e.mu.Lock()
	e.unauthorized = true
	e.mu.Unlock()

	e.log.Warn("backend rejected session, stopping engine")
	e.quit()
	e.session.ForceLogout(ctx)
}

// quit signals the run loop to exit. Safe to call any number of times.
func (e *Engine) quit() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Stop halts the loops and flushes unsaved progress with one final
// forced save. Calling Stop twice is safe; the second call returns
// once the first has finished.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	started := e.running
	skipSave := e.unauthorized
	e.mu.Unlock()

	e.quit()
	if started {
		<-e.done
	}
	if started && !skipSave {
		if err := e.Save(ctx, true); err != nil {
			e.log.Warn("final save failed", zap.Error(err))
		}
	}
}

// snapshotLocked copies the state, including the achievements slice,
// so callers outside the lock can hold it. Callers hold e.mu.
func (e *Engine) snapshotLocked() models.GameState {
	snap := *e.state
	snap.Achievements = append([]string(nil), e.state.Achievements...)
	return snap
}

// pushUpdate delivers a state copy and any fresh unlocks to the view.
func (e *Engine) pushUpdate(snap models.GameState, unlocked []string) {
	if e.view == nil {
		return
	}
	for _, id := range unlocked {
		e.view.NotifyAchievement(id, game.Describe(id))
	}
	e.view.UpdateState(snap)
}
