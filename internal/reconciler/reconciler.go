package reconciler

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned when the event loop is no longer running.
var ErrStopped = errors.New("reconciler: stopped")

// CredentialStore persists the bearer credential between runs.
type CredentialStore interface {
	// Load returns "" when no credential is stored.
	Load() (string, error)
	Save(token string) error
	Discard() error
}

// Validator resolves a credential to the backend profile.
type Validator interface {
	WhoAmI(ctx context.Context, token string) (*Identity, error)
}

// Provider is the federated identity provider session.
type Provider interface {
	// Attach registers the listener. The provider calls it once with the
	// current session soon after attaching and again on every change.
	Attach(listener func(*ProviderUser)) (detach func(), err error)
	SignOut(ctx context.Context) error
	Active() bool
}

// Navigator receives view changes.
type Navigator interface {
	Show(view Effect)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithNavigator sets the navigator that receives Show effects.
func WithNavigator(n Navigator) Option {
	return func(r *Reconciler) { r.nav = n }
}

const eventBuffer = 64

// Reconciler owns the session state. All transitions run on the goroutine
// executing Run; other methods post events to it.
type Reconciler struct {
	creds     CredentialStore
	validator Validator
	provider  Provider
	nav       Navigator
	logger    *zap.Logger

	events   chan func()
	done     chan struct{}
	resolved chan struct{}

	// owned by the loop goroutine
	ctx          context.Context
	state        State
	resolvedOnce bool

	mu        sync.Mutex
	observers map[int]func(Session)
	nextObs   int
}

// New creates a Reconciler. Call Run to start it.
func New(creds CredentialStore, validator Validator, provider Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		creds:     creds,
		validator: validator,
		provider:  provider,
		logger:    zap.NewNop(),
		events:    make(chan func(), eventBuffer),
		done:      make(chan struct{}),
		resolved:  make(chan struct{}),
		observers: make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run attaches the provider listener, starts credential validation and
// processes events until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	defer close(r.done)
	r.ctx = ctx

	detach, err := r.provider.Attach(func(pu *ProviderUser) {
		r.post(ctx, func() {
			next, effects := OnProviderIdentityChanged(r.state, pu, r.credentialStored())
			r.apply(next, effects)
		})
	})
	if err != nil {
		r.logger.Warn("identity provider unavailable", zap.Error(err))
		next, effects := OnProviderUnavailable(r.state)
		r.apply(next, effects)
	} else {
		defer detach()
	}

	epoch := r.state.Epoch()
	go r.validate(ctx, epoch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			ev()
		}
	}
}

// ValidateLocalCredential re-checks the stored credential against the backend
// and returns once the outcome has been applied. Failures of any kind clear
// the credential; they are never returned.
func (r *Reconciler) ValidateLocalCredential(ctx context.Context) error {
	var epoch uint64
	if err := r.do(ctx, func() { epoch = r.state.Epoch() }); err != nil {
		return err
	}
	id := r.check(ctx)
	return r.do(ctx, func() {
		next, effects := OnCredentialValidated(r.state, epoch, id)
		r.apply(next, effects)
	})
}

func (r *Reconciler) validate(ctx context.Context, epoch uint64) {
	id := r.check(ctx)
	r.post(ctx, func() {
		next, effects := OnCredentialValidated(r.state, epoch, id)
		r.apply(next, effects)
	})
}

// check resolves the stored credential, returning nil when there is none or
// the backend rejects it.
func (r *Reconciler) check(ctx context.Context) *Identity {
	token, err := r.creds.Load()
	if err != nil {
		r.logger.Warn("failed to read stored credential", zap.Error(err))
	}
	if token == "" {
		return nil
	}
	id, err := r.validator.WhoAmI(ctx, token)
	if err != nil {
		r.logger.Info("stored credential rejected", zap.Error(err))
		return nil
	}
	return id
}

// LoginWithCredential stores a credential returned by a login or registration
// call and adopts the profile it resolves to.
func (r *Reconciler) LoginWithCredential(ctx context.Context, token string) (*Identity, error) {
	if err := r.creds.Save(token); err != nil {
		return nil, err
	}
	var epoch uint64
	if err := r.do(ctx, func() {
		r.state = CredentialReplaced(r.state)
		epoch = r.state.Epoch()
	}); err != nil {
		return nil, err
	}

	id, err := r.validator.WhoAmI(ctx, token)
	if err != nil {
		id = nil
	}
	if doErr := r.do(ctx, func() {
		next, effects := OnCredentialValidated(r.state, epoch, id)
		r.apply(next, effects)
	}); doErr != nil {
		return nil, doErr
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

// AdoptAuthoritativeProfile installs a backend profile directly.
func (r *Reconciler) AdoptAuthoritativeProfile(ctx context.Context, id *Identity) error {
	return r.do(ctx, func() {
		next, effects := AdoptAuthoritativeProfile(r.state, id)
		r.apply(next, effects)
	})
}

// Logout clears the session, discards the credential and signs the provider
// out.
func (r *Reconciler) Logout(ctx context.Context) error {
	return r.do(ctx, func() {
		next, effects := BeginLogout(r.state, r.provider.Active())
		r.apply(next, effects)
	})
}

// Session returns the current session.
func (r *Reconciler) Session(ctx context.Context) (Session, error) {
	var s Session
	err := r.do(ctx, func() { s = r.state.Session() })
	return s, err
}

// WaitResolved blocks until Loading first becomes false.
func (r *Reconciler) WaitResolved(ctx context.Context) error {
	select {
	case <-r.resolved:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to receive every session change. Calls happen on the
// loop goroutine; fn must not call back into the Reconciler synchronously.
func (r *Reconciler) Subscribe(fn func(Session)) (cancel func()) {
	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

func (r *Reconciler) apply(next State, effects []Effect) {
	prev := r.state
	r.state = next

	signOutFailed := false
	for _, e := range effects {
		switch e {
		case EffectDiscardCredential:
			if err := r.creds.Discard(); err != nil {
				r.logger.Warn("failed to discard credential", zap.Error(err))
			}
		case EffectProviderSignOut:
			if err := r.provider.SignOut(r.ctx); err != nil {
				r.logger.Warn("provider sign-out failed", zap.Error(err))
				signOutFailed = true
			}
		case EffectShowLogin, EffectShowDashboard:
			if r.nav != nil {
				r.nav.Show(e)
			}
		}
	}

	if !r.resolvedOnce && !next.Loading() {
		r.resolvedOnce = true
		close(r.resolved)
	}

	if prev.Phase != next.Phase || prev.User != next.User {
		r.logger.Debug("session changed",
			zap.Stringer("phase", next.Phase),
			zap.String("user", next.User.ChatID()))
		r.notify(next.Session())
	}

	if signOutFailed {
		r.apply(OnProviderSignOutFailed(r.state))
	}
}

func (r *Reconciler) notify(s Session) {
	r.mu.Lock()
	fns := make([]func(Session), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (r *Reconciler) credentialStored() bool {
	token, err := r.creds.Load()
	return err == nil && token != ""
}

func (r *Reconciler) post(ctx context.Context, fn func()) bool {
	select {
	case r.events <- fn:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *Reconciler) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !r.post(ctx, func() { fn(); close(finished) }) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
