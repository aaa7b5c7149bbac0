// Package reconciler decides who the current user is.
//
// Two sources report identity independently: a stored bearer credential that
// is validated against the backend, and a federated identity provider whose
// listener may fire at any time. The transitions in this file are pure; the
// Reconciler type drives them from a single event loop.
package reconciler

import "fmt"

// Source records where an identity came from.
type Source int

const (
	// SourceBackend identities come from a validated credential and are authoritative.
	SourceBackend Source = iota + 1
	// SourceProvider identities are built from provider session fields only.
	SourceProvider
)

// Identity is the current user as the client sees it.
type Identity struct {
	ID          string   `json:"id"`
	ProviderID  string   `json:"provider_id,omitempty"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Photo       string   `json:"photo,omitempty"`
	TeachSkills []string `json:"teach_skills"`
	LearnSkills []string `json:"learn_skills"`
	Bio         string   `json:"bio"`
	Source      Source   `json:"-"`
}

// ChatID is the id used to name conversations: the provider id when linked,
// otherwise the durable id.
func (i *Identity) ChatID() string {
	if i == nil {
		return ""
	}
	if i.ProviderID != "" {
		return i.ProviderID
	}
	return i.ID
}

// Authoritative reports whether the identity was loaded from the backend.
func (i *Identity) Authoritative() bool {
	return i != nil && i.Source == SourceBackend
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.TeachSkills = append([]string(nil), i.TeachSkills...)
	c.LearnSkills = append([]string(nil), i.LearnSkills...)
	return &c
}

// ProviderUser is what the identity provider listener delivers.
type ProviderUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

// MinimalIdentity builds a provider-sourced identity.
func MinimalIdentity(p ProviderUser) *Identity {
	return &Identity{
		ID:          p.UID,
		ProviderID:  p.UID,
		Name:        p.DisplayName,
		Email:       p.Email,
		Photo:       p.PhotoURL,
		TeachSkills: []string{},
		LearnSkills: []string{},
		Source:      SourceProvider,
	}
}

// Phase is the reconciliation phase.
type Phase int

const (
	PhaseUnresolved Phase = iota
	PhaseResolved
	PhaseLoggingOut
)

func (p Phase) String() string {
	switch p {
	case PhaseUnresolved:
		return "unresolved"
	case PhaseResolved:
		return "resolved"
	case PhaseLoggingOut:
		return "logging_out"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Effect is a side effect requested by a transition. The driver performs them
// in order.
type Effect int

const (
	EffectDiscardCredential Effect = iota + 1
	EffectProviderSignOut
	EffectShowLogin
	EffectShowDashboard
)

func (e Effect) String() string {
	switch e {
	case EffectDiscardCredential:
		return "discard_credential"
	case EffectProviderSignOut:
		return "provider_sign_out"
	case EffectShowLogin:
		return "show_login"
	case EffectShowDashboard:
		return "show_dashboard"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// State is the reconciliation state. The zero value is the initial
// Unresolved state.
type State struct {
	Phase Phase
	User  *Identity

	credentialReported bool
	providerReported   bool
	// lastProvider is the latest provider session, used when a backend
	// identity is withdrawn.
	lastProvider *ProviderUser
	// logoutGuard swallows exactly one provider callback after logout. It is
	// armed only when a provider session was active, so a sign-out callback is
	// guaranteed to consume it.
	logoutGuard bool
	// epoch increases whenever the stored credential is replaced or dropped;
	// validation results from an older epoch are ignored.
	epoch uint64
}

// Loading is true until both sources have reported once.
func (s State) Loading() bool { return s.Phase == PhaseUnresolved }

// Epoch identifies the credential a validation was started for.
func (s State) Epoch() uint64 { return s.epoch }

// Session is the observable view of a State.
type Session struct {
	CurrentUser *Identity
	Loading     bool
	LoggingOut  bool
}

// Authenticated reports whether a user is present.
func (s Session) Authenticated() bool { return s.CurrentUser != nil }

// Session returns a copy safe to hand to other goroutines.
func (s State) Session() Session {
	return Session{
		CurrentUser: s.User.clone(),
		Loading:     s.Loading(),
		LoggingOut:  s.Phase == PhaseLoggingOut,
	}
}

// OnCredentialValidated applies the outcome of a credential check started at
// epoch. A nil identity means the credential was absent, invalid, expired or
// unreachable.
func OnCredentialValidated(s State, epoch uint64, id *Identity) (State, []Effect) {
	if epoch != s.epoch {
		return s, nil
	}
	next := s
	next.credentialReported = true

	var effects []Effect
	if id != nil {
		next.User = id.clone()
		next.User.Source = SourceBackend
	} else {
		effects = append(effects, EffectDiscardCredential)
		if next.User.Authoritative() || next.User == nil {
			next.User = providerFallback(next.lastProvider)
		}
	}
	next = settle(next)
	return next, append(effects, navigation(s, next)...)
}

// OnProviderIdentityChanged applies one provider listener callback.
// credentialStored reports whether a local credential is stored right now.
func OnProviderIdentityChanged(s State, p *ProviderUser, credentialStored bool) (State, []Effect) {
	next := s
	next.providerReported = true

	switch {
	case next.logoutGuard:
		next.logoutGuard = false
	case p != nil:
		pu := *p
		next.lastProvider = &pu
		if next.User.Authoritative() && credentialStored {
			// The validated profile stays, whichever provider identity this is.
			break
		}
		if next.User == nil || next.User.ProviderID != pu.UID {
			next.User = MinimalIdentity(pu)
		}
	case credentialStored:
		next.lastProvider = nil
	default:
		next.lastProvider = nil
		next.User = nil
	}

	next = settle(next)
	return next, navigation(s, next)
}

// OnProviderUnavailable marks the provider as reported when its listener
// could not be attached, so resolution depends on the credential alone.
func OnProviderUnavailable(s State) (State, []Effect) {
	next := s
	next.providerReported = true
	next = settle(next)
	return next, navigation(s, next)
}

// BeginLogout clears the session. providerActive reports whether a provider
// session exists and will therefore fire a sign-out callback.
func BeginLogout(s State, providerActive bool) (State, []Effect) {
	next := s
	next.User = nil
	next.lastProvider = nil
	next.credentialReported = true
	next.logoutGuard = providerActive
	next.epoch++

	var effects []Effect
	if providerActive {
		effects = append(effects, EffectProviderSignOut)
	}
	effects = append(effects, EffectDiscardCredential, EffectShowLogin)
	return settle(next), effects
}

// OnProviderSignOutFailed disarms the logout guard when the provider sign-out
// failed, since no callback will follow to consume it.
func OnProviderSignOutFailed(s State) (State, []Effect) {
	if !s.logoutGuard {
		return s, nil
	}
	next := s
	next.logoutGuard = false
	next = settle(next)
	return next, navigation(s, next)
}

// AdoptAuthoritativeProfile installs a profile returned by a successful
// registration or login, bypassing the provider listener.
func AdoptAuthoritativeProfile(s State, id *Identity) (State, []Effect) {
	if id == nil {
		return s, nil
	}
	next := s
	next.User = id.clone()
	next.User.Source = SourceBackend
	next = settle(next)
	return next, navigation(s, next)
}

// CredentialReplaced starts a new credential epoch after a login stored a
// fresh credential.
func CredentialReplaced(s State) State {
	next := s
	next.epoch++
	return next
}

func settle(s State) State {
	switch {
	case s.logoutGuard:
		s.Phase = PhaseLoggingOut
	case s.credentialReported && s.providerReported:
		s.Phase = PhaseResolved
	default:
		s.Phase = PhaseUnresolved
	}
	return s
}

func providerFallback(p *ProviderUser) *Identity {
	if p == nil {
		return nil
	}
	return MinimalIdentity(*p)
}

// navigation mirrors the router: once resolved, an authenticated user is sent
// to the dashboard and an anonymous one to the login view.
func navigation(prev, next State) []Effect {
	if next.Loading() {
		return nil
	}
	wasAuthed := !prev.Loading() && prev.User != nil
	wasAnon := !prev.Loading() && prev.User == nil
	switch {
	case next.User != nil && !wasAuthed:
		return []Effect{EffectShowDashboard}
	case next.User == nil && !wasAnon:
		return []Effect{EffectShowLogin}
	}
	return nil
}
