package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backendProfile() *Identity {
	return &Identity{
		ID:          "665f1c2e9b1d4a0012345678",
		ProviderID:  "uidA",
		Name:        "Ana Backend",
		Email:       "ana@example.com",
		TeachSkills: []string{"go"},
		LearnSkills: []string{"piano"},
		Bio:         "hi",
	}
}

func TestZeroStateIsLoading(t *testing.T) {
	var s State
	assert.Equal(t, PhaseUnresolved, s.Phase)
	assert.True(t, s.Loading())
	assert.Nil(t, s.Session().CurrentUser)
}

func TestValidCredentialWinsInBothOrders(t *testing.T) {
	other := &ProviderUser{UID: "uidZ", DisplayName: "Someone Else"}

	t.Run("credential first", func(t *testing.T) {
		s, _ := OnCredentialValidated(State{}, 0, backendProfile())
		assert.True(t, s.Loading())

		s, effects := OnProviderIdentityChanged(s, other, true)
		require.False(t, s.Loading())
		assert.Equal(t, "Ana Backend", s.User.Name)
		assert.Equal(t, SourceBackend, s.User.Source)
		assert.Equal(t, []Effect{EffectShowDashboard}, effects)
	})

	t.Run("provider first", func(t *testing.T) {
		s, _ := OnProviderIdentityChanged(State{}, other, true)
		assert.True(t, s.Loading())
		assert.Equal(t, "uidZ", s.User.ID)

		s, effects := OnCredentialValidated(s, 0, backendProfile())
		require.False(t, s.Loading())
		assert.Equal(t, "Ana Backend", s.User.Name)
		assert.Equal(t, []Effect{EffectShowDashboard}, effects)
	})

	t.Run("later provider callbacks keep the profile", func(t *testing.T) {
		s, _ := OnCredentialValidated(State{}, 0, backendProfile())
		s, _ = OnProviderIdentityChanged(s, nil, true)
		s, effects := OnProviderIdentityChanged(s, other, true)
		assert.Equal(t, "Ana Backend", s.User.Name)
		assert.Empty(t, effects)
	})
}

func TestExpiredCredentialThenProviderNull(t *testing.T) {
	s, effects := OnCredentialValidated(State{}, 0, nil)
	assert.Equal(t, []Effect{EffectDiscardCredential}, effects)
	assert.True(t, s.Loading())

	s, effects = OnProviderIdentityChanged(s, nil, false)
	assert.False(t, s.Loading())
	assert.Nil(t, s.User)
	assert.Equal(t, []Effect{EffectShowLogin}, effects)
}

func TestNoCredentialProviderUser(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, nil)
	s, effects := OnProviderIdentityChanged(s, &ProviderUser{UID: "u1", DisplayName: "Ana"}, false)

	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "u1", s.User.ProviderID)
	assert.Equal(t, "Ana", s.User.Name)
	assert.Empty(t, s.User.TeachSkills)
	assert.Empty(t, s.User.LearnSkills)
	assert.Equal(t, SourceProvider, s.User.Source)
	assert.False(t, s.Loading())
	assert.Equal(t, []Effect{EffectShowDashboard}, effects)
}

func TestInvalidCredentialFallsBackToProviderInBothOrders(t *testing.T) {
	pu := &ProviderUser{UID: "u1", DisplayName: "Ana"}

	a, _ := OnCredentialValidated(State{}, 0, nil)
	a, _ = OnProviderIdentityChanged(a, pu, false)

	b, _ := OnProviderIdentityChanged(State{}, pu, true)
	b, _ = OnCredentialValidated(b, 0, nil)

	require.NotNil(t, a.User)
	require.NotNil(t, b.User)
	assert.Equal(t, a.User, b.User)
	assert.Equal(t, a.Phase, b.Phase)
}

func TestProviderSameIdentityKeepsUser(t *testing.T) {
	pu := &ProviderUser{UID: "u1", DisplayName: "Ana"}
	s, _ := OnCredentialValidated(State{}, 0, nil)
	s, _ = OnProviderIdentityChanged(s, pu, false)
	first := s.User

	s, effects := OnProviderIdentityChanged(s, pu, false)
	assert.Same(t, first, s.User)
	assert.Empty(t, effects)

	s, _ = OnProviderIdentityChanged(s, &ProviderUser{UID: "u2", DisplayName: "Bo"}, false)
	assert.Equal(t, "u2", s.User.ID)
}

func TestProviderNullKeepsUserWhileCredentialStored(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, backendProfile())
	s, _ = OnProviderIdentityChanged(s, nil, true)
	require.NotNil(t, s.User)
	assert.Equal(t, PhaseResolved, s.Phase)

	s, effects := OnProviderIdentityChanged(s, nil, false)
	assert.Nil(t, s.User)
	assert.Equal(t, []Effect{EffectShowLogin}, effects)
}

func TestProviderUnavailableResolvesFromCredential(t *testing.T) {
	s, _ := OnProviderUnavailable(State{})
	assert.True(t, s.Loading())

	s, effects := OnCredentialValidated(s, 0, backendProfile())
	assert.False(t, s.Loading())
	assert.Equal(t, "Ana Backend", s.User.Name)
	assert.Equal(t, []Effect{EffectShowDashboard}, effects)
}

func TestLogoutSuppressesExactlyOneCallback(t *testing.T) {
	pu := &ProviderUser{UID: "u1", DisplayName: "Ana"}
	s, _ := OnCredentialValidated(State{}, 0, nil)
	s, _ = OnProviderIdentityChanged(s, pu, false)
	require.NotNil(t, s.User)

	s, effects := BeginLogout(s, true)
	assert.Nil(t, s.User)
	assert.Equal(t, PhaseLoggingOut, s.Phase)
	assert.True(t, s.Session().LoggingOut)
	assert.Equal(t, []Effect{EffectProviderSignOut, EffectDiscardCredential, EffectShowLogin}, effects)

	// stray callback from the listener that had not fired yet
	s, _ = OnProviderIdentityChanged(s, pu, false)
	assert.Nil(t, s.User)
	assert.Equal(t, PhaseResolved, s.Phase)

	// the next one is honoured again
	s, _ = OnProviderIdentityChanged(s, pu, false)
	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)
}

func TestFailedSignOutDisarmsGuard(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, nil)
	s, _ = OnProviderIdentityChanged(s, &ProviderUser{UID: "u1", DisplayName: "Ana"}, false)
	s, _ = BeginLogout(s, true)
	require.Equal(t, PhaseLoggingOut, s.Phase)

	s, effects := OnProviderSignOutFailed(s)
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Nil(t, s.User)
	assert.Empty(t, effects)

	s, effects = OnProviderIdentityChanged(s, &ProviderUser{UID: "u2", DisplayName: "Bo"}, false)
	require.NotNil(t, s.User)
	assert.Equal(t, "u2", s.User.ID)
	assert.Equal(t, []Effect{EffectShowDashboard}, effects)

	unchanged, effects := OnProviderSignOutFailed(s)
	assert.Equal(t, s, unchanged)
	assert.Empty(t, effects)
}

func TestLogoutWithoutProviderSession(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, backendProfile())
	s, _ = OnProviderIdentityChanged(s, nil, true)

	s, effects := BeginLogout(s, false)
	assert.Nil(t, s.User)
	assert.Equal(t, PhaseResolved, s.Phase)
	assert.Equal(t, []Effect{EffectDiscardCredential, EffectShowLogin}, effects)
}

func TestStaleValidationIgnoredAfterLogout(t *testing.T) {
	var s State
	epoch := s.Epoch()
	s, _ = OnProviderIdentityChanged(s, nil, true)
	s, _ = BeginLogout(s, false)

	s, effects := OnCredentialValidated(s, epoch, backendProfile())
	assert.Nil(t, s.User)
	assert.Empty(t, effects)
}

func TestAdoptAuthoritativeProfile(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, nil)
	s, _ = OnProviderIdentityChanged(s, nil, false)

	s, effects := AdoptAuthoritativeProfile(s, backendProfile())
	require.NotNil(t, s.User)
	assert.True(t, s.User.Authoritative())
	assert.Equal(t, []Effect{EffectShowDashboard}, effects)

	unchanged, effects := AdoptAuthoritativeProfile(s, nil)
	assert.Equal(t, s, unchanged)
	assert.Empty(t, effects)
}

func TestSessionIsACopy(t *testing.T) {
	s, _ := OnCredentialValidated(State{}, 0, backendProfile())
	sess := s.Session()
	sess.CurrentUser.Name = "mutated"
	sess.CurrentUser.TeachSkills[0] = "mutated"
	assert.Equal(t, "Ana Backend", s.User.Name)
	assert.Equal(t, "go", s.User.TeachSkills[0])
}

func TestChatID(t *testing.T) {
	var nilID *Identity
	assert.Equal(t, "", nilID.ChatID())
	assert.Equal(t, "uidA", backendProfile().ChatID())
	assert.Equal(t, "abc", (&Identity{ID: "abc"}).ChatID())
}
