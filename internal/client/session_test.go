package client

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

func TestFileCredentialStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	s := NewFileCredentialStore(dir)

	tok, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save("abc.def.ghi"))
	tok, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	info, err := os.Stat(filepath.Join(dir, credentialFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Discard())
	require.NoError(t, s.Discard())
	tok, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

type recorded struct {
	mu   sync.Mutex
	seen []*reconciler.ProviderUser
	ch   chan struct{}
}

func newRecorded() *recorded {
	return &recorded{ch: make(chan struct{}, 16)}
}

func (r *recorded) listen(pu *reconciler.ProviderUser) {
	r.mu.Lock()
	r.seen = append(r.seen, pu)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorded) wait(t *testing.T, n int) []*reconciler.ProviderUser {
	t.Helper()
	for {
		r.mu.Lock()
		got := len(r.seen)
		r.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-r.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("waited for %d provider callbacks, got %d", n, got)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*reconciler.ProviderUser(nil), r.seen...)
}

func TestFileProviderDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewFileProvider(t.TempDir())
	assert.False(t, p.Active())

	rec := newRecorded()
	detach, err := p.Attach(rec.listen)
	require.NoError(t, err)

	require.NoError(t, p.SignIn(reconciler.ProviderUser{UID: "uidA", DisplayName: "Ana"}))
	assert.True(t, p.Active())
	require.NoError(t, p.SignOut(context.Background()))
	assert.False(t, p.Active())

	seen := rec.wait(t, 3)
	assert.Nil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.Equal(t, "uidA", seen[1].UID)
	assert.Nil(t, seen[2])

	detach()
	detach()
	require.NoError(t, p.SignIn(reconciler.ProviderUser{UID: "uidB"}))
	assert.Len(t, rec.wait(t, 3), 3)
}

func TestFileProviderAttachSeesStoredSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	require.NoError(t, NewFileProvider(dir).SignIn(reconciler.ProviderUser{UID: "uidA"}))

	rec := newRecorded()
	detach, err := NewFileProvider(dir).Attach(rec.listen)
	require.NoError(t, err)
	defer detach()

	seen := rec.wait(t, 1)
	require.NotNil(t, seen[0])
	assert.Equal(t, "uidA", seen[0].UID)
}

func TestFileProviderRejectsEmptyUID(t *testing.T) {
	err := NewFileProvider(t.TempDir()).SignIn(reconciler.ProviderUser{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReconcilerOverFileSession(t *testing.T) {
	srv := fakeAPI(t)
	c := newTestClient(t, srv)
	home := t.TempDir()
	creds := NewFileCredentialStore(home)
	require.NoError(t, creds.Save("good"))
	provider := NewFileProvider(home)

	r := reconciler.New(creds, c, provider)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, r.WaitResolved(ctx))
	s, err := r.Session(ctx)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	assert.True(t, s.CurrentUser.Authoritative())
	assert.Equal(t, "uidA", s.CurrentUser.ChatID())

	require.NoError(t, r.Logout(ctx))
	tok, err := creds.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
	s, err = r.Session(ctx)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
}

func TestReconcilerDropsRejectedCredential(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))
	home := t.TempDir()
	creds := NewFileCredentialStore(home)
	require.NoError(t, creds.Save("expired"))

	r := reconciler.New(creds, c, NewFileProvider(home))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, r.WaitResolved(ctx))
	s, err := r.Session(ctx)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	tok, err := creds.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}
