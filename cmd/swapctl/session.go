package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

var errNotSignedIn = errors.New("not signed in, run `swapctl login` or `swapctl federated-login`")

// session is a running reconciler.
type session struct {
	*reconciler.Reconciler
	stop func()
}

type logNavigator struct {
	logger *zap.Logger
}

func (n logNavigator) Show(view reconciler.Effect) {
	n.logger.Debug("navigate", zap.Stringer("view", view))
}

// startSession runs the reconciler until stop is called and waits for the
// first resolution.
func (a *app) startSession(ctx context.Context) (*session, error) {
	r := reconciler.New(a.creds, a.api, a.provider,
		reconciler.WithLogger(a.logger),
		reconciler.WithNavigator(logNavigator{a.logger}))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("session loop stopped", zap.Error(err))
		}
	}()
	s := &session{Reconciler: r, stop: func() { cancel(); <-done }}

	if err := r.WaitResolved(ctx); err != nil {
		s.stop()
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return s, nil
}

// currentUser returns the signed-in identity and the stored credential.
func (a *app) currentUser(ctx context.Context, s *session) (*reconciler.Identity, string, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, "", err
	}
	if !sess.Authenticated() {
		return nil, "", errNotSignedIn
	}
	token, err := a.creds.Load()
	if err != nil {
		return nil, "", err
	}
	if token == "" {
		// provider session without a backend credential
		return nil, "", errNotSignedIn
	}
	return sess.CurrentUser, token, nil
}
