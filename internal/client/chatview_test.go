package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

type fakeSub struct {
	channelID string
	deliver   func([]*models.ChatMessage)
	cancelled bool
}

type fakeConversations struct {
	mu      sync.Mutex
	subs    []*fakeSub
	sendErr error
	sent    []models.SendMessageRequest
}

func (f *fakeConversations) SendMessage(_ context.Context, channelID, recipientID, text string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, models.SendMessageRequest{RecipientID: recipientID, Text: text})
	return &models.ChatMessage{ChannelID: channelID, Text: text}, nil
}

func (f *fakeConversations) Subscribe(_ context.Context, channelID, _ string, deliver func([]*models.ChatMessage)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSub{channelID: channelID, deliver: deliver}
	f.subs = append(f.subs, s)
	return func() {
		f.mu.Lock()
		s.cancelled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeConversations) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

func msg(seq int64, text string) *models.ChatMessage {
	return &models.ChatMessage{ChannelID: "uidA_uidB", Seq: seq, Text: text}
}

func TestChatViewSnapshotsAreAuthoritative(t *testing.T) {
	convs := &fakeConversations{}
	changes := 0
	v := NewChatView("uidA", convs, OnChange(func() { changes++ }))

	require.NoError(t, v.Open(context.Background(), "uidB"))
	assert.Equal(t, "uidA_uidB", v.ChannelID())
	require.Len(t, convs.subs, 1)

	convs.sub(0).deliver([]*models.ChatMessage{msg(1, "a"), msg(2, "b")})
	convs.sub(0).deliver([]*models.ChatMessage{msg(2, "b")})
	got := v.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Seq)
	assert.Equal(t, 2, changes)

	// reopening the same peer keeps the subscription
	require.NoError(t, v.Open(context.Background(), "uidB"))
	assert.Len(t, convs.subs, 1)
}

func TestChatViewPeerChangeCancelsSubscription(t *testing.T) {
	convs := &fakeConversations{}
	v := NewChatView("uidA", convs)
	ctx := context.Background()

	require.NoError(t, v.Open(ctx, "uidB"))
	convs.sub(0).deliver([]*models.ChatMessage{msg(1, "for b")})
	require.NoError(t, v.Open(ctx, "uidC"))

	assert.True(t, convs.sub(0).cancelled)
	assert.Equal(t, "uidA_uidC", convs.sub(1).channelID)
	assert.Empty(t, v.Messages())

	// a late delivery from the old subscription is dropped
	convs.sub(0).deliver([]*models.ChatMessage{msg(2, "late")})
	assert.Empty(t, v.Messages())

	v.Close()
	assert.True(t, convs.sub(1).cancelled)
	assert.Empty(t, v.ChannelID())
	convs.sub(1).deliver([]*models.ChatMessage{msg(1, "after close")})
	assert.Empty(t, v.Messages())
}

func TestChatViewOpenRejectsInvalidPeer(t *testing.T) {
	v := NewChatView("uidA", &fakeConversations{})
	assert.Error(t, v.Open(context.Background(), ""))
	assert.Error(t, v.Open(context.Background(), "a_b"))
}

func TestChatViewSendFailureRestoresDraft(t *testing.T) {
	convs := &fakeConversations{sendErr: ErrTransient}
	v := NewChatView("uidA", convs)
	ctx := context.Background()

	assert.ErrorIs(t, v.Send(ctx), ErrNoConversation)

	require.NoError(t, v.Open(ctx, "uidB"))
	v.SetDraft("  hello  ")
	err := v.Send(ctx)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, "  hello  ", v.Draft())
	assert.ErrorIs(t, v.Err(), ErrTransient)
	assert.Empty(t, v.Messages())

	convs.mu.Lock()
	convs.sendErr = nil
	convs.mu.Unlock()
	require.NoError(t, v.Send(ctx))
	assert.Empty(t, v.Draft())
	assert.NoError(t, v.Err())
	// nothing is shown until the server echoes it
	assert.Empty(t, v.Messages())
	require.Len(t, convs.sent, 1)
	assert.Equal(t, models.SendMessageRequest{RecipientID: "uidB", Text: "hello"}, convs.sent[0])
}

func TestChatViewBlankDraftIsNotSent(t *testing.T) {
	convs := &fakeConversations{}
	v := NewChatView("uidA", convs)
	require.NoError(t, v.Open(context.Background(), "uidB"))
	v.SetDraft("   ")
	require.NoError(t, v.Send(context.Background()))
	assert.Empty(t, convs.sent)
}

// wsServer pushes one snapshot on connect and another for every message
// posted to push.
func wsServer(t *testing.T, push <-chan []*models.ChatMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	r := chi.NewRouter()
	r.Get("/ws/chats/{channelID}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("with") != "uidB" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		channelID := chi.URLParam(r, "channelID")
		_ = conn.WriteJSON(models.ChatEvent{Type: models.ChatEventSnapshot, ChannelID: channelID})

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()
		for {
			select {
			case <-closed:
				return
			case msgs := <-push:
				_ = conn.WriteJSON(models.ChatEvent{Type: models.ChatEventSnapshot, ChannelID: channelID, Messages: msgs})
			}
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestWSTransportSubscribe(t *testing.T) {
	push := make(chan []*models.ChatMessage)
	srv := wsServer(t, push)
	c := newTestClient(t, srv)
	ws := NewWSTransport(c)

	got := make(chan []*models.ChatMessage, 4)
	cancel, err := ws.Subscribe(context.Background(), "good", "uidA_uidB", "uidB", func(msgs []*models.ChatMessage) {
		got <- msgs
	})
	require.NoError(t, err)

	select {
	case msgs := <-got:
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	push <- []*models.ChatMessage{msg(1, "hi")}
	select {
	case msgs := <-got:
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no pushed snapshot")
	}

	cancel()
	cancel()
}

func TestWSTransportHandshakeErrors(t *testing.T) {
	srv := wsServer(t, nil)
	ws := NewWSTransport(newTestClient(t, srv))
	noop := func([]*models.ChatMessage) {}

	_, err := ws.Subscribe(context.Background(), "bad", "uidA_uidB", "uidB", noop)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = ws.Subscribe(context.Background(), "good", "uidA_uidC", "uidC", noop)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestChatViewOverWebsocket(t *testing.T) {
	push := make(chan []*models.ChatMessage)
	srv := wsServer(t, push)
	c := newTestClient(t, srv)

	changed := make(chan struct{}, 4)
	v := NewChatView("uidA", NewChats(c, NewWSTransport(c), "good"), OnChange(func() { changed <- struct{}{} }))
	require.NoError(t, v.Open(context.Background(), "uidB"))

	<-changed
	push <- []*models.ChatMessage{msg(1, "one"), msg(2, "two")}
	<-changed
	assert.Len(t, v.Messages(), 2)

	v.Close()
}

func TestNewWSTransportScheme(t *testing.T) {
	c, err := New("https://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com", NewWSTransport(c).base)

	c, err = New("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080", NewWSTransport(c).base)
}
