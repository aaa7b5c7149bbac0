package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestChatHubFanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub := NewChatHub(rdb, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-hub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never became ready")
	}

	ab, cancelAB := hub.Subscribe("uidA_uidB")
	defer cancelAB()
	other, cancelOther := hub.Subscribe("uidA_uidC")
	defer cancelOther()

	require.NoError(t, hub.Publish(ctx, "uidA_uidB"))

	select {
	case <-ab:
	case <-time.After(2 * time.Second):
		t.Fatal("no notification for subscribed channel")
	}
	select {
	case <-other:
		t.Fatal("notification leaked to another channel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChatHubCoalescesAndUnsubscribes(t *testing.T) {
	hub := NewChatHub(nil, zap.NewNop())

	ch, cancel := hub.Subscribe("uidA_uidB")
	hub.fanOut("uidA_uidB")
	hub.fanOut("uidA_uidB")
	assert.Len(t, ch, 1)

	cancel()
	cancel()
	<-ch
	hub.fanOut("uidA_uidB")
	assert.Len(t, ch, 0)
	assert.Empty(t, hub.subs)
}

func TestChatHubResyncsSubscribersAfterReconnect(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub := NewChatHub(rdb, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-hub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never became ready")
	}
	ab, cancelAB := hub.Subscribe("uidA_uidB")
	defer cancelAB()

	// drop the subscription; anything published now is never delivered
	mr.Close()
	require.NoError(t, mr.Restart())

	select {
	case <-ab:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber not woken after the subscription came back")
	}
}
