package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const chatChannelPrefix = "chat:channel:"

// ChatHub fans channel change notifications out to local subscribers. One
// shared Redis pattern subscription per instance feeds it, so a message
// written on any instance reaches subscribers on every instance.
//
// Notifications carry no payload; subscribers re-read the full snapshot.
type ChatHub struct {
	rdb    *redis.Client
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[int]chan struct{}
	next int

	ready     chan struct{}
	readyOnce sync.Once
}

func NewChatHub(rdb *redis.Client, logger *zap.Logger) *ChatHub {
	return &ChatHub{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[string]map[int]chan struct{}),
		ready:  make(chan struct{}),
	}
}

// Subscribe registers interest in channelID. The returned channel receives a
// value after every change; bursts are coalesced. cancel must be called.
func (h *ChatHub) Subscribe(channelID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[channelID] == nil {
		h.subs[channelID] = make(map[int]chan struct{})
	}
	h.subs[channelID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[channelID], id)
			if len(h.subs[channelID]) == 0 {
				delete(h.subs, channelID)
			}
			h.mu.Unlock()
		})
	}
}

// Publish announces a change of channelID to every instance.
func (h *ChatHub) Publish(ctx context.Context, channelID string) error {
	return h.rdb.Publish(ctx, chatChannelPrefix+channelID, channelID).Err()
}

// Ready is closed once the Redis subscription is live.
func (h *ChatHub) Ready() <-chan struct{} {
	return h.ready
}

func (h *ChatHub) fanOut(channelID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[channelID] {
		select {
		case ch <- struct{}{}:
		default:
			// a notification is already pending
		}
	}
}

// fanOutAll wakes every local subscriber. Notifications published while the
// subscription was down are lost, so each one re-reads its snapshot.
func (h *ChatHub) fanOutAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.fanOut(id)
	}
}

// Run keeps the shared Redis subscription alive until ctx is cancelled,
// reconnecting with exponential backoff.
func (h *ChatHub) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := h.listen(ctx); err != nil && ctx.Err() == nil {
			h.logger.Warn("chat subscriber error", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		backoff = time.Second
	}
}

func (h *ChatHub) listen(ctx context.Context) error {
	pubsub := h.rdb.PSubscribe(ctx, chatChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.fanOutAll()
	h.readyOnce.Do(func() { close(h.ready) })
	h.logger.Info("chat subscriber started", zap.String("pattern", chatChannelPrefix+"*"))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		h.fanOut(strings.TrimPrefix(msg.Channel, chatChannelPrefix))
	}
}
