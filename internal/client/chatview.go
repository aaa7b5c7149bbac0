package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/channel"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

// ErrNoConversation is returned by Send before Open.
var ErrNoConversation = errors.New("no conversation open")

// Conversations is the subset of the API a ChatView needs.
type Conversations interface {
	SendMessage(ctx context.Context, channelID, recipientID, text string) (*models.ChatMessage, error)
	Subscribe(ctx context.Context, channelID, peer string, deliver func([]*models.ChatMessage)) (cancel func(), err error)
}

// Chats binds a credential to the REST client and websocket transport.
type Chats struct {
	api   *Client
	ws    *WSTransport
	token string
}

// NewChats returns Conversations acting as the holder of token.
func NewChats(api *Client, ws *WSTransport, token string) *Chats {
	return &Chats{api: api, ws: ws, token: token}
}

func (c *Chats) SendMessage(ctx context.Context, channelID, recipientID, text string) (*models.ChatMessage, error) {
	return c.api.SendMessage(ctx, c.token, channelID, recipientID, text)
}

func (c *Chats) Subscribe(ctx context.Context, channelID, peer string, deliver func([]*models.ChatMessage)) (func(), error) {
	return c.ws.Subscribe(ctx, c.token, channelID, peer, deliver)
}

// ChatView shows one two-party conversation of the current user. Every
// delivery from the subscription replaces the message list; sent messages
// only appear once the server echoes them.
type ChatView struct {
	me     string
	convs  Conversations
	logger *zap.Logger

	mu        sync.Mutex
	peer      string
	channelID string
	gen       uint64
	cancel    func()
	messages  []*models.ChatMessage
	draft     string
	sendErr   error
	onChange  func()
}

// ChatViewOption configures a ChatView.
type ChatViewOption func(*ChatView)

// OnChange registers fn to run after every delivered snapshot and every
// send outcome. fn runs without the view's lock held.
func OnChange(fn func()) ChatViewOption {
	return func(v *ChatView) { v.onChange = fn }
}

// WithViewLogger sets the logger.
func WithViewLogger(l *zap.Logger) ChatViewOption {
	return func(v *ChatView) { v.logger = l }
}

// NewChatView creates a view for the user whose chat id is me.
func NewChatView(me string, convs Conversations, opts ...ChatViewOption) *ChatView {
	v := &ChatView{me: me, convs: convs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open switches the view to the conversation with peer. Opening the peer
// already shown is a no-op. The previous subscription is cancelled and the
// message list cleared before the new one starts.
func (v *ChatView) Open(ctx context.Context, peer string) error {
	channelID, err := channel.Derive(v.me, peer)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.channelID == channelID && v.cancel != nil {
		v.mu.Unlock()
		return nil
	}
	prev := v.cancel
	v.gen++
	gen := v.gen
	v.peer = peer
	v.channelID = channelID
	v.cancel = nil
	v.messages = nil
	v.sendErr = nil
	v.mu.Unlock()

	if prev != nil {
		prev()
	}

	cancel, err := v.convs.Subscribe(ctx, channelID, peer, func(msgs []*models.ChatMessage) {
		v.deliver(gen, msgs)
	})
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.gen != gen {
		// closed or switched while subscribing
		v.mu.Unlock()
		cancel()
		return nil
	}
	v.cancel = cancel
	v.mu.Unlock()
	return nil
}

func (v *ChatView) deliver(gen uint64, msgs []*models.ChatMessage) {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.messages = msgs
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetDraft replaces the text being composed.
func (v *ChatView) SetDraft(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
}

// Draft returns the text being composed.
func (v *ChatView) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Send posts the draft. The draft is cleared up front and restored if the
// send fails; the failure is also kept for Err. Blank drafts are not sent.
func (v *ChatView) Send(ctx context.Context) error {
	v.mu.Lock()
	text := strings.TrimSpace(v.draft)
	channelID, peer := v.channelID, v.peer
	if channelID == "" {
		v.mu.Unlock()
		return ErrNoConversation
	}
	if text == "" {
		v.mu.Unlock()
		return nil
	}
	original := v.draft
	v.draft = ""
	v.sendErr = nil
	v.mu.Unlock()

	_, err := v.convs.SendMessage(ctx, channelID, peer, text)

	v.mu.Lock()
	if err != nil {
		v.logger.Warn("send message failed", zap.String("channel_id", channelID), zap.Error(err))
		if v.draft == "" {
			v.draft = original
		}
		v.sendErr = err
	}
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
	return err
}

// Messages returns a copy of the last delivered snapshot.
func (v *ChatView) Messages() []*models.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*models.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

// Err returns the last send failure, cleared by the next send or Open.
func (v *ChatView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sendErr
}

// ChannelID returns the open conversation, or "".
func (v *ChatView) ChannelID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channelID
}

// Close cancels the subscription.
func (v *ChatView) Close() {
	v.mu.Lock()
	cancel := v.cancel
	v.cancel = nil
	v.gen++
	v.channelID = ""
	v.peer = ""
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
