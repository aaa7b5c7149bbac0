package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const wsHandshakeTimeout = 10 * time.Second

// WSTransport opens live channel subscriptions over the API websocket.
type WSTransport struct {
	base   string
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewWSTransport derives the websocket endpoint from the client's base url.
func NewWSTransport(c *Client) *WSTransport {
	base := c.BaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WSTransport{
		base: base,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: wsHandshakeTimeout,
		},
		logger: c.logger,
	}
}

// Subscribe connects to channelID and calls deliver with every snapshot the
// server pushes, starting with the current one. deliver runs on the reader
// goroutine. cancel closes the connection and waits for the reader to exit;
// it is safe to call more than once.
func (t *WSTransport) Subscribe(ctx context.Context, token, channelID, peer string, deliver func([]*models.ChatMessage)) (cancel func(), err error) {
	target := t.base + "/ws/chats/" + pathID(channelID) + "?" + url.Values{"with": {peer}}.Encode()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := t.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			if serr := statusError(resp.StatusCode); serr != nil {
				return nil, fmt.Errorf("subscribe %s: %w", channelID, serr)
			}
		}
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrTransient, channelID, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt models.ChatEvent
			if err := conn.ReadJSON(&evt); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.logger.Debug("chat subscription ended", zap.String("channel_id", channelID), zap.Error(err))
				}
				return
			}
			switch evt.Type {
			case models.ChatEventSnapshot:
				msgs := evt.Messages
				if msgs == nil {
					msgs = []*models.ChatMessage{}
				}
				deliver(msgs)
			case models.ChatEventError:
				t.logger.Warn("chat subscription error", zap.String("channel_id", channelID), zap.String("error", evt.Error))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			<-done
		})
	}, nil
}
