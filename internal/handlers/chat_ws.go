package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = wsPongWait * 2 / 3
	wsReadLimit  = 4 * 1024
)

// newUpgrader accepts websocket handshakes from the configured front-end
// origins and from non-browser clients, which send no Origin.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, a := range allowedOrigins {
				if strings.EqualFold(strings.TrimSpace(a), origin) {
					return true
				}
			}
			return false
		},
	}
}

// Subscribe handles GET /ws/chats/{channelID}?with={peer}. The connection
// receives the full ordered message list on connect and again after every
// change. Messages are sent over HTTP; frames from the client are ignored.
func (h *ChatHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	channelID := chi.URLParam(r, "channelID")
	peer := r.URL.Query().Get("with")

	if _, err := h.chats.Authorize(me, channelID, peer); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	// subscribe before the first read so no change falls between the two
	notify, unsubscribe := h.hub.Subscribe(channelID)
	defer unsubscribe()

	msgs, err := h.chats.Open(r.Context(), me, channelID, peer)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.RecordSubscribers(1)
	defer h.metrics.RecordSubscribers(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.drain(conn, cancel)

	if err := h.writeEvent(conn, models.ChatEvent{Type: models.ChatEventSnapshot, ChannelID: channelID, Messages: nonNil(msgs)}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-notify:
			msgs, err := h.chats.Snapshot(ctx, channelID)
			evt := models.ChatEvent{Type: models.ChatEventSnapshot, ChannelID: channelID, Messages: nonNil(msgs)}
			if err != nil {
				h.logger.Warn("chat snapshot failed", zap.String("channel_id", channelID), zap.Error(err))
				evt = models.ChatEvent{Type: models.ChatEventError, ChannelID: channelID, Error: "failed to load messages"}
			}
			if err := h.writeEvent(conn, evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// drain reads until the peer goes away, keeping the read deadline fresh on
// pongs, then cancels the writer.
func (h *ChatHandler) drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *ChatHandler) writeEvent(conn *websocket.Conn, evt models.ChatEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(evt)
}

func nonNil(msgs []*models.ChatMessage) []*models.ChatMessage {
	if msgs == nil {
		return []*models.ChatMessage{}
	}
	return msgs
}
