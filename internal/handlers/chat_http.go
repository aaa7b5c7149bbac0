package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

// ChatServiceInterface is what the chat handlers need from services.ChatService.
type ChatServiceInterface interface {
	Authorize(me *models.User, channelID, peer string) ([]string, error)
	Open(ctx context.Context, me *models.User, channelID, peer string) ([]*models.ChatMessage, error)
	Snapshot(ctx context.Context, channelID string) ([]*models.ChatMessage, error)
	Send(ctx context.Context, me *models.User, channelID string, req models.SendMessageRequest) (*models.ChatMessage, error)
	Channels(ctx context.Context, me *models.User) ([]*models.Channel, error)
}

// ChatSubscriber delivers change notifications. services.ChatHub implements it.
type ChatSubscriber interface {
	Subscribe(channelID string) (<-chan struct{}, func())
}

type ChannelsResponse struct {
	Success  bool              `json:"success"`
	Channels []*models.Channel `json:"channels"`
}

// MessagesResponse holds the full ordered history of a channel.
type MessagesResponse struct {
	Success   bool                  `json:"success"`
	ChannelID string                `json:"channel_id"`
	Messages  []*models.ChatMessage `json:"messages"`
}

type SendMessageResponse struct {
	Success     bool                `json:"success"`
	ChatMessage *models.ChatMessage `json:"chat_message"`
}

type ChatHandler struct {
	chats    ChatServiceInterface
	users    UserServiceInterface
	hub      ChatSubscriber
	metrics  metrics.Recorder
	logger   *zap.Logger
	upgrader websocket.Upgrader

	done     chan struct{}
	doneOnce sync.Once
}

func NewChatHandler(chats ChatServiceInterface, users UserServiceInterface, hub ChatSubscriber, rec metrics.Recorder, allowedOrigins []string, logger *zap.Logger) *ChatHandler {
	h := &ChatHandler{
		chats:    chats,
		users:    users,
		hub:      hub,
		metrics:  rec,
		logger:   logger,
		upgrader: newUpgrader(allowedOrigins),
		done:     make(chan struct{}),
	}
	return h
}

// Shutdown closes every open websocket subscription.
func (h *ChatHandler) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
}

// currentUser loads the caller's profile. A credential whose user is gone
// is treated as unauthenticated.
func (h *ChatHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
		return nil, false
	}
	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInvalidInput) {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User no longer exists")
			return nil, false
		}
		handleServiceError(w, h.logger, err)
		return nil, false
	}
	return user, true
}

// Channels handles GET /api/chats.
func (h *ChatHandler) Channels(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	channels, err := h.chats.Channels(r.Context(), me)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	writeJSON(w, http.StatusOK, ChannelsResponse{Success: true, Channels: channels})
}

// Messages handles GET /api/chats/{channelID}/messages?with={peer}. The
// channel is created on first access.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	channelID := chi.URLParam(r, "channelID")

	msgs, err := h.chats.Open(r.Context(), me, channelID, r.URL.Query().Get("with"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Success: true, ChannelID: channelID, Messages: msgs})
}

// Send handles POST /api/chats/{channelID}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chats.Send(r.Context(), me, chi.URLParam(r, "channelID"), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, SendMessageResponse{Success: true, ChatMessage: msg})
}
