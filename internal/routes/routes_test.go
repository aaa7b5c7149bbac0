package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/handlers"
	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (*services.Claims, error) {
	return nil, services.ErrUnauthenticated
}

func newRouter() chi.Router {
	logger := zap.NewNop()
	r := chi.NewRouter()
	SetupRoutes(r, Handlers{
		Auth:   handlers.NewAuthHandler(nil, logger),
		Users:  handlers.NewUserHandler(nil, logger),
		Photos: handlers.NewPhotoHandler(nil, nil, logger),
		Chats:  handlers.NewChatHandler(nil, nil, nil, metrics.Nop{}, nil, logger),
		Health: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		},
	}, denyAll{})
	return r
}

func TestRouteTable(t *testing.T) {
	got := map[string]bool{}
	err := chi.Walk(newRouter(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for _, want := range []string{
		"GET /health",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"POST /api/auth/federated-login",
		"POST /api/auth/firebase-login",
		"GET /api/auth/user",
		"POST /api/auth/logout",
		"GET /api/users/",
		"POST /api/users/",
		"POST /api/users/photo",
		"GET /api/users/{id}",
		"GET /api/users/by-provider-id/{pid}",
		"GET /api/users/by-google-id/{pid}",
		"GET /api/chats/",
		"GET /api/chats/{channelID}/messages",
		"POST /api/chats/{channelID}/messages",
		"GET /ws/chats/{channelID}",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestProtectedRoutesRequireCredential(t *testing.T) {
	r := newRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/user"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPost, "/api/users"},
		{http.MethodPost, "/api/users/photo"},
		{http.MethodGet, "/api/chats"},
		{http.MethodPost, "/api/chats/uidA_uidB/messages"},
		{http.MethodGet, "/ws/chats/uidA_uidB?with=uidB"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
