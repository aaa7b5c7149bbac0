package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/skillswap-backend/internal/handlers"
	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Users   *handlers.UserHandler
	Photos  *handlers.PhotoHandler
	Chats   *handlers.ChatHandler
	Health  http.HandlerFunc
	Metrics http.Handler
}

func SetupRoutes(r chi.Router, h Handlers, auth middleware.Authenticator) {
	requireAuth := middleware.RequireAuth(auth)

	r.Get("/health", h.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/federated-login", h.Auth.FederatedLogin)
		// Legacy alias for front ends that still post firebaseUid
		r.Post("/firebase-login", h.Auth.FederatedLogin)

		r.With(requireAuth).Get("/user", h.Auth.Me)
		r.With(requireAuth).Post("/logout", h.Auth.Logout)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.Users.List)
		r.Get("/{id}", h.Users.Get)
		r.Get("/by-provider-id/{pid}", h.Users.GetByProviderID)
		r.Get("/by-google-id/{pid}", h.Users.GetByProviderID)

		r.With(requireAuth).Post("/", h.Users.UpdateProfile)
		r.With(requireAuth).Post("/photo", h.Photos.Upload)
	})

	r.Route("/api/chats", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.ChatSendRateLimit())
		r.Get("/", h.Chats.Channels)
		r.Get("/{channelID}/messages", h.Chats.Messages)
		r.Post("/{channelID}/messages", h.Chats.Send)
	})

	// Realtime subscription; browsers pass the token as a query parameter
	r.With(requireAuth).Get("/ws/chats/{channelID}", h.Chats.Subscribe)
}
