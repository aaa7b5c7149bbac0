package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/skillswap-backend/internal/services"
)

type contextKey string

var claimsContextKey = contextKey("claims")

// Authenticator validates bearer credentials. services.AuthService
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Claims, error)
}

// BearerToken extracts the credential from the Authorization header or the
// legacy x-auth-token header. Websocket upgrades may also pass it as the
// token query parameter since browsers cannot set headers on them.
func BearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			return strings.TrimSpace(auth[7:])
		}
	}
	if token := strings.TrimSpace(r.Header.Get("x-auth-token")); token != "" {
		return token
	}
	if websocket.IsWebSocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

// RequireAuth rejects requests without a valid credential and stores the
// claims of valid ones in the request context.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "No token, authorization denied")
				return
			}
			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnavailable) {
					writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Authentication is temporarily unavailable")
					return
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Token is not valid")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*services.Claims)
	return claims, ok && claims != nil
}

func ContextWithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"code":"` + code + `","message":"` + message + `"}`))
}
