package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// Chat send rate limit: per user, 1 message/s with a burst of 10. Reads
// are not limited here.
const (
	chatSendRPS   = 1
	chatSendBurst = 10
)

// ChatSendRateLimit throttles POST requests per authenticated user. It must
// run after RequireAuth; requests without claims pass through.
func ChatSendRateLimit() func(http.Handler) http.Handler {
	limiter := newKeyedLimiter(rate.Limit(chatSendRPS), chatSendBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if r.Method != http.MethodPost || !ok {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.allow(claims.UserID) {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(chatSendBurst))
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "You are sending messages too quickly.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
