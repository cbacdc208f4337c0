package adminauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/2moomoo/llmgateway/internal/httpserver"
)

type contextKey string

const usernameKey contextKey = "admin_username"

// UsernameFromContext returns the authenticated admin username, or "" if none.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// RequireAdmin validates the bearer admin token on every request and injects
// the authenticated username into the request context.
func RequireAdmin(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpserver.RespondError(w, http.StatusUnauthorized, "auth_missing", "missing authentication credentials")
				return
			}

			principal, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				httpserver.RespondAppError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, principal.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
