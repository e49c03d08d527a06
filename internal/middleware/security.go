package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"clinicore/internal/infrastructure"
)

type ownerKey struct{}

// OwnerAuth extracts the calling user's identity. The engine sits behind the
// clinic's gateway, which authenticates and forwards the user id in
// X-Owner-ID (or as a bearer token). Requests without an identity are
// rejected.
func OwnerAuth(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ownerID := r.Header.Get("X-Owner-ID")
			if ownerID == "" {
				if auth := r.Header.Get("Authorization"); auth != "" {
					parts := strings.SplitN(auth, " ", 2)
					if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
						ownerID = parts[1]
					}
				}
			}

			if ownerID == "" {
				logger.WarnContext(ctx, "missing owner identity",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)

				problem := ProblemFromStatus(
					http.StatusUnauthorized,
					"Missing owner identity",
					infrastructure.GetTraceID(ctx),
				)
				problem.Render(w, r)
				return
			}

			ctx = context.WithValue(ctx, ownerKey{}, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerID retrieves the authenticated owner id from context.
func OwnerID(ctx context.Context) string {
	if id, ok := ctx.Value(ownerKey{}).(string); ok {
		return id
	}
	return ""
}
