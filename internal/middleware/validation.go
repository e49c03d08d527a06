package middleware

import (
	"net/http"
	"strings"

	"clinicore/internal/infrastructure"
)

// RequireJSON rejects write requests whose Content-Type is not JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				problem := ProblemFromStatus(
					http.StatusUnsupportedMediaType,
					"Content-Type must be application/json",
					infrastructure.GetTraceID(r.Context()),
				)
				problem.Render(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize caps the request body to limit bytes.
func MaxBodySize(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
