package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Titansingh/ProfessionalBackend/pkg/logger"
)

// RequestLogger stores a per-request logger in context, enriched with
// correlation_id, user_id and, inside a traced request, trace_id/span_id.
// Handlers fetch it with logger.FromContext. Mount after RequestLogging and
// Tracing so those fields are already present; for the user ID it falls back
// to the X-User-ID header when Auth has not run.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get("X-User-ID")
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
