package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/blagoySimandov/rowenrich/internal/logging"
)

const internalServerError = "Internal server error"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware emits one wide event per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		event := logging.NewWideEvent(logging.EventHTTPRequest)
		ctx := logging.WithContext(r.Context(), event)
		logging.EnrichHTTP(ctx, r.Method, r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			logging.EnrichHTTPStatus(ctx, rec.status)
			logging.EnrichHTTPDuration(ctx, time.Since(start))
			logging.Emit(ctx)
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.EnrichPanic(r.Context())
				logging.EnrichError(r.Context(), fmt.Errorf("panic: %v", err))
				writeJSONError(w, http.StatusInternalServerError, "internal", internalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
}
