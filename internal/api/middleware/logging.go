// Package middleware provides HTTP middleware for the speech service.
package middleware

import (
	"net/http"
	"time"

	"github.com/book-expert/logger"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const logFmtRequest = "%s %s -> %d (%d bytes) in %s [request_id=%s]"

// Logging logs one line per request with its status, size, and latency.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			log.Info(
				logFmtRequest,
				r.Method,
				r.URL.Path,
				wrapped.Status(),
				wrapped.BytesWritten(),
				time.Since(started).Round(time.Millisecond),
				chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
