package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/actualbridge/actualbridge/internal/log"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logging logs one line per request. The metrics endpoint is kept quiet: it
// is scraped constantly and says nothing interesting.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			slog.String(log.MethodKey, r.Method),
			slog.String(log.PathKey, r.URL.Path),
			slog.Int(log.StatusKey, rec.status),
			slog.Int64(log.DurationKey, time.Since(start).Milliseconds()))
	})
}
