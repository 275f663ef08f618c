package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/sirupsen/logrus"
)

// RequestLogger stores a request-scoped logrus entry in the context and logs
// every request once it completes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		entry := config.WithContext(r.Context())
		ctx := config.ContextWithLogger(r.Context(), entry)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := entry.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
		if status >= http.StatusInternalServerError {
			fields.Error("Request completed")
			return
		}
		fields.Info("Request completed")
	})
}
