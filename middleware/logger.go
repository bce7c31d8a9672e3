package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"storefront/session"
)

type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *StatusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *StatusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Logger writes one access log line per request. The session id is read
// from sessionHeader on the response, since session resolution happens on
// the inner cart routes.
func Logger(logger *zap.Logger, sessionHeader string) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionHeader == "" {
		sessionHeader = session.DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &StatusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			logger.Info("request completed",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("session_id", w.Header().Get(sessionHeader)),
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Int("status", recorder.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
