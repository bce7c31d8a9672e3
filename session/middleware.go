package session

import (
	"context"
	"net/http"
)

type ctxKey string

const sessionIDKey ctxKey = "session_id"

// Middleware resolves the session for every request and echoes it back in
// the response header before the wrapped handler writes anything.
func Middleware(resolver *Resolver, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolver.Resolve(r.Header.Get(header))

			w.Header().Set(header, id)
			w.Header().Add("Access-Control-Expose-Headers", header)

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID stores a session id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// FromContext returns the session id resolved for the request, or "".
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}
