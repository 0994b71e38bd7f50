package proxy

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey int

const requestIDKey contextKey = 0

// AccessLog tags each request with a correlation ID (not persisted,
// distinct from an Exchange's storage ID) and logs method/path/duration in
// the teacher's terse style. It only attaches the ID to the context; the
// forwarder sets the X-Relay-Request-Id response header itself, after
// copying the upstream's headers, so the tag is never clobbered by
// anything forwarded from upstream.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Printf("[%s] %s %s id=%s -> %v", r.Method, r.URL.Path, r.RemoteAddr, id, time.Since(start))
	})
}

// RequestID recovers the correlation ID AccessLog attached to ctx, or ""
// if called outside the AccessLog wrapper.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
