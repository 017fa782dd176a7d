package auth

import (
	"context"
	"net/http"

	mw "github.com/snapsight/snapsight/internal/middleware"
)

// CallerContext is the verified identity a request runs under. It is built
// once per request from transport-level signals, never from body fields, and
// threaded through the orchestrator explicitly.
type CallerContext struct {
	// Identity is the quota scope key: "user#<client-id>", "user#ip:<addr>",
	// or "account#<id>" for privileged callers.
	Identity string

	// Privileged callers bypass the daily quota.
	Privileged bool
}

type contextKey string

const callerKey contextKey = "caller"

// Identify derives the public caller identity from request metadata:
// the X-Client-ID header when present, otherwise the client IP.
func Identify(r *http.Request) CallerContext {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return CallerContext{Identity: "user#" + id}
	}
	return CallerContext{Identity: "user#ip:" + mw.ClientIP(r)}
}

// WithCaller stores the caller on the request context.
func WithCaller(ctx context.Context, caller CallerContext) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the caller set by an auth middleware, or a zero
// value when none was set.
func CallerFromContext(ctx context.Context) (CallerContext, bool) {
	caller, ok := ctx.Value(callerKey).(CallerContext)
	return caller, ok
}
