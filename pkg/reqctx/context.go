// Package reqctx carries request-scoped values through context.Context:
// the request metadata set by the HTTP middleware and, for authenticated
// requests, the token claims. Services read the caller from here instead of
// taking it as a parameter.
package reqctx

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keyClaims
)

// RequestMeta is attached to every HTTP request.
type RequestMeta struct {
	RequestID   string
	ClientIP    string
	UserAgent   string
	RequestedAt time.Time
}

func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" outside an HTTP request.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}

// LogAttrs returns the request id and caller as slog key/value pairs, for
// log lines written far from the middleware.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if claims := ClaimsFromContext(ctx); claims != nil {
		attrs = append(attrs,
			slog.String("user_id", claims.GetUserID().String()),
			slog.String("role", claims.GetRole()))
	}
	return attrs
}
