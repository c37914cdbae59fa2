// Package requestctx carries per-request values (logger, trace, session) through context.Context.
package requestctx

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey  contextKey = "storefront/requestctx/logger"
	traceContextKey   contextKey = "storefront/requestctx/trace"
	sessionContextKey contextKey = "storefront/requestctx/session"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Session identifies the anonymous shopper a request belongs to.
type Session struct {
	ID string
	// Issued is true when the id was minted for this request rather than sent by the client.
	Issued bool
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithSession stores the shopper session on the context. Blank ids are ignored.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFrom returns the session stored on the context.
func SessionFrom(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// SessionID returns the session id, or "" when the request carries none.
func SessionID(ctx context.Context) string {
	session, _ := SessionFrom(ctx)
	return session.ID
}
