package middleware

import (
	"context"
	"log/slog"

	"github.com/MohitSaini10/dan-aliph/service"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "requestID"
)

func WithSession(ctx context.Context, s *service.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the verified session, if the request carried one.
func SessionFromContext(ctx context.Context) (*service.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*service.Session)
	return s, ok && s != nil
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the request-scoped logger, or slog.Default outside a request.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
