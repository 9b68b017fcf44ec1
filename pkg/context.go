package pkg

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const (
	ContextLoggerKey    contextKey = "logger"
	ContextRequestIdKey contextKey = "request_id"
)

// LoggerFromContext returns the logger stored in ctx or the standard logrus logger
// when there is none (e.g. in queue consumers started without middleware).
func LoggerFromContext(ctx context.Context) log.FieldLogger {
	if logger, ok := ctx.Value(ContextLoggerKey).(log.FieldLogger); ok {
		return logger
	}
	return log.StandardLogger()
}

func WithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ContextLoggerKey, logger)
}
