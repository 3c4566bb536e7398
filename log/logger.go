package log

import (
	"log/slog"
)

// Logger is a basic logger interface. Fields have to be passed in pairs as
// "key", "value".
type Logger interface {
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Panic(msg string, fields ...interface{})

	// With returns a logger instance that adds the given fields to every
	// logged message.
	With(fields ...interface{}) Logger
}

// Default returns a Logger backed by slog.Default(). It's what every
// Channel uses unless constructed with WithLogger.
func Default() Logger {
	return &slogLogger{handler: slog.Default()}
}

// NewSlogLogger wraps an arbitrary *slog.Logger as a Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{handler: l}
}

type slogLogger struct {
	handler *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...interface{}) {
	l.handler.Debug(msg, fields...)
}

func (l *slogLogger) Warn(msg string, fields ...interface{}) {
	l.handler.Warn(msg, fields...)
}

func (l *slogLogger) Error(msg string, fields ...interface{}) {
	l.handler.Error(msg, fields...)
}

func (l *slogLogger) Panic(msg string, fields ...interface{}) {
	l.handler.Error(msg, fields...)
	panic(msg)
}

func (l *slogLogger) With(fields ...interface{}) Logger {
	return &slogLogger{handler: l.handler.With(fields...)}
}
