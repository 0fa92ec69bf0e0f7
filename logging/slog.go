// Package logging adapts structured loggers to [schemarecon.Logger].
package logging

import (
	"context"

	"golang.org/x/exp/slog"

	"github.com/optyshop/schemarecon"
)

// Slog writes reconciler logs through a [slog.Logger]. Fields become
// attributes in the order they were given.
type Slog struct {
	*slog.Logger
}

// NewSlog returns a [Slog] that uses logger, or [slog.Default] if logger is
// nil.
func NewSlog(logger *slog.Logger) Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return Slog{logger}
}

func (l Slog) Log(ctx context.Context, level schemarecon.LogLevel, msg string, fields ...schemarecon.LogField) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, field := range fields {
		attrs = append(attrs, slog.Any(field.Key, field.Value))
	}
	l.Logger.LogAttrs(ctx, Level(level), msg, attrs...)
}

// Level maps a reconciler log level to a slog level. Unknown levels are
// logged at info.
func Level(level schemarecon.LogLevel) slog.Level {
	switch level {
	case schemarecon.LogLevelDebug:
		return slog.LevelDebug
	case schemarecon.LogLevelWarning:
		return slog.LevelWarn
	case schemarecon.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
