package shared

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/optyshop/schemarecon"
)

type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

func NewLogger(w io.Writer, format LogFormat) (*log.Logger, error) {
	switch format {
	case LogFormatText:
		return log.NewWithOptions(w, log.Options{Formatter: log.TextFormatter}), nil
	case LogFormatJSON:
		return log.NewWithOptions(w, log.Options{Formatter: log.JSONFormatter}), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

// LogAdapter lets the reconciler log through a charmbracelet logger.
type LogAdapter struct {
	*log.Logger
}

func (l LogAdapter) Log(_ context.Context, level schemarecon.LogLevel, msg string, fields ...schemarecon.LogField) {
	args := make([]any, 0, 2*len(fields))
	for _, field := range fields {
		args = append(args, field.Key, field.Value)
	}
	switch level {
	case schemarecon.LogLevelDebug:
		l.Logger.Debug(msg, args...)
	case schemarecon.LogLevelInfo:
		l.Logger.Info(msg, args...)
	case schemarecon.LogLevelWarning:
		l.Logger.Warn(msg, args...)
	case schemarecon.LogLevelError:
		l.Logger.Error(msg, args...)
	}
}
