package schemarecon

import (
	"context"
)

// LogLevel represents the severity of the log message, and is one of
//   - [LogLevelDebug]
//   - [LogLevelInfo]
//   - [LogLevelWarning]
//   - [LogLevelError]
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelError   LogLevel = "error"
	LogLevelWarning LogLevel = "warning"
)

// LogField holds a key/value pair for structured logging.
type LogField struct {
	Key   string
	Value any
}

// Logger is the structured logging interface used by the [Reconciler]. Write
// a small adapter to plug in whichever logging library your service uses; the
// schemarecon CLI adapts it to charmbracelet/log.
type Logger interface {
	Log(context.Context, LogLevel, string, ...LogField)
}

// Helper is an optional interface that a [Logger] can implement to keep the
// reconciler's own logging helpers out of stack traces and file:line
// prefixes, primarily in tests. If a Logger implements it, the reconciler
// calls Helper() from every internal helper that writes to the logger.
//
// For instance, [TestLogger] embeds a [testing.TB], which implements
// Helper(), so test output points at the reconciler call that logged rather
// than at the logging plumbing.
//
// Implementing Helper is not required; any [Logger] works without it.
type Helper interface {
	Helper()
}
