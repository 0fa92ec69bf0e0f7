package schemarecon

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// NewTestLogger returns a [TestLogger] writing to the output of t. It accepts
// any [testing.TB], so benchmarks and template-database helpers can share it.
func NewTestLogger(t testing.TB) TestLogger {
	return TestLogger{t}
}

// TestLogger implements the [Logger] and [Helper] interfaces and writes every
// log line to a test's output, so that reconciliation logs show up next to
// the failing assertion.
type TestLogger struct {
	testing.TB
}

// Log writes `level: msg key=value ...` to the test output. Values containing
// whitespace are quoted, so a rendered DDL statement stays on one field.
func (t TestLogger) Log(_ context.Context, level LogLevel, msg string, fields ...LogField) {
	t.Helper()
	var line strings.Builder
	fmt.Fprintf(&line, "%s: %s", level, msg)
	for _, field := range fields {
		value := fmt.Sprint(field.Value)
		if strings.ContainsAny(value, " \t\n") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(&line, " %s=%s", field.Key, value)
	}
	t.TB.Log(line.String())
}
