package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"golang.org/x/exp/slog"

	"github.com/optyshop/schemarecon"
	"github.com/optyshop/schemarecon/logging"
)

func TestSlogWritesFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewSlog(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	logger.Log(context.Background(), schemarecon.LogLevelWarning, "target changed since it was applied",
		schemarecon.LogField{Key: "target", Value: "add_banner_columns"},
		schemarecon.LogField{Key: "step", Value: 2},
	)

	var line map[string]any
	assert.Nil(t, json.Unmarshal(buf.Bytes(), &line))
	check.Equal(t, "WARN", line["level"])
	check.Equal(t, "target changed since it was applied", line["msg"])
	check.Equal(t, "add_banner_columns", line["target"])
	check.Equal[any](t, float64(2), line["step"])
}

func TestSlogRespectsHandlerLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewSlog(slog.New(slog.NewTextHandler(&buf, nil)))
	logger.Log(context.Background(), schemarecon.LogLevelDebug, "SELECT EXISTS (...)")
	check.Equal(t, "", buf.String())

	logger.Log(context.Background(), schemarecon.LogLevelError, "failed",
		schemarecon.LogField{Key: "error", Value: errors.New("boom")},
	)
	check.True(t, strings.Contains(buf.String(), "level=ERROR"))
	check.True(t, strings.Contains(buf.String(), "error=boom"))
}

func TestLevel(t *testing.T) {
	t.Parallel()
	check.Equal(t, slog.LevelDebug, logging.Level(schemarecon.LogLevelDebug))
	check.Equal(t, slog.LevelInfo, logging.Level(schemarecon.LogLevelInfo))
	check.Equal(t, slog.LevelWarn, logging.Level(schemarecon.LogLevelWarning))
	check.Equal(t, slog.LevelError, logging.Level(schemarecon.LogLevelError))
	check.Equal(t, slog.LevelInfo, logging.Level("trace"))
}

func TestNewSlogDefaults(t *testing.T) {
	t.Parallel()
	check.NotEqual(t, nil, logging.NewSlog(nil).Logger)
}
