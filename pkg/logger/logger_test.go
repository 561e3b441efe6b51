package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	assert.NotNil(t, logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger(t *testing.T) {
	t.Run("falls back to the global logger", func(t *testing.T) {
		entry := G(context.Background())
		assert.Equal(t, L.Logger, entry.Logger)
	})

	t.Run("returns the context logger", func(t *testing.T) {
		custom := logrus.NewEntry(logrus.New()).WithField("document", "rules/a.md")
		ctx := WithLogger(context.Background(), custom)

		entry := G(ctx)
		assert.Equal(t, "rules/a.md", entry.Data["document"])
	})

	t.Run("chained entries keep earlier fields", func(t *testing.T) {
		ctx := WithLogger(context.Background(), logrus.NewEntry(logrus.New()).WithField("command", "check-references"))
		ctx = WithLogger(ctx, G(ctx).WithField("root", "/tmp/docs"))

		entry := G(ctx)
		assert.Equal(t, "check-references", entry.Data["command"])
		assert.Equal(t, "/tmp/docs", entry.Data["root"])
	})
}

func TestWithRun(t *testing.T) {
	ctx, runID := WithRun(context.Background(), "match-skills")

	_, err := uuid.Parse(runID)
	require.NoError(t, err)

	entry := G(ctx)
	assert.Equal(t, runID, entry.Data["run_id"])
	assert.Equal(t, "match-skills", entry.Data["command"])

	_, other := WithRun(context.Background(), "match-skills")
	assert.NotEqual(t, runID, other)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	setLoggerFormat(logger, "json")

	ctx := WithLogger(context.Background(), logrus.NewEntry(logger))
	G(ctx).WithField("broken", 2).Info("reference check complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "info", entry["logLevel"])
	assert.Equal(t, "reference check complete", entry["message"])
	assert.Equal(t, float64(2), entry["broken"])

	ts, ok := entry["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("chatty"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}

func TestSetLogFormat(t *testing.T) {
	defer SetLogFormat("fmt")

	SetLogFormat("json")
	assert.IsType(t, &logrus.JSONFormatter{}, L.Logger.Formatter)

	SetLogFormat("unknown")
	assert.IsType(t, &logrus.TextFormatter{}, L.Logger.Formatter)
}
