package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerFallsBackToGlobal(t *testing.T) {
	entry := GetLogger(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	custom := logrus.NewEntry(logrus.New()).WithField("component", "suggest")
	ctx := WithLogger(context.Background(), custom)

	got := GetLogger(ctx)
	assert.Equal(t, "suggest", got.Data["component"])
}

func TestSetLogLevel(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, SetLogLevel("debug"))
		assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
		require.NoError(t, SetLogLevel("info"))
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Error(t, SetLogLevel("chatty"))
	})
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogFormat("json")
	defer SetLogFormat("text")

	L.WithField("skillId", "pdf").Info("checked updates")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "checked updates", payload["message"])
	assert.Equal(t, "pdf", payload["skillId"])
	assert.Equal(t, "info", payload["logLevel"])
}
