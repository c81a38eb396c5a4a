package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithFormat(&buf, "prod", "json")
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))

	log.Info("receipt processed", "receipt_id", 7)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "receipt processed", rec["msg"])
	assert.Equal(t, 7.0, rec["receipt_id"])

	buf.Reset()
	log = NewWithFormat(&buf, "dev", "text")
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
