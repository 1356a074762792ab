package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "prod", "warn")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept", "scheduleId", "s1")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "maintenance-engine", line["service"])
	assert.Equal(t, "s1", line["scheduleId"])
}

func TestDevEnvLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "dev", "error").Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
