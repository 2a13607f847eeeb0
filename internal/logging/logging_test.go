package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalIsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(EnvLocal, &buf)

	log.Debug("hello", "user_id", "u1")

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=DEBUG"), out)
	assert.True(t, strings.Contains(out, "user_id=u1"), out)
}

func TestNewDevIsJSONAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(EnvDev, &buf)

	log.Debug("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewProdDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(EnvProd, &buf)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestUnknownEnvFallsBackToProd(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("staging", &buf).Debug("hidden")
	assert.Zero(t, buf.Len())
}
