package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(EnvProd, &buf)

	log.Debug("hidden")
	log.Info("booked", "therapist", "ana")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "booked", line["msg"])
	assert.Equal(t, "ana", line["therapist"])
}

func TestPrettyHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	log := newLogger(EnvLocal, &buf).With("component", "agenda")
	log.Error("load failed", Err(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "ERROR:")
	assert.Contains(t, out, "load failed")
	assert.Contains(t, out, `"error": "boom"`)
	assert.Contains(t, out, `"component": "agenda"`)
}
