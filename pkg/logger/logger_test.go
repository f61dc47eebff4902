package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(Config{Env: "production", Level: "debug", Service: "worker"}, &buf)

	comp := l.Component("balance")
	comp.Info().Int64("product_id", 7).Msg("saldo recalculado")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "worker", entry["service"])
	assert.Equal(t, "balance", entry["component"])
	assert.Equal(t, float64(7), entry["product_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", parseLevel("warn").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("ruido").String())
}

func TestNop_NoEscribe(t *testing.T) {
	l := Nop()
	l.Error().Msg("nada")
	assert.Equal(t, "disabled", l.Zerolog().GetLevel().String())
}
