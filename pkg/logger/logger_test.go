package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBatch_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("inventory-service", &buf)

	log.WithComponent("distribution").WithBatch("b-1", "PAD/20240115/ALW/HF/123").Info().Msg("recorded")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "inventory-service", line["service"])
	assert.Equal(t, "distribution", line["component"])
	assert.Equal(t, "b-1", line["batch_id"])
	assert.Equal(t, "PAD/20240115/ALW/HF/123", line["pad_batch_id"])
	assert.Equal(t, "recorded", line["message"])
}

func TestNop_DiscardsOutput(t *testing.T) {
	log := Nop()
	log.Error().Msg("nothing to see")
	assert.NotNil(t, log.WithRequestID("r"))
}
