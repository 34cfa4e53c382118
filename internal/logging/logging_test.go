package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "warn", Format: "json"}, &buf))

	log.Info().Msg("hidden")
	log.Warn().Str("profile", "gpt").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "gpt", entry["profile"])
	assert.Equal(t, "shown", entry["message"])
}

func TestInitRejectsUnknownValues(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Init(Config{Level: "trace"}, &buf))
	assert.Error(t, Init(Config{Format: "xml"}, &buf))
}

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	for _, name := range Levels {
		require.NoError(t, Init(Config{Level: name}, &buf))
		assert.Equal(t, name, zerolog.GlobalLevel().String())
	}

	require.NoError(t, Init(Config{}, &buf))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
