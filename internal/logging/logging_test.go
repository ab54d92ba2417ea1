package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(DebugLevel))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(WarnLevel))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(ErrorLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(InfoLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Level: InfoLevel, JSONOutput: true, Output: &buf}), "sync")

	logger.Debug().Msg("hidden")
	logger.Info().Str("email", "a@x.com").Msg("user added")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user added", entry["message"])
	assert.Equal(t, "a@x.com", entry["email"])
	assert.Equal(t, "sync", entry["component"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_ConsoleDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelOf(true), Output: &buf})

	logger.Debug().Msg("team resolved")
	assert.Contains(t, buf.String(), "team resolved")
	assert.Equal(t, InfoLevel, LevelOf(false))
}
