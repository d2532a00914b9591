package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGlobal(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)

	assert.Error(t, NewGlobal("loud", false, ""))

	file := filepath.Join(t.TempDir(), "mas.log")
	require.NoError(t, NewGlobal("warn", false, file))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("dropped")
	log.Warn().Str(StageField, "plan").Msg("kept")

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"stage":"plan"`)
	assert.NotContains(t, string(b), "dropped")
}
