package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.log")
	original := log.Logger
	t.Cleanup(func() { log.Logger = original })

	for _, msg := range []string{"first", "second"} {
		closer, err := Setup(Options{Level: "info", File: path})
		require.NoError(t, err)
		log.Info().Msg(msg)
		require.NoError(t, closer.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	for i, want := range []string{"first", "second"} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &entry))
		assert.Equal(t, want, entry["message"])
		assert.NotEmpty(t, entry["time"])
	}
}

func TestSetupLevel(t *testing.T) {
	original := log.Logger
	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	_, err := Setup(Options{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	_, err = Setup(Options{Level: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetupUnwritableFile(t *testing.T) {
	_, err := Setup(Options{File: filepath.Join(t.TempDir(), "missing", "enrich.log")})
	assert.Error(t, err)
}

func TestNewTimestamps(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"time":`)
}
