package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewWriterEmitsJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: "debug", Command: "watch", PID: 42})

	l.With("component", "surface").Info("mounted", "user_id", 7)

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "mounted", entries[0]["msg"])
	assert.Equal(t, "surface", entries[0]["component"])
	assert.Equal(t, "watch", entries[0]["command"])
	assert.EqualValues(t, 7, entries[0]["user_id"])
}

func TestRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: "info"})

	l.Info("login", "auth_token", "abc.def.ghi", "password", "hunter2", "username", "medecin")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0]["auth_token"])
	assert.Equal(t, "[REDACTED]", entries[0]["password"])
	assert.Equal(t, "medecin", entries[0]["username"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: "warn"})

	l.Info("dropped")
	l.Warn("kept")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["msg"])
}

func TestInitDisabledReturnsNoop(t *testing.T) {
	l, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, noopLogger{}, l)
	assert.NoError(t, l.Shutdown())
}

func TestInitWritesFileAndRotates(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, filePrefix+"old"+string(rune('a'+i))+".log")
		require.NoError(t, os.WriteFile(name, []byte("{}\n"), 0o600))
		past := time.Now().Add(-time.Duration(10-i) * time.Minute)
		require.NoError(t, os.Chtimes(name, past, past))
	}

	l, err := Init(Config{Enabled: true, Level: "info", MaxFiles: 2, Dir: dir, Command: "follow", PID: 1})
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Shutdown())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	_, err = os.Stat(filepath.Join(dir, filePrefix+"olda.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestFromGlobalConfigDebugWins(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("XDG_STATE_HOME", tmp)
	t.Setenv(config.EnvPrefix+"LOGGING_ENABLED", "true")
	t.Setenv(config.EnvPrefix+"LOGGING_LEVEL", "warn")
	t.Setenv(config.EnvPrefix+"DEBUG", "true")
	config.Load()

	cfg := FromGlobalConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, os.Getpid(), cfg.PID)
}

func TestGlobalFallsBackToNoop(t *testing.T) {
	require.NoError(t, ShutdownGlobal())
	assert.Equal(t, noopLogger{}, GetGlobal())
	assert.Empty(t, CurrentLogFile())
}
