package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirs(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv(EnvPrefix+"CONFIG_PATH", "")
	restore := colors.SetOutput(io.Discard, io.Discard)
	t.Cleanup(restore)
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	tmp := setupDirs(t)

	Load()

	assert.Equal(t, DefaultAPIBase, Get("api_base", ""))
	assert.Equal(t, filepath.Join(tmp, "state", "clinic-intray"), Get("state_dir", ""))
	assert.Equal(t, 30, GetInt("request_timeout_seconds", 0))
	assert.Equal(t, 5*time.Second, GetMillis("transient_ttl_ms", 0))
	assert.True(t, GetBool("history_enabled", false))
	assert.Equal(t, "keyring", Get("session_backend", ""))
}

func TestLoadCreatesSampleConfig(t *testing.T) {
	tmp := setupDirs(t)

	Load()

	data, err := os.ReadFile(filepath.Join(tmp, "config", "clinic-intray", "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# REST base URL of the clinic backend.\napi_base = ")
	assert.Contains(t, string(data), DefaultAPIBase)
	assert.Contains(t, string(data), "transient_ttl_ms = 5000")
	assert.NotContains(t, string(data), "dev_jwt_secret")
}

func TestEnvOverridesFile(t *testing.T) {
	tmp := setupDirs(t)
	path := filepath.Join(tmp, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_base = \"https://file.example/api\"\ntoast_duration_ms = 2500\nhistory_enabled = false\n"), 0o644))
	t.Setenv(EnvPrefix+"CONFIG_PATH", path)
	t.Setenv(EnvPrefix+"API_BASE", "https://env.example/api/")

	Load()

	assert.Equal(t, "https://env.example/api", Get("api_base", ""))
	assert.Equal(t, 2500*time.Millisecond, GetMillis("toast_duration_ms", 0))
	assert.False(t, GetBool("history_enabled", true))
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	setupDirs(t)
	t.Setenv(EnvPrefix+"SESSION_BACKEND", "cookie")
	t.Setenv(EnvPrefix+"TRANSIENT_TTL_MS", "-4")
	t.Setenv(EnvPrefix+"WS_URL", "http://not-a-socket")
	t.Setenv(EnvPrefix+"DEBUG", "maybe")

	Load()

	assert.Equal(t, "keyring", Get("session_backend", ""))
	assert.Equal(t, "5000", Get("transient_ttl_ms", ""))
	assert.Equal(t, "ws://localhost:2025/ws/notifications", Get("ws_url", ""))
	assert.False(t, GetBool("debug", true))
}

func TestSetOverridesAtRuntime(t *testing.T) {
	setupDirs(t)
	Load()

	Set("session_backend", "memory")

	assert.Equal(t, "memory", Get("session_backend", ""))
}

func TestRegisterValidatorPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		RegisterValidator("api_base", BoolValidator())
	})
}
