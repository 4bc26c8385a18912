package cmd

import (
	"bytes"
	"testing"

	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/gestionclinique/clinic-intray/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintHelpTextListsCommandsInOrder(t *testing.T) {
	orig := helpOutputWriter
	defer func() { helpOutputWriter = orig }()
	var buf bytes.Buffer
	helpOutputWriter = &buf

	root := &cobra.Command{Use: "clinic-intray"}
	root.AddCommand(&cobra.Command{Use: "watch", Short: "Open the console"})
	root.AddCommand(&cobra.Command{Use: "login", Short: "Sign in"})
	printHelpText(root)

	out := buf.String()
	assert.Contains(t, out, "USAGE:")
	login := bytes.Index(buf.Bytes(), []byte("login"))
	watch := bytes.Index(buf.Bytes(), []byte("watch"))
	require.True(t, login > 0 && watch > 0)
	assert.Less(t, login, watch)
}

func TestSetupAppliesGlobalFlags(t *testing.T) {
	t.Setenv("CLINIC_INTRAY_CONFIG_PATH", t.TempDir()+"/missing.toml")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	defer func() {
		debugFlag, apiBaseFlag, wsURLFlag = false, "", ""
		colors.SetDebug(false)
	}()

	apiBaseFlag = "http://example.test/Api/V1/clinique"
	wsURLFlag = "ws://example.test/ws/notifications"
	debugFlag = true
	require.NoError(t, setup(&cobra.Command{Use: "test"}, nil))

	assert.Equal(t, "http://example.test/Api/V1/clinique", config.Get("api_base", ""))
	assert.Equal(t, "ws://example.test/ws/notifications", config.Get("ws_url", ""))
	assert.True(t, config.GetBool("debug", false))
}
