package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gestionclinique/clinic-intray/cmd"
	"github.com/gestionclinique/clinic-intray/internal/colors"
	"github.com/stretchr/testify/assert"
)

func TestRunReturnsExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	restore := colors.SetOutput(&stdout, &stderr)
	defer restore()

	assert.Equal(t, 0, run([]string{"version"}, func() error { return nil }))
	assert.Equal(t, 1, run([]string{"list"}, func() error { return errors.New("not signed in") }))
	assert.Contains(t, stderr.String(), "not signed in")
}

func TestEveryCommandIsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range cmd.RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "whoami", "list", "mark-read", "watch", "follow", "history", "serve-dev", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestPrintVersion(t *testing.T) {
	orig := versionOutputWriter
	defer func() { versionOutputWriter = orig }()

	var buf bytes.Buffer
	versionOutputWriter = &buf
	PrintVersion()
	assert.Contains(t, buf.String(), "clinic-intray v")
}
