// Package cli: list_test.go exercises the commands end to end through
// the cobra root command, with configuration files in temporary
// directories.
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
)

const homeConfig = `server:
  host: 127.0.0.1
input:
  aliases:
    pc: hdmiin1
    ps: hdmiin2
    switch: hdmiin3
    work: hdmiin4
output:
  aliases:
    pc: hdmiout1
    tv: hdmiout2
`

// writeConfig stores a configuration file in a per-test directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code)
}

func TestList_Text(t *testing.T) {
	out, err := run(t, "ls", "--configuration", writeConfig(t, homeConfig))
	require.NoError(t, err)

	want := "  Input Defaults:\n" +
		"    hdmiin1:  hdmiin1\n" +
		"    hdmiin2:  hdmiin2\n" +
		"    hdmiin3:  hdmiin3\n" +
		"    hdmiin4:  hdmiin4\n" +
		"  Input Aliases:\n" +
		"    pc:       hdmiin1\n" +
		"    ps:       hdmiin2\n" +
		"    switch:   hdmiin3\n" +
		"    work:     hdmiin4\n" +
		"  Output Defaults:\n" +
		"    hdmiout1: hdmiout1\n" +
		"    hdmiout2: hdmiout2\n" +
		"    hdmiout3: hdmiout3\n" +
		"    hdmiout4: hdmiout4\n" +
		"    all:      all\n" +
		"  Output Aliases:\n" +
		"    pc:       hdmiout1\n" +
		"    tv:       hdmiout2\n"
	assert.Equal(t, want, out)
}

func TestList_NoAliases(t *testing.T) {
	out, err := run(t, "ls", "-c", writeConfig(t, "server:\n  host: matrix\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "  Input Aliases:\n    (none)\n")
	assert.Contains(t, out, "  Output Aliases:\n    (none)\n")
}

func TestList_WithoutHost(t *testing.T) {
	out, err := run(t, "ls", "-c", writeConfig(t, "input:\n  aliases:\n    pc: hdmiin1\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "pc:       hdmiin1")
}

func TestList_JSON(t *testing.T) {
	out, err := run(t, "ls", "--json", "-c", writeConfig(t, homeConfig))
	require.NoError(t, err)

	var got map[string]listDirectionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	require.Contains(t, got, "input")
	require.Contains(t, got, "output")
	assert.Len(t, got["input"].Defaults, 4)
	assert.Equal(t, []listEntryJSON{
		{Name: "pc", Port: "hdmiout1"},
		{Name: "tv", Port: "hdmiout2"},
	}, got["output"].Aliases)
	assert.Equal(t, listEntryJSON{Name: "all", Port: "all"}, got["output"].Defaults[4])
}

func TestList_ConfigurationFromEnvironment(t *testing.T) {
	t.Setenv("HDMI_SWITCH_CONFIGURATION", writeConfig(t, homeConfig))

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "tv:       hdmiout2")
}

func TestList_Errors(t *testing.T) {
	t.Run("missing configuration", func(t *testing.T) {
		_, err := run(t, "ls", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		requireExitCode(t, err, model.ExitConfigError)
	})

	t.Run("no default configuration path", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "")
		t.Setenv("HDMI_SWITCH_CONFIGURATION", "")
		_, err := run(t, "ls")
		requireExitCode(t, err, model.ExitConfigError)
		assert.Contains(t, err.Error(), "neither XDG_CONFIG_HOME nor HOME is set")
	})

	t.Run("invalid alias target", func(t *testing.T) {
		_, err := run(t, "ls", "-c", writeConfig(t, "output:\n  aliases:\n    tv: hdmiout9\n"))
		requireExitCode(t, err, model.ExitInvalidAlias)
		assert.Contains(t, err.Error(), `"hdmiout9"`)
	})

	t.Run("positional arguments rejected", func(t *testing.T) {
		_, err := run(t, "ls", "extra", "-c", writeConfig(t, homeConfig))
		assert.Error(t, err)
	})
}
