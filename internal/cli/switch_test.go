package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
)

// startFakeSwitch listens on a loopback port, greets the first client and
// delivers everything it sends. It returns the port and the channel.
func startFakeSwitch(t *testing.T) (int, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _ = conn.Write([]byte("4KMX44-H2 ready\r\n"))
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return tcpAddr.Port, received
}

func waitCommand(t *testing.T, received <-chan string) string {
	t.Helper()
	select {
	case cmd := <-received:
		return cmd
	case <-time.After(5 * time.Second):
		t.Fatal("fake switch received nothing")
		return ""
	}
}

func TestSwitch_Aliases(t *testing.T) {
	port, received := startFakeSwitch(t)
	path := writeConfig(t, homeConfig)

	out, err := run(t, "switch", "-c", path, "--port", strconv.Itoa(port), "--input", "pc", "--output", "tv")
	require.NoError(t, err)

	assert.Equal(t, "SET SW hdmiin1 hdmiout2\n\r", waitCommand(t, received))
	assert.Contains(t, out, "Switched hdmiin1 -> hdmiout2")
}

func TestSwitch_CanonicalNames(t *testing.T) {
	port, received := startFakeSwitch(t)
	cfg := fmt.Sprintf("server:\n  host: 127.0.0.1\n  port: %d\n", port)

	_, err := run(t, "switch", "-c", writeConfig(t, cfg), "-i", "hdmiin3", "-o", "all")
	require.NoError(t, err)

	assert.Equal(t, "SET SW hdmiin3 all\n\r", waitCommand(t, received))
}

func TestSwitch_JSON(t *testing.T) {
	port, received := startFakeSwitch(t)

	out, err := run(t, "switch", "--json", "-c", writeConfig(t, homeConfig),
		"--port", strconv.Itoa(port), "-i", "work", "-o", "pc")
	require.NoError(t, err)
	assert.Equal(t, "SET SW hdmiin4 hdmiout1\n\r", waitCommand(t, received))

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "hdmiin4", got["input"])
	assert.Equal(t, "hdmiout1", got["output"])
	assert.Equal(t, "SET SW hdmiin4 hdmiout1", got["command"])
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), got["address"])
}

func TestSwitch_HostFromEnvironment(t *testing.T) {
	port, received := startFakeSwitch(t)
	t.Setenv("HDMI_SWITCH_HOST", "127.0.0.1")
	t.Setenv("HDMI_SWITCH_PORT", strconv.Itoa(port))

	cfg := "server:\n  host: matrix.invalid\n"
	_, err := run(t, "switch", "-c", writeConfig(t, cfg), "-i", "hdmiin2", "-o", "hdmiout2")
	require.NoError(t, err)
	assert.Equal(t, "SET SW hdmiin2 hdmiout2\n\r", waitCommand(t, received))
}

func TestSwitch_UnknownInputCheckedFirst(t *testing.T) {
	// No server: resolution must fail before any connection attempt.
	_, err := run(t, "switch", "-c", writeConfig(t, homeConfig), "-i", "bogus", "-o", "nowhere")
	require.Error(t, err)
	requireExitCode(t, err, model.ExitUnsupportedName)
	assert.Contains(t, err.Error(), `"bogus"`)
	assert.NotContains(t, err.Error(), "nowhere")
}

func TestSwitch_UnknownOutput(t *testing.T) {
	_, err := run(t, "switch", "-c", writeConfig(t, homeConfig), "-i", "pc", "-o", "projector")
	requireExitCode(t, err, model.ExitUnsupportedName)
	assert.Contains(t, err.Error(), `output "projector"`)
}

func TestSwitch_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = run(t, "switch", "-c", writeConfig(t, homeConfig),
		"--port", strconv.Itoa(port), "--timeout", "1s", "-i", "pc", "-o", "tv")
	requireExitCode(t, err, model.ExitSwitchUnreachable)
}

func TestSwitch_ConfigErrors(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		_, err := run(t, "switch", "-c", writeConfig(t, "input:\n  aliases:\n    pc: hdmiin1\n"), "-i", "pc", "-o", "all")
		requireExitCode(t, err, model.ExitConfigError)
	})

	t.Run("invalid alias", func(t *testing.T) {
		_, err := run(t, "switch", "-c", writeConfig(t, "server:\n  host: h\ninput:\n  aliases:\n    pc: hdmiin5\n"), "-i", "pc", "-o", "all")
		requireExitCode(t, err, model.ExitInvalidAlias)
	})

	t.Run("port override not a number", func(t *testing.T) {
		t.Setenv("HDMI_SWITCH_PORT", "abc")
		_, err := run(t, "switch", "-c", writeConfig(t, homeConfig), "-i", "pc", "-o", "tv")
		requireExitCode(t, err, model.ExitConfigError)
		assert.Contains(t, err.Error(), `"abc"`)
	})

	t.Run("timeout override not a duration", func(t *testing.T) {
		t.Setenv("HDMI_SWITCH_TIMEOUT", "soon")
		_, err := run(t, "switch", "-c", writeConfig(t, homeConfig), "-i", "pc", "-o", "tv")
		requireExitCode(t, err, model.ExitConfigError)
		assert.Contains(t, err.Error(), `"soon"`)
	})

	t.Run("required flags", func(t *testing.T) {
		_, err := run(t, "switch", "-c", writeConfig(t, homeConfig), "-i", "pc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "output")
	})
}
