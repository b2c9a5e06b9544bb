// Package config loads the hdmi-switch configuration file.
//
// The file describes where the matrix switch listens and which aliases the
// user wants for its inputs and outputs:
//
//	server:
//	  host: 192.168.1.50
//	  port: 23
//	input:
//	  aliases:
//	    pc: hdmiin1
//	    ps: hdmiin2
//	output:
//	  aliases:
//	    tv: hdmiout2
//
// YAML is the primary format. Files ending in .json or .jsonc are accepted
// too; comments and trailing commas are stripped with github.com/tidwall/jsonc
// and the result is decoded with encoding/json.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
	"github.com/shinji-kodama/hdmi-switch/internal/switcher"
)

const (
	// DefaultPort is the Telnet port of the switch when server.port is unset.
	DefaultPort = 23

	// DefaultTimeout bounds the connect, greeting read and command write.
	DefaultTimeout = 5 * time.Second

	// appDir and fileName form the default location under the user's
	// configuration directory.
	appDir   = "hdmi-switch"
	fileName = "configuration.yaml"
)

// Configuration is the parsed configuration document.
type Configuration struct {
	Server ServerConfiguration    `yaml:"server" json:"server"`
	Input  DirectionConfiguration `yaml:"input" json:"input"`
	Output DirectionConfiguration `yaml:"output" json:"output"`
}

// ServerConfiguration locates the switch's Telnet endpoint.
type ServerConfiguration struct {
	// Host is the hostname or IP address of the switch.
	Host string `yaml:"host" json:"host"`

	// Port is the Telnet port. Nil means DefaultPort.
	Port *int `yaml:"port,omitempty" json:"port,omitempty"`

	// Timeout is a Go duration string such as "3s". Empty means DefaultTimeout.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DirectionConfiguration holds the aliases of one side of the matrix.
type DirectionConfiguration struct {
	Aliases Aliases `yaml:"aliases" json:"aliases"`
}

// Alias is one alias -> canonical port name pair as written in the file.
// The target is validated when the alias is applied to a Switch.
type Alias struct {
	Name   string
	Target string
}

// Aliases is an alias mapping that keeps the order of the document, so
// listings show aliases the way the user wrote them.
type Aliases []Alias

// UnmarshalYAML decodes a YAML mapping of scalar keys to scalar values.
func (a *Aliases) UnmarshalYAML(node *yaml.Node) error {
	// An empty "aliases:" key decodes as a null scalar.
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*a = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: aliases must be a mapping of alias to port name", node.Line)
	}

	out := make(Aliases, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: alias entries must map a name to a port name", key.Line)
		}
		out = append(out, Alias{Name: key.Value, Target: value.Value})
	}
	*a = out
	return nil
}

// UnmarshalJSON decodes a JSON object of string keys to string values,
// keeping key order. encoding/json maps do not preserve it, so the object
// is walked token by token.
func (a *Aliases) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("aliases must be an object of alias to port name")
	}

	out := Aliases{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		// Object keys are always strings.
		name, _ := keyTok.(string)

		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("alias %q must map to a port name: %w", name, err)
		}
		out = append(out, Alias{Name: name, Target: target})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// DefaultPath returns the default configuration file location:
// $XDG_CONFIG_HOME/hdmi-switch/configuration.yaml when XDG_CONFIG_HOME is
// set, otherwise $HOME/.config/hdmi-switch/configuration.yaml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir, fileName), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", errors.New("neither XDG_CONFIG_HOME nor HOME is set; pass --configuration")
	}
	return filepath.Join(home, ".config", appDir, fileName), nil
}

// Load reads and parses the configuration file at path.
//
// Returns a CLIError with ExitConfigError when the file is missing,
// unreadable, or malformed.
func Load(path string) (*Configuration, error) {
	if path == "" {
		return nil, model.NewCLIError(model.ExitConfigError, "no configuration file given")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("configuration file not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read configuration file %s", path), err)
	}

	cfg, err := Parse(data, isJSON(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse configuration file %s", path), err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. When jsonInput is true, JSONC
// comments and trailing commas are removed first.
func Parse(data []byte, jsonInput bool) (*Configuration, error) {
	var cfg Configuration
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	if jsonInput {
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isJSON(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return true
	default:
		return false
	}
}

// Port returns the configured Telnet port, or DefaultPort when unset.
func (c *Configuration) Port() int {
	if c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// Timeout returns the configured network timeout, or DefaultTimeout when
// unset. Validate reports unparsable values; Timeout falls back to the
// default for them.
func (c *Configuration) Timeout() time.Duration {
	if c.Server.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Address returns the host:port pair to dial.
func (c *Configuration) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Port()))
}

// Validate checks the server section. It is only required for commands
// that talk to the switch; listing aliases works without a host.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return model.NewCLIError(model.ExitConfigError, "server.host must not be empty")
	}
	if p := c.Port(); p < 1 || p > 65535 {
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("server.port %d out of range (1-65535)", p))
	}
	if c.Server.Timeout != "" {
		d, err := time.ParseDuration(c.Server.Timeout)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid server.timeout %q", c.Server.Timeout), err)
		}
		if d <= 0 {
			return model.NewCLIError(model.ExitConfigError,
				fmt.Sprintf("server.timeout %q must be positive", c.Server.Timeout))
		}
	}
	return nil
}

// Apply registers every input alias, then every output alias, on sw in
// document order. The first alias with an invalid target aborts with a
// CLIError carrying ExitInvalidAlias.
func (c *Configuration) Apply(sw *switcher.Switch) error {
	for _, alias := range c.Input.Aliases {
		if err := sw.LoadInputAlias(alias.Name, alias.Target); err != nil {
			return model.WrapCLIError(model.ExitInvalidAlias,
				fmt.Sprintf("invalid input alias %q", alias.Name), err)
		}
	}
	for _, alias := range c.Output.Aliases {
		if err := sw.LoadOutputAlias(alias.Name, alias.Target); err != nil {
			return model.WrapCLIError(model.ExitInvalidAlias,
				fmt.Sprintf("invalid output alias %q", alias.Name), err)
		}
	}
	return nil
}
