// Package cli implements the cobra-based CLI commands for hdmi-switch.
//
// Each subcommand (switch, ls) is defined in its own file within this
// package. This file defines the root command that serves as the parent
// for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shinji-kodama/hdmi-switch/internal/config"
	"github.com/shinji-kodama/hdmi-switch/internal/model"
	"github.com/shinji-kodama/hdmi-switch/internal/switcher"
)

// envPrefix namespaces the environment variables that mirror the global
// flags, e.g. HDMI_SWITCH_CONFIGURATION or HDMI_SWITCH_HOST.
const envPrefix = "HDMI_SWITCH"

// Global state shared across all subcommands. Both are replaced every time
// NewRootCommand runs.
var (
	// settings resolves global flag values with the precedence
	// flag > environment variable > flag default.
	settings = viper.New()

	// logger receives verbose output. It is a no-op logger unless
	// --verbose is set.
	logger = zap.NewNop()

	// defaultPathErr explains why --configuration has no default.
	defaultPathErr error
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action; it provides help
// text and global flags. Actual functionality is provided by the switch
// and ls subcommands.
func NewRootCommand() *cobra.Command {
	settings = viper.New()
	logger = zap.NewNop()

	// Without HOME the default stays empty; loadSwitch reports why.
	defaultPath, err := config.DefaultPath()
	defaultPathErr = err

	rootCmd := &cobra.Command{
		Use:   "hdmi-switch",
		Short: "CLI client for the 4KMX44-H2 HDMI matrix switch",
		Long: `hdmi-switch routes an HDMI input to an output of a 4KMX44-H2 matrix
switch over Telnet.

Inputs and outputs can be addressed by their canonical names (hdmiin1-4,
hdmiout1-4, all) or by aliases defined in the configuration file.

Every global flag can also be set through an environment variable with
the HDMI_SWITCH_ prefix, e.g. HDMI_SWITCH_CONFIGURATION.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("configuration", "c", defaultPath, "Path to the configuration file")
	flags.String("host", "", "Switch host (overrides server.host)")
	flags.Int("port", 0, "Switch Telnet port (overrides server.port)")
	flags.Duration("timeout", 0, "Network timeout (overrides server.timeout)")
	flags.Bool("json", false, "Output in JSON format")
	flags.BoolP("verbose", "v", false, "Enable verbose output")

	// Binding every persistent flag makes settings.Get* return the flag
	// value when it was given, the HDMI_SWITCH_* variable otherwise, and
	// the flag default last.
	_ = settings.BindPFlags(flags)
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.AddCommand(NewSwitchCommand())
	rootCmd.AddCommand(NewListCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError values carry their own exit codes; other errors exit with
// ExitGeneralError.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	printError(err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// setupLogger replaces the no-op logger with a development logger on
// stderr when --verbose is set.
func setupLogger() error {
	if !settings.GetBool("verbose") {
		logger = zap.NewNop()
		return nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	return nil
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if IsJSONOutput() {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// stdout is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
}

// VerboseLog writes a debug message when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	logger.Sugar().Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return settings.GetBool("json")
}

// loadSwitch loads the configuration file selected by --configuration and
// returns it together with a Switch populated with its aliases.
func loadSwitch() (*config.Configuration, *switcher.Switch, error) {
	path := settings.GetString("configuration")
	if path == "" && defaultPathErr != nil {
		return nil, nil, model.WrapCLIError(model.ExitConfigError, "no configuration file given", defaultPathErr)
	}
	VerboseLog("Loading configuration from %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	sw := switcher.New()
	if err := cfg.Apply(sw); err != nil {
		return nil, nil, err
	}
	VerboseLog("Registered %d input and %d output aliases",
		len(cfg.Input.Aliases), len(cfg.Output.Aliases))

	return cfg, sw, nil
}

// applyServerOverrides replaces server settings from the configuration
// file with --host, --port and --timeout (or their HDMI_SWITCH_*
// variables) when they are set. Values that do not parse are reported
// instead of being ignored.
func applyServerOverrides(cfg *config.Configuration) error {
	if host := settings.GetString("host"); host != "" {
		cfg.Server.Host = host
	}

	if raw := strings.TrimSpace(settings.GetString("port")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid port override %q", raw), err)
		}
		if port != 0 {
			cfg.Server.Port = &port
		}
	}

	if raw := strings.TrimSpace(settings.GetString("timeout")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid timeout override %q", raw), err)
		}
		if timeout != 0 {
			cfg.Server.Timeout = timeout.String()
		}
	}
	return nil
}
