// Package cli: switch.go implements the "hdmi-switch switch" command.
//
// The switch command resolves --input and --output against the configured
// aliases and the canonical port names, then sends the resulting command
// to the matrix over Telnet.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
	"github.com/shinji-kodama/hdmi-switch/internal/switcher"
	"github.com/shinji-kodama/hdmi-switch/internal/telnet"
)

// switchFlags holds the flag values for the switch command.
type switchFlags struct {
	// input is an input alias or canonical input name (hdmiin1-4).
	input string

	// output is an output alias or canonical output name (hdmiout1-4, all).
	output string
}

// NewSwitchCommand creates the "switch" cobra command.
func NewSwitchCommand() *cobra.Command {
	flags := &switchFlags{}

	cmd := &cobra.Command{
		Use:   "switch",
		Short: "Route an input to an output",
		Long: `Route an HDMI input to an HDMI output.

Both flags accept an alias from the configuration file or a canonical
port name.

Examples:
  hdmi-switch switch --input pc --output tv
  hdmi-switch switch -i hdmiin3 -o all`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSwitch(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Input alias or port name (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output alias or port name (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// switchResult describes a completed switch for output.
type switchResult struct {
	Input   model.Port
	Output  model.Port
	Address string
	Command string
}

// runSwitch is the main logic function for the switch command.
func runSwitch(ctx context.Context, w io.Writer, flags *switchFlags) error {
	// Step 1: Load the configuration and register its aliases.
	cfg, sw, err := loadSwitch()
	if err != nil {
		return err
	}
	if err := applyServerOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 2: Resolve both names before touching the network, so a typo
	// never opens a connection. The input is checked first.
	in, err := sw.Resolve(model.Input, flags.input)
	if err != nil {
		return model.WrapCLIError(model.ExitUnsupportedName, "cannot build switch command", err)
	}
	out, err := sw.Resolve(model.Output, flags.output)
	if err != nil {
		return model.WrapCLIError(model.ExitUnsupportedName, "cannot build switch command", err)
	}
	command, err := switcher.Command(in, out)
	if err != nil {
		return err
	}
	VerboseLog("Resolved %q -> %s, %q -> %s", flags.input, in, flags.output, out)

	// Step 3: Connect, discard the greeting, send the command.
	session, err := telnet.Dial(ctx, cfg.Address(), cfg.Timeout(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	greeting, err := session.ReadGreeting()
	if err != nil {
		return err
	}
	VerboseLog("Switch greeting: %q", strings.TrimSpace(string(greeting)))

	if err := session.Send(command); err != nil {
		return err
	}

	printSwitchResult(w, switchResult{
		Input:   in,
		Output:  out,
		Address: cfg.Address(),
		Command: strings.TrimRight(command, "\r\n"),
	})
	return nil
}

// printSwitchResult outputs the result in text or JSON format.
func printSwitchResult(w io.Writer, r switchResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]string{
			"input":   r.Input.String(),
			"output":  r.Output.String(),
			"address": r.Address,
			"command": r.Command,
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Switched %s -> %s on %s\n", r.Input, r.Output, r.Address)
}
