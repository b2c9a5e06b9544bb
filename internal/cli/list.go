// Package cli: list.go implements the "hdmi-switch ls" command.
//
// The ls command prints the four name mappings the switch command resolves
// against: input defaults, input aliases, output defaults and output
// aliases. Values are aligned to the longest name across all four.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/hdmi-switch/internal/model"
	"github.com/shinji-kodama/hdmi-switch/internal/switcher"
)

// heading styles the section titles of the text listing. fatih/color turns
// itself off when stdout is not a terminal.
var heading = color.New(color.FgCyan, color.Bold)

// NewListCommand creates the "ls" cobra command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List port names and aliases",
		Long: `List the canonical port names and the aliases defined in the
configuration file, for both inputs and outputs.

Examples:
  hdmi-switch ls
  hdmi-switch ls --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout())
		},
	}
}

// runList loads the configuration and prints every mapping. The server
// section is not validated: listing works without a reachable switch.
func runList(w io.Writer) error {
	_, sw, err := loadSwitch()
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printListJSON(w, sw)
	}
	printListText(w, sw)
	return nil
}

// printListText renders the listing as:
//
//	  Input Defaults:
//	    hdmiin1:  hdmiin1
//	  Input Aliases:
//	    pc:       hdmiin1
func printListText(w io.Writer, sw *switcher.Switch) {
	for _, d := range model.Directions() {
		heading.Fprintf(w, "  %s Defaults:\n", d.Title())
		fmt.Fprint(w, sw.ListDefaults(d))

		heading.Fprintf(w, "  %s Aliases:\n", d.Title())
		if aliases := sw.ListAliases(d); aliases != "" {
			fmt.Fprint(w, aliases)
		} else {
			fmt.Fprintln(w, "    (none)")
		}
	}
}

// listEntryJSON is one name -> port pair in JSON output.
type listEntryJSON struct {
	Name string `json:"name"`
	Port string `json:"port"`
}

// listDirectionJSON holds both mappings of one direction.
type listDirectionJSON struct {
	Defaults []listEntryJSON `json:"defaults"`
	Aliases  []listEntryJSON `json:"aliases"`
}

// printListJSON outputs the mappings as an object keyed by direction.
// Arrays keep the listing order, which a JSON object would not.
func printListJSON(w io.Writer, sw *switcher.Switch) error {
	result := make(map[string]listDirectionJSON, 2)
	for _, d := range model.Directions() {
		result[d.String()] = listDirectionJSON{
			Defaults: toListEntries(sw.Defaults(d)),
			Aliases:  toListEntries(sw.Aliases(d)),
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// toListEntries converts switcher entries for JSON output. It never returns
// nil so empty mappings encode as [] instead of null.
func toListEntries(entries []switcher.Entry) []listEntryJSON {
	out := make([]listEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, listEntryJSON{Name: e.Name, Port: e.Port.String()})
	}
	return out
}
