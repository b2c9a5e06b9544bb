// Package model defines the domain types for the hdmi-switch CLI.
//
// The 4KMX44-H2 matrix has four HDMI inputs and four HDMI outputs. An
// output can also be addressed collectively with "all". These identifiers
// are fixed in hardware, so they are modelled as a closed enumeration
// rather than free-form strings.
package model

import (
	"fmt"
	"strings"
)

// Direction identifies one side of the matrix switch. Each direction has
// its own set of ports, defaults and aliases.
type Direction int

const (
	// Input is the source side of the matrix (hdmiin1..hdmiin4).
	Input Direction = iota + 1

	// Output is the sink side of the matrix (hdmiout1..hdmiout4, all).
	Output
)

// String returns the lowercase name of the direction ("input" or "output").
// It is used in error messages and JSON output.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Title returns the capitalized direction name used in listing headings.
func (d Direction) Title() string {
	switch d {
	case Input:
		return "Input"
	case Output:
		return "Output"
	default:
		return "Unknown"
	}
}

// IsValid checks whether the Direction is Input or Output.
func (d Direction) IsValid() bool {
	return d == Input || d == Output
}

// Directions lists both directions in display order.
func Directions() []Direction {
	return []Direction{Input, Output}
}

// Port is a physical port identifier of the matrix switch.
// The zero value is not a valid port.
type Port int

const (
	// HDMIIn1 through HDMIIn4 are the four HDMI input ports.
	HDMIIn1 Port = iota + 1
	HDMIIn2
	HDMIIn3
	HDMIIn4

	// HDMIOut1 through HDMIOut4 are the four HDMI output ports.
	HDMIOut1
	HDMIOut2
	HDMIOut3
	HDMIOut4

	// AllOutputs addresses every output at once.
	AllOutputs
)

// portNames maps each port to the canonical name the switch firmware
// expects on the wire.
var portNames = map[Port]string{
	HDMIIn1:    "hdmiin1",
	HDMIIn2:    "hdmiin2",
	HDMIIn3:    "hdmiin3",
	HDMIIn4:    "hdmiin4",
	HDMIOut1:   "hdmiout1",
	HDMIOut2:   "hdmiout2",
	HDMIOut3:   "hdmiout3",
	HDMIOut4:   "hdmiout4",
	AllOutputs: "all",
}

// String returns the canonical port name, e.g. "hdmiin1" or "all".
func (p Port) String() string {
	if name, ok := portNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Port(%d)", int(p))
}

// IsValid checks whether the port is one of the predefined physical ports.
func (p Port) IsValid() bool {
	_, ok := portNames[p]
	return ok
}

// Direction returns the side of the matrix this port belongs to.
// Invalid ports report a zero Direction.
func (p Port) Direction() Direction {
	switch {
	case p >= HDMIIn1 && p <= HDMIIn4:
		return Input
	case p >= HDMIOut1 && p <= AllOutputs:
		return Output
	default:
		return 0
	}
}

// Ports returns every port of the given direction in enumeration order.
func Ports(d Direction) []Port {
	switch d {
	case Input:
		return []Port{HDMIIn1, HDMIIn2, HDMIIn3, HDMIIn4}
	case Output:
		return []Port{HDMIOut1, HDMIOut2, HDMIOut3, HDMIOut4, AllOutputs}
	default:
		return nil
	}
}

// PortNames returns the canonical names of every port of the direction,
// joined for use in error messages (e.g. "hdmiin1, hdmiin2, ...").
func PortNames(d Direction) string {
	ports := Ports(d)
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// ParsePort converts a canonical port name into a Port of the given
// direction. Matching is exact: the switch firmware only accepts
// lowercase names. Returns an error if the name is not a port of d.
func ParsePort(d Direction, name string) (Port, error) {
	for _, p := range Ports(d) {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid %s port: %q (valid: %s)", d, name, PortNames(d))
}

// ExitCode defines the process exit codes of the CLI.
// Scripts can use them to tell configuration mistakes apart from an
// unreachable switch.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration file is missing,
	// unreadable, malformed, or fails validation.
	ExitConfigError ExitCode = 2

	// ExitInvalidAlias indicates a configured alias points at a port
	// that does not exist for its direction.
	ExitInvalidAlias ExitCode = 3

	// ExitUnsupportedName indicates the --input or --output value is
	// neither an alias nor a canonical port name.
	ExitUnsupportedName ExitCode = 4

	// ExitSwitchUnreachable indicates the Telnet connection could not be
	// established or the exchange with the switch failed.
	ExitSwitchUnreachable ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
