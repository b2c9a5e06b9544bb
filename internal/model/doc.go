// Package model defines the domain types and value objects for the
// hdmi-switch CLI.
//
// This package contains pure data structures with no external dependencies.
// The physical ports of the matrix switch form a closed enumeration (Port)
// split into two directions (Input and Output). Strings are converted into
// ports only at the configuration and command-line edge via ParsePort.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
