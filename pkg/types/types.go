// Package types defines shared data types used across the arduino-debug-mcp server.
//
// This package provides type definitions for:
//   - BoardIdentifier: the board to debug (FQBN plus an optional display name)
//   - StartDebugParams: everything needed to resolve a launch configuration
//   - ResolutionState: the states a single resolution request moves through
//   - ConfigurationInfo: a summary of a persisted launch configuration
//
// These types are used by the session orchestrator, the MCP handlers, and the
// command-line entry point, so they carry JSON tags matching the MCP tool arguments.
package types

// BoardIdentifier identifies the board to debug.
type BoardIdentifier struct {
	// FQBN is vendor:arch:boardId with optional :key=value,key=value options
	FQBN string `json:"fqbn"`

	// Name is the human-readable board name. Only used for display; when empty
	// the configuration ID is shown instead.
	Name string `json:"name,omitempty"`
}

// StartDebugParams holds the input of a single launch configuration resolution.
type StartDebugParams struct {
	// CliPath is the absolute path of the Arduino CLI executable
	CliPath string `json:"cliPath"`

	// Board is the board to debug
	Board BoardIdentifier `json:"board"`

	// SketchPath is the absolute path of the sketch folder
	SketchPath string `json:"sketchPath"`

	// LaunchConfigsDirPath is the directory whose launch.json is updated before
	// every session. When empty, the resolver's fallback store is used instead.
	LaunchConfigsDirPath string `json:"launchConfigsDirPath,omitempty"`

	// CliConfigPath is the arduino-cli.yaml to pass to the CLI, if any
	CliConfigPath string `json:"cliConfigPath,omitempty"`

	// Programmer is the programmer used for debugging, if any
	Programmer string `json:"programmer,omitempty"`

	// Title is the progress title shown while the CLI runs
	Title string `json:"title,omitempty"`
}

// ResolutionState represents the state of a resolution request
type ResolutionState string

const (
	StateIdle      ResolutionState = "idle"
	StateInvoking  ResolutionState = "invoking"
	StateParsed    ResolutionState = "parsed"
	StateFailed    ResolutionState = "failed"
	StateCancelled ResolutionState = "cancelled"
	StateMerged    ResolutionState = "merged"
	StatePersisted ResolutionState = "persisted"
	StateDone      ResolutionState = "done"
)

// ConfigurationInfo provides summary information about a stored launch configuration.
type ConfigurationInfo struct {
	ConfigID string `json:"configId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Request  string `json:"request"`
}
