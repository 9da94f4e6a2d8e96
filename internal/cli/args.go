package cli

import "github.com/ctagard/arduino-debug-mcp/pkg/types"

// DebugInfoArgs builds the arguments of `debug --info` for params:
//
//	debug --info --fqbn <fqbn> [--programmer <p>] <sketchPath> [--config-file <path>] --format json
func DebugInfoArgs(params types.StartDebugParams) []string {
	args := []string{"debug", "--info", "--fqbn", params.Board.FQBN}
	if params.Programmer != "" {
		args = append(args, "--programmer", params.Programmer)
	}
	args = append(args, params.SketchPath)
	if params.CliConfigPath != "" {
		args = append(args, "--config-file", params.CliConfigPath)
	}
	return append(args, "--format", "json")
}

// VersionArgs builds the arguments of `version` with JSON output.
func VersionArgs(cliConfigPath string) []string {
	args := []string{"version"}
	if cliConfigPath != "" {
		args = append(args, "--config-file", cliConfigPath)
	}
	return append(args, "--format", "json")
}
