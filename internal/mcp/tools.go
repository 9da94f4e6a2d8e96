package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the tools allowed by the capability mode
func (s *Server) registerTools() {
	s.registerCreateLaunchConfig()
	s.registerListLaunchConfigs()
	s.registerCliVersion()

	// Writes launch configurations
	if s.config.CanPersist() {
		s.registerStart()
	}
}

// boardOptions are the arguments shared by the resolving tools.
func boardOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("fqbn",
			mcp.Required(),
			mcp.Description("Fully qualified board name, vendor:arch:boardId[:key=value,...]. Example: arduino:samd:mkr1000 or esp32:esp32:esp32s3:JTAGAdapter=builtin"),
		),
		mcp.WithString("sketchPath",
			mcp.Required(),
			mcp.Description("Absolute path of the sketch folder. The sketch must be compiled for the board."),
		),
		mcp.WithString("programmer",
			mcp.Description("Programmer used for debugging, e.g. atmel_ice or esptool. Some boards require one."),
		),
		mcp.WithString("boardName",
			mcp.Description("Human-readable board name, used in the configuration name"),
		),
		mcp.WithString("cliPath",
			mcp.Description("Path of the arduino-cli executable (default: server configuration)"),
		),
		mcp.WithString("cliConfigPath",
			mcp.Description("Path of the arduino-cli.yaml passed to the CLI"),
		),
		mcp.WithString("title",
			mcp.Description("Progress title logged while arduino-cli runs"),
		),
	}
}

func (s *Server) registerCreateLaunchConfig() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Resolve the debug launch configuration of a board and programmer for a compiled sketch. Runs `arduino-cli debug --info`, applies the sketch's debug_custom.json overrides and returns the configuration without saving it."),
	}, boardOptions()...)
	s.mcpServer.AddTool(mcp.NewTool("arduino_debug_create_launch_config", opts...), s.handleCreateLaunchConfig)
}

func (s *Server) registerStart() {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Resolve the debug launch configuration of a board and save it into launch.json, replacing the configuration with the same configId. Optionally starts the session on a running DAP server."),
	}, boardOptions()...)
	opts = append(opts,
		mcp.WithString("launchConfigsDirPath",
			mcp.Description("Directory whose launch.json is updated, usually <sketch>/.vscode. Default: server configuration, then the settings-backed store."),
		),
		mcp.WithString("dapAddress",
			mcp.Description("host:port of a DAP server to start the session on after saving, e.g. 127.0.0.1:4711"),
		),
		mcp.WithString("inputValues",
			mcp.Description("JSON object with values for ${input:} variables, used with dapAddress. Example: {\"port\": \"/dev/ttyACM0\"}"),
		),
	)
	s.mcpServer.AddTool(mcp.NewTool("arduino_debug_start", opts...), s.handleStart)
}

func (s *Server) registerListLaunchConfigs() {
	tool := mcp.NewTool("arduino_debug_list_launch_configs",
		mcp.WithDescription("List the launch configurations saved by arduino_debug_start, with their configId, name, type and request."),
		mcp.WithString("launchConfigsDirPath",
			mcp.Description("Directory containing launch.json. Default: server configuration, then the settings-backed store."),
		),
		mcp.WithString("workspace",
			mcp.Description("Folder to start searching upwards for .vscode/launch.json"),
		),
		mcp.WithString("configId",
			mcp.Description("Return only the configuration with this configId or name, with all attributes"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleListLaunchConfigs)
}

func (s *Server) registerCliVersion() {
	tool := mcp.NewTool("arduino_cli_version",
		mcp.WithDescription("Report the version of arduino-cli and whether it supports `debug --info --format json`."),
		mcp.WithString("cliPath",
			mcp.Description("Path of the arduino-cli executable (default: server configuration)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleCliVersion)
}
