package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	internaldap "github.com/ctagard/arduino-debug-mcp/internal/dap"
	"github.com/ctagard/arduino-debug-mcp/internal/errors"
	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
	"github.com/ctagard/arduino-debug-mcp/internal/session"
	"github.com/ctagard/arduino-debug-mcp/internal/version"
	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// startResult is the result of arduino_debug_start.
type startResult struct {
	*session.Result

	// DAPAddress is set when the session was handed off to a DAP server
	DAPAddress string `json:"dapAddress,omitempty"`
}

func (s *Server) handleCreateLaunchConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := s.startParams(request)
	if err != nil {
		return toolError(err)
	}

	result, err := s.resolver.CreateLaunchConfig(ctx, params)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.config.CanPersist() {
		return toolError(errors.PermissionDenied("persist", string(s.config.Mode)))
	}

	params, err := s.startParams(request)
	if err != nil {
		return toolError(err)
	}
	params.LaunchConfigsDirPath = request.GetString("launchConfigsDirPath", s.config.LaunchConfigsDirPath)

	dapAddress := request.GetString("dapAddress", "")
	var inputValues map[string]string
	if raw := request.GetString("inputValues", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &inputValues); err != nil {
			return toolError(errors.InvalidJSON("inputValues", err, `{"port": "/dev/ttyACM0"}`))
		}
	}

	result, err := s.resolver.Start(ctx, params)
	if err != nil {
		return toolError(err)
	}
	if dapAddress == "" {
		return jsonResult(startResult{Result: result})
	}

	req, err := internaldap.NewRequest(result.Config, &launchconfig.ResolutionContext{
		WorkspaceFolder: params.SketchPath,
		InputValues:     inputValues,
	})
	if err != nil {
		if missing, ok := launchconfig.IsMissingInputsError(err); ok {
			return toolError(errors.MissingInputs(missing.Inputs))
		}
		return toolError(errors.ConfigInvalid(result.Config.Name(), err.Error()))
	}
	if err := internaldap.Handoff(ctx, dapAddress, req, s.logger); err != nil {
		return toolError(errors.DAPHandoffFailed(dapAddress, err))
	}
	return jsonResult(startResult{Result: result, DAPAddress: dapAddress})
}

// handleListLaunchConfigs lists the configurations of a launch.json or of the settings-backed store
func (s *Server) handleListLaunchConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := request.GetString("launchConfigsDirPath", s.config.LaunchConfigsDirPath)
	workspace := request.GetString("workspace", "")

	var (
		lj              *launchconfig.LaunchJSON
		location        string
		workspaceFolder string
		err             error
	)
	if dir == "" && workspace != "" {
		lj, location, err = launchconfig.LoadAndDiscover(workspace)
		if err == nil {
			workspaceFolder = launchconfig.GetWorkspaceFolder(location)
		}
	} else {
		store := s.resolver.StoreFor(dir)
		location = store.Key()
		lj, err = store.Load()
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load launch configurations: %v", err)), nil
	}

	if id := request.GetString("configId", ""); id != "" {
		cfg, err := launchconfig.FindConfiguration(lj, id)
		if err != nil {
			ids := make([]string, 0, len(lj.Configurations))
			for _, info := range launchconfig.ListConfigurations(lj) {
				ids = append(ids, info.ConfigID)
			}
			return toolError(errors.ConfigNotFound(id, ids))
		}
		result := map[string]interface{}{
			"location":      location,
			"configuration": cfg,
		}
		if workspaceFolder != "" {
			// Variables of a discovered launch.json resolve against its workspace
			result["workspaceFolder"] = workspaceFolder
			resolved, err := launchconfig.ResolveConfiguration(cfg, &launchconfig.ResolutionContext{WorkspaceFolder: workspaceFolder})
			if missing, ok := launchconfig.IsMissingInputsError(err); ok {
				result["requiredInputs"] = missing.Inputs
			} else if err != nil {
				return toolError(errors.ConfigInvalid(cfg.Name(), err.Error()))
			} else {
				result["configuration"] = resolved
			}
		}
		return jsonResult(result)
	}

	result := map[string]interface{}{
		"location":       location,
		"configurations": launchconfig.ListConfigurations(lj),
	}

	if validationErrors := launchconfig.ValidateLaunchJSON(lj); len(validationErrors) > 0 {
		errStrings := make([]string, len(validationErrors))
		for i, e := range validationErrors {
			errStrings[i] = e.Error()
		}
		result["validationWarnings"] = errStrings
	}

	return jsonResult(result)
}

func (s *Server) handleCliVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cliPath := request.GetString("cliPath", s.config.CliPath)
	if cliPath == "" {
		return toolError(errors.MissingParameter("cliPath", "Provide the path of the arduino-cli executable."))
	}

	info, err := version.CheckCLI(ctx, s.runner, cliPath, s.config.CliConfigPath, s.config.MinCliVersion)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(info)
}

// startParams reads the board arguments shared by the resolving tools.
func (s *Server) startParams(request mcp.CallToolRequest) (types.StartDebugParams, error) {
	fqbn, err := request.RequireString("fqbn")
	if err != nil {
		return types.StartDebugParams{}, errors.MissingParameter("fqbn",
			"Specify the fully qualified board name, e.g. arduino:samd:mkr1000. `arduino-cli board list` shows the FQBN of connected boards.")
	}
	sketchPath, err := request.RequireString("sketchPath")
	if err != nil {
		return types.StartDebugParams{}, errors.MissingParameter("sketchPath",
			"Specify the absolute path of the sketch folder. Compile the sketch for the board before debugging.")
	}

	return types.StartDebugParams{
		CliPath: request.GetString("cliPath", s.config.CliPath),
		Board: types.BoardIdentifier{
			FQBN: fqbn,
			Name: request.GetString("boardName", ""),
		},
		SketchPath:    sketchPath,
		CliConfigPath: request.GetString("cliConfigPath", s.config.CliConfigPath),
		Programmer:    request.GetString("programmer", ""),
		Title:         request.GetString("title", ""),
	}, nil
}

// toolError reports err to the client as a tool error.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// Helper functions

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
