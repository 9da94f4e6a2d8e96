package launchconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// VSCodeDirName is the VS Code configuration directory name.
const VSCodeDirName = ".vscode"

// LoadFromPath loads a launch.json file from an explicit path. Unlike DirStore.Load, a
// malformed file is an error.
func LoadFromPath(path string) (*LaunchJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read launch.json: %w", err)
	}

	lj, ok := ParseLaunchJSON(data)
	if !ok {
		return nil, fmt.Errorf("failed to parse launch.json: %s is not a version %s document", path, Version)
	}
	return lj, nil
}

// Discover searches for a .vscode/launch.json file starting from the given path
// and walking up the directory tree until found or reaching the root.
func Discover(startPath string) (string, error) {
	if startPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		startPath = cwd
	}

	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// If startPath is a file, start from its directory
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}

	current := absPath
	for {
		launchPath := filepath.Join(current, VSCodeDirName, LaunchJSONFileName)
		if _, err := os.Stat(launchPath); err == nil {
			return launchPath, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("no %s/%s found in %s or parent directories", VSCodeDirName, LaunchJSONFileName, startPath)
}

// LoadAndDiscover finds a launch.json from the start path and loads it.
func LoadAndDiscover(startPath string) (*LaunchJSON, string, error) {
	path, err := Discover(startPath)
	if err != nil {
		return nil, "", err
	}

	lj, err := LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}

	return lj, path, nil
}

// FindConfiguration finds a configuration by configId, falling back to its name.
func FindConfiguration(lj *LaunchJSON, id string) (LaunchConfig, error) {
	for _, cfg := range lj.Configurations {
		if cfg.ConfigID() == id {
			return cfg, nil
		}
	}
	for _, cfg := range lj.Configurations {
		if cfg.Name() == id {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("configuration %q not found", id)
}

// ListConfigurations returns summary information about all configurations.
func ListConfigurations(lj *LaunchJSON) []types.ConfigurationInfo {
	infos := make([]types.ConfigurationInfo, len(lj.Configurations))
	for i, cfg := range lj.Configurations {
		infos[i] = types.ConfigurationInfo{
			ConfigID: cfg.ConfigID(),
			Name:     cfg.Name(),
			Type:     cfg.Type(),
			Request:  cfg.Request(),
		}
	}
	return infos
}

// GetWorkspaceFolder derives the workspace folder from the launch.json path.
// The workspace folder is the parent of the .vscode directory.
// Returns POSIX-style paths (forward slashes) for cross-platform consistency.
func GetWorkspaceFolder(launchJSONPath string) string {
	vscodeDir := filepath.Dir(launchJSONPath)
	return filepath.ToSlash(filepath.Dir(vscodeDir))
}

// ValidateConfiguration performs basic validation on a configuration.
func ValidateConfiguration(cfg LaunchConfig) error {
	if cfg.Name() == "" {
		return fmt.Errorf("configuration name is required")
	}
	if cfg.Type() == "" {
		return fmt.Errorf("configuration type is required")
	}
	if cfg.Request() == "" {
		return fmt.Errorf("configuration request is required")
	}
	if !cfg.IsLaunchRequest() && !cfg.IsAttachRequest() {
		return fmt.Errorf("configuration request must be 'launch' or 'attach', got %q", cfg.Request())
	}
	return nil
}

// ValidateLaunchJSON validates every configuration and the uniqueness of configIds.
func ValidateLaunchJSON(lj *LaunchJSON) []error {
	var errs []error
	seen := make(map[string]int)
	for i, cfg := range lj.Configurations {
		if err := ValidateConfiguration(cfg); err != nil {
			errs = append(errs, fmt.Errorf("configuration[%d]: %w", i, err))
		}
		id := cfg.ConfigID()
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("configuration[%d]: configId %q already used by configuration[%d]", i, id, first))
			continue
		}
		seen[id] = i
	}
	return errs
}
