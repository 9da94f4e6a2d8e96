package launchconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// Variable pattern matches ${...} expressions
var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolutionContext provides context for variable resolution.
type ResolutionContext struct {
	WorkspaceFolder string            // Root folder of the workspace, usually the sketch directory
	CurrentFile     string            // Currently active file (for ${file} variables)
	InputValues     map[string]string // Pre-provided values for ${input:} variables
	EnvOverrides    map[string]string // Override environment variables
}

// ResolveVariables replaces all ${...} variables in the given text.
func ResolveVariables(text string, ctx *ResolutionContext) (string, error) {
	if ctx == nil {
		ctx = &ResolutionContext{}
	}

	var lastErr error
	result := variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]

		resolved, err := resolveVariable(expr, ctx)
		if err != nil {
			lastErr = err
			return match // Keep original if error
		}
		return resolved
	})

	return result, lastErr
}

func resolveVariable(expr string, ctx *ResolutionContext) (string, error) {
	switch {
	// workspaceRoot is the deprecated spelling the Arduino IDE still writes
	case expr == "workspaceFolder", expr == "workspaceRoot":
		return ctx.WorkspaceFolder, nil

	case expr == "workspaceFolderBasename":
		return filepath.Base(ctx.WorkspaceFolder), nil

	case expr == "file":
		return ctx.CurrentFile, nil

	case expr == "fileBasename":
		return filepath.Base(ctx.CurrentFile), nil

	case expr == "fileDirname":
		return filepath.Dir(ctx.CurrentFile), nil

	case expr == "fileBasenameNoExtension":
		base := filepath.Base(ctx.CurrentFile)
		return strings.TrimSuffix(base, filepath.Ext(base)), nil

	case expr == "fileExtname":
		return filepath.Ext(ctx.CurrentFile), nil

	case expr == "relativeFile":
		if ctx.WorkspaceFolder != "" && ctx.CurrentFile != "" {
			if rel, err := filepath.Rel(ctx.WorkspaceFolder, ctx.CurrentFile); err == nil {
				return rel, nil
			}
		}
		return ctx.CurrentFile, nil

	case expr == "userHome":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home: %w", err)
		}
		return home, nil

	case expr == "cwd":
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get cwd: %w", err)
		}
		return cwd, nil

	case expr == "pathSeparator":
		return string(os.PathSeparator), nil

	case strings.HasPrefix(expr, "env:"):
		varName := strings.TrimPrefix(expr, "env:")
		if val, ok := ctx.EnvOverrides[varName]; ok {
			return val, nil
		}
		return os.Getenv(varName), nil

	case strings.HasPrefix(expr, "config:"):
		// ${config:SETTING_ID}, read from .vscode/settings.json
		return resolveConfigVariable(strings.TrimPrefix(expr, "config:"), ctx.WorkspaceFolder)

	case strings.HasPrefix(expr, "input:"):
		inputID := strings.TrimPrefix(expr, "input:")
		if val, ok := ctx.InputValues[inputID]; ok {
			return val, nil
		}
		return "", fmt.Errorf("missing input value for ${input:%s}", inputID)

	default:
		return "", fmt.Errorf("unknown variable: ${%s}", expr)
	}
}

// resolveConfigVariable reads a VS Code setting. Settings are usually flat dotted keys
// ("cortex-debug.armToolchainPath") but nested objects are accepted too.
func resolveConfigVariable(settingID, workspaceFolder string) (string, error) {
	if workspaceFolder == "" {
		return "", fmt.Errorf("workspaceFolder required for ${config:} variables")
	}

	settingsPath := filepath.Join(workspaceFolder, VSCodeDirName, "settings.json")
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		// Settings file not found, return empty (VS Code would use default)
		return "", nil
	}

	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("failed to parse settings.json")
	}

	value := gjson.GetBytes(data, escapePath(settingID))
	if !value.Exists() {
		value = gjson.GetBytes(data, settingID)
	}
	switch {
	case !value.Exists(), value.Type == gjson.Null:
		return "", nil
	case value.IsObject(), value.IsArray():
		return value.Raw, nil
	default:
		return value.String(), nil
	}
}

// escapePath makes a literal key usable as a gjson path.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindRequiredInputs scans a text for ${input:...} variables and returns their IDs.
func FindRequiredInputs(text string) []string {
	var inputs []string
	seen := make(map[string]bool)

	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		expr := match[1]
		if !strings.HasPrefix(expr, "input:") {
			continue
		}
		inputID := strings.TrimPrefix(expr, "input:")
		if !seen[inputID] {
			seen[inputID] = true
			inputs = append(inputs, inputID)
		}
	}
	return inputs
}
