package launchconfig

import (
	"strings"

	"github.com/ctagard/arduino-debug-mcp/internal/board"
	"github.com/ctagard/arduino-debug-mcp/internal/debuginfo"
	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// renames maps CLI attribute paths to the names cortex-debug expects.
var renames = []struct{ from, to string }{
	{"serverPath", "serverpath"},
	{"server", "servertype"},
	{"toolchainPath", "armToolchainPath"},
	{"serverConfiguration.scripts", "configFiles"},
}

// strippedKeys are consumed by the merge or unused by the debugger.
var strippedKeys = []string{
	debuginfo.CustomConfigsKey,
	"serverConfiguration",
	"programmer",
	"toolchain",
}

// Merge builds the launch configuration of a board+programmer. Layers are applied in
// increasing precedence: defaults, the CLI debug info, the CLI's override for
// debuggerType, the first user override with a matching configId, and the computed name.
// Renames run once, after all layers. The inputs are not modified.
func Merge(b types.BoardIdentifier, programmer, debuggerType string, info debuginfo.DebugInfo, customs []CustomConfig) LaunchConfig {
	if debuggerType == "" {
		debuggerType = DefaultDebuggerType
	}
	configID := board.ConfigID(b.FQBN, programmer)

	cfg := LaunchConfig{
		KeyConfigID: configID,
		KeyCwd:      WorkspaceRoot,
		KeyRequest:  "launch",
		KeyType:     debuggerType,
	}
	overlay(cfg, info)
	if override, ok := info.CustomConfig(debuggerType); ok {
		overlay(cfg, override)
	}
	if custom, ok := FindCustomConfig(customs, configID); ok {
		overlay(cfg, custom)
	}
	cfg[KeyName] = board.DisplayName(b, programmer)

	for _, r := range renames {
		renameValue(cfg, r.from, r.to)
	}
	for _, key := range strippedKeys {
		delete(cfg, key)
	}
	return cfg
}

// overlay copies the top-level attributes of src into dst. Like an object spread,
// nested objects are replaced, not merged.
func overlay(dst LaunchConfig, src map[string]any) {
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
}

// renameValue moves the value at the dotted path from to the path to, only when it is
// set to a truthy value.
func renameValue(m map[string]any, from, to string) {
	value, ok := getPath(m, from)
	if !ok || !debuginfo.Truthy(value) {
		return
	}
	setPath(m, to, value)
	unsetPath(m, from)
}

func getPath(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return nil, false
		}
		current = next
	}
	v, ok := current[parts[len(parts)-1]]
	return v, ok
}

// setPath creates intermediate objects as needed, replacing non-object values in the way.
func setPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func unsetPath(m map[string]any, path string) {
	parts := strings.Split(path, ".")
	current := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case LaunchConfig:
		return m, true
	case CustomConfig:
		return m, true
	case debuginfo.DebugInfo:
		return m, true
	}
	return nil, false
}
