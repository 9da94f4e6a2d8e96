// Package debuginfo normalizes the output of `arduino-cli debug --info`.
//
// The CLI reports snake_case keys. Parse converts every object key to camelCase,
// recursively, except for the subtree under custom_configs: those are opaque
// per-debugger override objects and pass through untouched.
package debuginfo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

const (
	// opaqueKey is the CLI key whose subtree is never renamed
	opaqueKey = "custom_configs"

	// CustomConfigsKey is the normalized key of the per-debugger overrides
	CustomConfigsKey = "customConfigs"

	// ExecutableKey is the only required field
	ExecutableKey = "executable"

	separators = "_- ."
)

// DebugInfo is the normalized debug information. Keys are camelCase; values are
// strings, json.Number, booleans, []any, or nested map[string]any.
type DebugInfo map[string]any

// Executable returns the executable path, or "" if absent or not a string.
func (d DebugInfo) Executable() string {
	s, _ := d[ExecutableKey].(string)
	return s
}

// CustomConfig returns the override object reported for debuggerType, if any.
func (d DebugInfo) CustomConfig(debuggerType string) (map[string]any, bool) {
	configs, ok := d[CustomConfigsKey].(map[string]any)
	if !ok {
		return nil, false
	}
	cfg, ok := configs[debuggerType].(map[string]any)
	return cfg, ok
}

// MissingExecutableError is returned when the CLI output has no executable.
type MissingExecutableError struct {
	Config DebugInfo
}

func (e *MissingExecutableError) Error() string {
	data, err := json.Marshal(e.Config)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", map[string]any(e.Config)))
	}
	return fmt.Sprintf("'executable' is missing from the debugger configuration. Configuration: %s", data)
}

// IsMissingExecutableError checks if an error is a MissingExecutableError.
func IsMissingExecutableError(err error) (*MissingExecutableError, bool) {
	var e *MissingExecutableError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Parse decodes and normalizes raw CLI output.
//
// ok is false when raw is not a single JSON object: the caller has no usable
// info, which is not an error by itself. Empty output is treated as {} since
// the CLI may print nothing on success. A decoded object without an executable
// yields a *MissingExecutableError.
func Parse(raw []byte) (info DebugInfo, ok bool, err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	obj, decodeErr := decodeObject(raw)
	if decodeErr != nil || obj == nil {
		return nil, false, nil
	}

	info, err = FromObject(obj)
	return info, true, err
}

// FromObject normalizes an already decoded CLI object.
func FromObject(obj map[string]any) (DebugInfo, error) {
	info := DebugInfo(convertKeys(obj))
	if !Truthy(info[ExecutableKey]) {
		return nil, &MissingExecutableError{Config: info}
	}
	return info, nil
}

// decodeObject decodes exactly one JSON object, keeping numbers verbatim.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after the JSON object")
	}
	return obj, nil
}

// convertKeys camelCases the keys of m. When several keys map to the same name, a key
// already in camelCase wins over converted ones, which win in sorted order.
func convertKeys(m map[string]any) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		iExact, jExact := isNormalized(keys[i]), isNormalized(keys[j])
		if iExact != jExact {
			return jExact
		}
		return keys[i] < keys[j]
	})

	result := make(map[string]any, len(m))
	for _, k := range keys {
		v := m[k]
		if k == opaqueKey || k == CustomConfigsKey {
			result[CustomConfigsKey] = v
			continue
		}
		result[CamelCase(k)] = convertValue(v)
	}
	return result
}

func isNormalized(key string) bool {
	return key == CustomConfigsKey || CamelCase(key) == key
}

func convertValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return convertKeys(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = convertValue(item)
		}
		return result
	default:
		return v
	}
}

// CamelCase converts a snake_case (or kebab-case) key to camelCase. Leading and
// trailing separators are dropped. Keys without separators are returned unchanged,
// so already normalized keys are stable.
func CamelCase(key string) string {
	if !strings.ContainsAny(key, separators) {
		return key
	}
	trimmed := strings.Trim(key, separators)
	if trimmed == "" {
		return key
	}
	return strcase.ToLowerCamel(trimmed)
}

// Truthy reports whether v counts as set: nil, false, "", and zero numbers do not.
// Objects and arrays always do, even when empty.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}
