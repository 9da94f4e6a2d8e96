// Package launchconfig builds, merges and persists VS Code style debug launch configurations
// for Arduino boards.
package launchconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// Version is the only launch.json schema version this package reads or writes.
	Version = "0.2.0"

	// DefaultDebuggerType is the debugger front-end the merged configurations target.
	DefaultDebuggerType = "cortex-debug"

	// WorkspaceRoot is the default cwd of a merged configuration, expanded by the front-end.
	WorkspaceRoot = "${workspaceRoot}"
)

// Well-known configuration attributes.
const (
	KeyConfigID = "configId"
	KeyName     = "name"
	KeyType     = "type"
	KeyRequest  = "request"
	KeyCwd      = "cwd"
)

// LaunchConfig is a single debug configuration. The attribute set is open-ended and
// debugger specific; unknown keys are kept verbatim.
type LaunchConfig map[string]any

// ConfigID returns the board+programmer identity of the configuration.
func (c LaunchConfig) ConfigID() string { return c.str(KeyConfigID) }

// Name returns the human-readable name.
func (c LaunchConfig) Name() string { return c.str(KeyName) }

// Type returns the debugger type, e.g. "cortex-debug".
func (c LaunchConfig) Type() string { return c.str(KeyType) }

// Request returns "launch" or "attach".
func (c LaunchConfig) Request() string { return c.str(KeyRequest) }

// IsLaunchRequest returns true if this is a launch configuration (not attach).
func (c LaunchConfig) IsLaunchRequest() bool { return c.Request() == "launch" }

// IsAttachRequest returns true if this is an attach configuration.
func (c LaunchConfig) IsAttachRequest() bool { return c.Request() == "attach" }

func (c LaunchConfig) str(key string) string {
	s, _ := c[key].(string)
	return s
}

// Clone creates a deep copy of the configuration.
func (c LaunchConfig) Clone() LaunchConfig {
	if c == nil {
		return nil
	}
	return LaunchConfig(cloneMap(c))
}

// LaunchJSON is the launch.json document: a versioned, ordered list of configurations
// unique by configId. Top-level keys other than version and configurations are kept.
type LaunchJSON struct {
	Version        string         `json:"version"`
	Configurations []LaunchConfig `json:"configurations"`

	// Other top-level properties (compounds, inputs, ...)
	Extra map[string]json.RawMessage `json:"-"`

	// Skipped counts configurations entries dropped on parse because they were not objects
	Skipped int `json:"-"`
}

// NewLaunchJSON returns an empty document.
func NewLaunchJSON() *LaunchJSON {
	return &LaunchJSON{Version: Version, Configurations: []LaunchConfig{}}
}

// Upsert replaces the configuration with the same configId in place, or appends cfg.
// It returns the index cfg was stored at.
func (lj *LaunchJSON) Upsert(cfg LaunchConfig) int {
	id := cfg.ConfigID()
	for i, existing := range lj.Configurations {
		if existing.ConfigID() == id {
			lj.Configurations[i] = cfg
			return i
		}
	}
	lj.Configurations = append(lj.Configurations, cfg)
	return len(lj.Configurations) - 1
}

// Clone creates a deep copy of the document.
func (lj *LaunchJSON) Clone() *LaunchJSON {
	clone := &LaunchJSON{
		Version:        lj.Version,
		Configurations: make([]LaunchConfig, len(lj.Configurations)),
	}
	for i, cfg := range lj.Configurations {
		clone.Configurations[i] = cfg.Clone()
	}
	if lj.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(lj.Extra))
		for k, v := range lj.Extra {
			clone.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return clone
}

// ParseLaunchJSON decodes a launch.json document. ok is false when data is not valid
// JSON, the version is not "0.2.0", or configurations is not an array. Entries of
// configurations that are not objects are dropped and counted in Skipped.
func ParseLaunchJSON(data []byte) (lj *LaunchJSON, ok bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, false
	}

	var version string
	if err := json.Unmarshal(raw["version"], &version); err != nil || version != Version {
		return nil, false
	}

	rawConfigs, present := raw["configurations"]
	if !present || bytes.HasPrefix(bytes.TrimSpace(rawConfigs), []byte("null")) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawConfigs, &items); err != nil {
		return nil, false
	}
	configs := make([]LaunchConfig, 0, len(items))
	skipped := 0
	for _, item := range items {
		var cfg LaunchConfig
		if err := decodeNumbers(item, &cfg); err != nil || cfg == nil {
			skipped++
			continue
		}
		configs = append(configs, cfg)
	}

	lj = &LaunchJSON{Version: version, Configurations: configs, Skipped: skipped}
	for k, v := range raw {
		if k == "version" || k == "configurations" {
			continue
		}
		if lj.Extra == nil {
			lj.Extra = make(map[string]json.RawMessage)
		}
		lj.Extra[k] = v
	}
	return lj, true
}

// UnmarshalJSON implements strict decoding: invalid or unversioned content is an error.
func (lj *LaunchJSON) UnmarshalJSON(data []byte) error {
	parsed, ok := ParseLaunchJSON(data)
	if !ok {
		return fmt.Errorf("not a version %s launch configuration document", Version)
	}
	*lj = *parsed
	return nil
}

// MarshalJSON implements custom marshaling to include Extra fields.
func (lj LaunchJSON) MarshalJSON() ([]byte, error) {
	configs := lj.Configurations
	if configs == nil {
		configs = []LaunchConfig{}
	}

	m := make(map[string]any, len(lj.Extra)+2)
	for k, v := range lj.Extra {
		m[k] = v
	}
	m["version"] = lj.Version
	m["configurations"] = configs
	return marshal(m, "")
}

// Encode renders the document pretty-printed with 2-space indentation.
func (lj *LaunchJSON) Encode() ([]byte, error) {
	return marshal(lj, "  ")
}

// marshal encodes v without HTML escaping, so paths and shell snippets stay readable.
func marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeNumbers unmarshals exactly one JSON value, keeping numbers as json.Number.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after the JSON value")
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = cloneValue(v)
	}
	return result
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case LaunchConfig:
		return LaunchConfig(cloneMap(val))
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = cloneValue(item)
		}
		return result
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
