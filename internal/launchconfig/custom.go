package launchconfig

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// CustomConfigFileName is the user-maintained override file in the sketch directory.
const CustomConfigFileName = "debug_custom.json"

// CustomConfig is a user-authored override keyed by configId.
type CustomConfig map[string]any

// ConfigID returns the configId the override applies to.
func (c CustomConfig) ConfigID() string {
	s, _ := c[KeyConfigID].(string)
	return s
}

// CustomConfigPath returns the path of the override file for a sketch directory.
func CustomConfigPath(sketchPath string) string {
	return filepath.Join(sketchPath, CustomConfigFileName)
}

// LoadCustomConfigs reads the overrides of a sketch. The file is read fresh on every
// call. It never fails: a missing, unreadable or malformed file means no overrides,
// and anything other than a missing file is reported to logger as a diagnostic.
func LoadCustomConfigs(sketchPath string, logger *log.Logger) []CustomConfig {
	path := CustomConfigPath(sketchPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			loggerOrDefault(logger).Printf("Ignoring %s: %v", path, err)
		}
		return []CustomConfig{}
	}

	configs, ok := ParseCustomConfigs(data)
	if !ok {
		loggerOrDefault(logger).Printf("Ignoring %s: expected a JSON array of objects", path)
	}
	return configs
}

// ParseCustomConfigs keeps the elements of a JSON array that are objects with a string
// configId. ok is false when data is not a JSON array at all.
func ParseCustomConfigs(data []byte) (configs []CustomConfig, ok bool) {
	configs = []CustomConfig{}

	var elements []any
	if err := decodeNumbers(data, &elements); err != nil || elements == nil {
		return configs, false
	}

	for _, element := range elements {
		obj, isObject := element.(map[string]any)
		if !isObject {
			continue
		}
		if _, hasID := obj[KeyConfigID].(string); !hasID {
			continue
		}
		configs = append(configs, CustomConfig(obj))
	}
	return configs, true
}

// FindCustomConfig returns the first override for configID.
func FindCustomConfig(configs []CustomConfig, configID string) (CustomConfig, bool) {
	for _, cfg := range configs {
		if cfg.ConfigID() == configID {
			return cfg, true
		}
	}
	return nil, false
}

func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
