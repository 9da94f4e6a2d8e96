// Package config provides configuration management for the Arduino debug MCP server.
//
// Configuration controls:
//   - Capability mode (readonly vs full): whether launch configurations are persisted
//   - arduino-cli location and its own configuration file
//   - The target debugger type and where launch configurations are stored
//   - The minimum supported arduino-cli version
//
// Configuration is layered: defaults, then an optional JSON file, then environment
// variables (a .env file in the working directory is honored), then command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CapabilityMode defines the level of capabilities exposed
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly" // Resolve only, never write launch configurations
	ModeFull     CapabilityMode = "full"     // All tools enabled
)

// Environment variables overriding the file configuration.
const (
	EnvCliPath       = "ARDUINO_CLI_PATH"
	EnvCliConfig     = "ARDUINO_CLI_CONFIG"
	EnvDebuggerType  = "ARDUINO_DEBUGGER_TYPE"
	EnvLaunchDir     = "ARDUINO_LAUNCH_DIR"
	EnvSettingsPath  = "ARDUINO_SETTINGS_PATH"
	EnvMinCliVersion = "ARDUINO_MIN_CLI_VERSION"
)

const (
	// DefaultDebuggerType is the debugger front-end launch configurations target.
	DefaultDebuggerType = "cortex-debug"

	// DefaultMinCliVersion is the oldest arduino-cli with `debug --info --format json`.
	DefaultMinCliVersion = "0.35.0"
)

// Config holds the server configuration
type Config struct {
	Mode CapabilityMode `json:"mode"`

	// arduino-cli
	CliPath       string `json:"cliPath"`
	CliConfigPath string `json:"cliConfigPath"`
	MinCliVersion string `json:"minCliVersion"`

	// Launch configurations
	DebuggerType         string `json:"debuggerType"`
	LaunchConfigsDirPath string `json:"launchConfigsDirPath"` // <dir>/launch.json when set
	SettingsPath         string `json:"settingsPath"`         // settings file used when no dir is given; empty keeps them in memory

	// Locale of arduino-cli messages; read from the CLI configuration when empty
	Locale string `json:"locale"`
}

// findArduinoCLI searches for arduino-cli in PATH and common install locations
func findArduinoCLI() string {
	if path, err := exec.LookPath("arduino-cli"); err == nil {
		return path
	}

	var locations []string
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, "bin", "arduino-cli"),
			filepath.Join(home, ".local", "bin", "arduino-cli"),
		)
	}
	locations = append(locations,
		"/opt/homebrew/bin/arduino-cli", // Homebrew on Apple Silicon
		"/usr/local/bin/arduino-cli",
		"/usr/bin/arduino-cli",
	)

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	// Fall back to default name (will fail if not in PATH, but provides clear error)
	return "arduino-cli"
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:          ModeFull,
		CliPath:       findArduinoCLI(),
		MinCliVersion: DefaultMinCliVersion,
		DebuggerType:  DefaultDebuggerType,
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load loads the JSON file at path (if any), then applies the environment. Variables
// from a .env file are loaded first; variables already set in the process win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields with the non-empty ARDUINO_* environment variables.
func (c *Config) ApplyEnv() {
	for env, field := range map[string]*string{
		EnvCliPath:       &c.CliPath,
		EnvCliConfig:     &c.CliConfigPath,
		EnvDebuggerType:  &c.DebuggerType,
		EnvLaunchDir:     &c.LaunchConfigsDirPath,
		EnvSettingsPath:  &c.SettingsPath,
		EnvMinCliVersion: &c.MinCliVersion,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeReadOnly, ModeFull:
	default:
		return fmt.Errorf("invalid mode %q: must be %q or %q", c.Mode, ModeReadOnly, ModeFull)
	}
	if c.CliPath == "" {
		return fmt.Errorf("cliPath is required")
	}
	if c.DebuggerType == "" {
		return fmt.Errorf("debuggerType is required")
	}
	return nil
}

// CanPersist returns true if launch configurations may be written
func (c *Config) CanPersist() bool {
	return c.Mode == ModeFull
}

// ResolveCliConfigPath returns explicit, or the Arduino IDE 2 location of the CLI
// configuration (<home>/.arduinoIDE/arduino-cli.yaml).
func ResolveCliConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".arduinoIDE", "arduino-cli.yaml")
	}
	return filepath.Join(home, ".arduinoIDE", "arduino-cli.yaml")
}

// cliConfig is the part of arduino-cli.yaml this server reads.
type cliConfig struct {
	Locale string `yaml:"locale"`
}

// ReadCliLocale returns the locale configured in an arduino-cli.yaml, or "" if the file
// is missing, malformed or does not set one.
func ReadCliLocale(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var cfg cliConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return strings.TrimSpace(cfg.Locale)
}

// CliLocale returns the configured locale, falling back to the CLI configuration file.
func (c *Config) CliLocale() string {
	if c.Locale != "" {
		return c.Locale
	}
	return ReadCliLocale(ResolveCliConfigPath(c.CliConfigPath))
}
