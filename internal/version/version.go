// Package version provides version information and arduino-cli version checking.
package version

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	apperrors "github.com/ctagard/arduino-debug-mcp/internal/errors"
)

const (
	// Version is the current version of arduino-debug-mcp
	Version = "0.1.0"

	// GitHubRepo is the repository path
	GitHubRepo = "ctagard/arduino-debug-mcp"
)

// CLIInfo describes an arduino-cli binary as reported by `arduino-cli version`.
type CLIInfo struct {
	Path          string `json:"path"`
	Application   string `json:"application,omitempty"`
	VersionString string `json:"versionString"`
	Commit        string `json:"commit,omitempty"`
	Date          string `json:"date,omitempty"`
	MinVersion    string `json:"minVersion"`
	Supported     bool   `json:"supported"`
}

// CheckCLI runs `<cliPath> version --format json` and compares the reported version
// with minVersion. Development builds (git-snapshot, nightly-...) are always supported.
// An empty minVersion accepts any version.
func CheckCLI(ctx context.Context, runner cli.Runner, cliPath, cliConfigPath, minVersion string) (*CLIInfo, error) {
	result, err := runner.Run(ctx, cliPath, cli.VersionArgs(cliConfigPath))
	if err != nil {
		return nil, apperrors.CliExecFailed(cliPath, cli.Classify(err))
	}

	info, err := ParseCLIVersion(result.Stdout)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCliExecFailed, err.Error(),
			"Check that cliPath points to arduino-cli and not another program.", err)
	}
	info.Path = cliPath
	info.MinVersion = minVersion
	info.Supported = IsSupported(info.VersionString, minVersion)
	return info, nil
}

// ParseCLIVersion reads the output of `arduino-cli version --format json`.
func ParseCLIVersion(output []byte) (*CLIInfo, error) {
	if !gjson.ValidBytes(output) {
		return nil, fmt.Errorf("arduino-cli version output is not JSON: %s", truncateString(strings.TrimSpace(string(output)), 200))
	}
	doc := gjson.ParseBytes(output)

	versionString := doc.Get("VersionString").String()
	if versionString == "" {
		versionString = doc.Get("version_string").String()
	}
	if versionString == "" {
		return nil, fmt.Errorf("arduino-cli version output has no VersionString")
	}

	return &CLIInfo{
		Application:   doc.Get("Application").String(),
		VersionString: versionString,
		Commit:        doc.Get("Commit").String(),
		Date:          doc.Get("Date").String(),
	}, nil
}

// IsSupported reports whether version satisfies minVersion.
func IsSupported(version, minVersion string) bool {
	if minVersion == "" || isDevelopmentBuild(version) {
		return true
	}
	return compareVersions(version, minVersion) >= 0
}

// RequireSupported returns a structured error when the CLI is too old.
func (i *CLIInfo) RequireSupported() error {
	if i.Supported {
		return nil
	}
	return apperrors.CliVersionUnsupported(i.VersionString, i.MinVersion)
}

func isDevelopmentBuild(version string) bool {
	v := strings.TrimPrefix(version, "v")
	return v == "" || !unicode.IsDigit(rune(v[0]))
}

// compareVersions compares two semver strings
// Returns -1 if v1 < v2, 0 if equal, 1 if v1 > v2
func compareVersions(v1, v2 string) int {
	parse := func(v string) (major, minor, patch int) {
		parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
		if len(parts) >= 1 {
			fmt.Sscanf(parts[0], "%d", &major)
		}
		if len(parts) >= 2 {
			fmt.Sscanf(parts[1], "%d", &minor)
		}
		if len(parts) >= 3 {
			// Handle pre-release suffixes like "1.0.0-rc1"
			patchStr := strings.Split(parts[2], "-")[0]
			fmt.Sscanf(patchStr, "%d", &patch)
		}
		return
	}

	maj1, min1, pat1 := parse(v1)
	maj2, min2, pat2 := parse(v2)

	for _, pair := range [][2]int{{maj1, maj2}, {min1, min2}, {pat1, pat2}} {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// GetVersion returns the current version
func GetVersion() string {
	return Version
}
