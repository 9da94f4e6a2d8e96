package version

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	apperrors "github.com/ctagard/arduino-debug-mcp/internal/errors"
)

type fakeRunner struct {
	result *cli.Result
	err    error
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string) (*cli.Result, error) {
	f.args = args
	return f.result, f.err
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"0.35.0", "0.35.0", 0},
		{"1.0.4", "0.35.0", 1},
		{"0.34.2", "0.35.0", -1},
		{"v1.2.3", "1.2.3", 0},
		{"1.0.0-rc1", "1.0.0", 0},
		{"0.35.10", "0.35.9", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.v1, tt.v2), "%s vs %s", tt.v1, tt.v2)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("1.1.1", "0.35.0"))
	assert.False(t, IsSupported("0.34.2", "0.35.0"))
	assert.True(t, IsSupported("git-snapshot", "0.35.0"))
	assert.True(t, IsSupported("nightly-20240101", "0.35.0"))
	assert.True(t, IsSupported("0.1.0", ""))
}

func TestParseCLIVersion(t *testing.T) {
	info, err := ParseCLIVersion([]byte(`{"Application":"arduino-cli","VersionString":"1.1.1","Commit":"fa6eafcb","Status":"","Date":"2024-11-28T09:42:57Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "arduino-cli", info.Application)
	assert.Equal(t, "1.1.1", info.VersionString)
	assert.Equal(t, "fa6eafcb", info.Commit)

	_, err = ParseCLIVersion([]byte("arduino-cli Version: 0.20.0"))
	assert.Error(t, err)

	_, err = ParseCLIVersion([]byte(`{"Application":"arduino-cli"}`))
	assert.Error(t, err)
}

func TestCheckCLI(t *testing.T) {
	runner := &fakeRunner{result: &cli.Result{Stdout: []byte(`{"VersionString":"0.34.2"}`)}}

	info, err := CheckCLI(context.Background(), runner, "/bin/arduino-cli", "/c.yaml", "0.35.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "--config-file", "/c.yaml", "--format", "json"}, runner.args)
	assert.Equal(t, "/bin/arduino-cli", info.Path)
	assert.False(t, info.Supported)

	err = info.RequireSupported()
	assert.True(t, apperrors.Is(err, apperrors.CodeCliVersionUnsupported))
	assert.Contains(t, err.Error(), "0.35.0 or newer")
}

func TestCheckCLI_ExecFailure(t *testing.T) {
	execErr := &cli.ExecError{Path: "/missing", Err: errors.New("no such file or directory")}
	runner := &fakeRunner{err: execErr}

	_, err := CheckCLI(context.Background(), runner, "/missing", "", "0.35.0")
	assert.True(t, apperrors.Is(err, apperrors.CodeCliExecFailed))

	var target *cli.ExecError
	assert.True(t, errors.As(err, &target))
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
