package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	"github.com/ctagard/arduino-debug-mcp/internal/debuginfo"
	apperrors "github.com/ctagard/arduino-debug-mcp/internal/errors"
	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// fakeRunner records invocations and replays a canned outcome.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string) (*cli.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.err != nil {
		var exitErr *cli.ExitError
		if errors.As(f.err, &exitErr) {
			return exitErr.Result, f.err
		}
		return nil, f.err
	}
	return &cli.Result{Stdout: []byte(f.stdout)}, nil
}

func exitFailure(stderr string, code int) error {
	return &cli.ExitError{
		Path:   "/bin/arduino-cli",
		Result: &cli.Result{Stderr: []byte(stderr), ExitCode: code},
		Err:    errors.New("exit status"),
	}
}

type recorder struct {
	mu     sync.Mutex
	states []types.ResolutionState
}

func (r *recorder) record(_ string, state types.ResolutionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func newTestResolver(runner cli.Runner, rec *recorder) *Resolver {
	opts := Options{Logger: log.New(&bytes.Buffer{}, "", 0)}
	if rec != nil {
		opts.Progress = rec.record
	}
	return NewResolver(runner, opts)
}

func testParams(t *testing.T) types.StartDebugParams {
	t.Helper()
	return types.StartDebugParams{
		CliPath:    "/bin/arduino-cli",
		Board:      types.BoardIdentifier{FQBN: "a:b:c"},
		SketchPath: t.TempDir(),
		Programmer: "p",
	}
}

func writeCustom(t *testing.T, sketchPath, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(sketchPath, launchconfig.CustomConfigFileName), []byte(content), 0o644))
}

// TestStart_Minimal verifies the merge of a plain board with a programmer.
func TestStart_Minimal(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"e"}`}
	rec := &recorder{}
	r := newTestResolver(runner, rec)
	params := testParams(t)
	params.LaunchConfigsDirPath = filepath.Join(t.TempDir(), ".vscode")

	res, err := r.Start(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, launchconfig.LaunchConfig{
		"configId":   "a:b:c:programmer=p",
		"cwd":        "${workspaceRoot}",
		"request":    "launch",
		"type":       "cortex-debug",
		"executable": "e",
		"name":       "Arduino (a:b:c:programmer=p)",
	}, res.Config)
	assert.Equal(t, types.StateDone, res.State)
	assert.NotEmpty(t, res.RequestID)

	assert.Equal(t, [][]string{{
		"/bin/arduino-cli", "debug", "--info", "--fqbn", "a:b:c", "--programmer", "p", params.SketchPath, "--format", "json",
	}}, runner.calls)
	assert.Equal(t, []types.ResolutionState{
		types.StateInvoking, types.StateParsed, types.StateMerged, types.StatePersisted, types.StateDone,
	}, rec.states)

	lj, err := launchconfig.LoadFromPath(filepath.Join(params.LaunchConfigsDirPath, launchconfig.LaunchJSONFileName))
	require.NoError(t, err)
	assert.Equal(t, []launchconfig.LaunchConfig{res.Config}, lj.Configurations)
}

func TestStart_CustomConfig(t *testing.T) {
	r := newTestResolver(&fakeRunner{stdout: `{"executable":"e"}`}, nil)
	params := testParams(t)
	writeCustom(t, params.SketchPath, `[{"configId":"a:b:c:programmer=p","cwd":"custom"}]`)

	res, err := r.Start(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "custom", res.Config["cwd"])
	assert.Equal(t, "e", res.Config["executable"])
	assert.Equal(t, "Arduino (a:b:c:programmer=p)", res.Config.Name())
}

func TestStart_Renames(t *testing.T) {
	stdout := `{
		"executable": "e",
		"server_path": "/bin/s",
		"server": "jlink",
		"toolchain_path": "/tc",
		"server_configuration": {"scripts": ["a.cfg"]}
	}`
	r := newTestResolver(&fakeRunner{stdout: stdout}, nil)

	res, err := r.Start(context.Background(), testParams(t))
	require.NoError(t, err)
	assert.Equal(t, "/bin/s", res.Config["serverpath"])
	assert.Equal(t, "jlink", res.Config["servertype"])
	assert.Equal(t, "/tc", res.Config["armToolchainPath"])
	assert.Equal(t, []any{"a.cfg"}, res.Config["configFiles"])
	for _, key := range []string{"serverPath", "server", "toolchainPath", "serverConfiguration"} {
		assert.NotContains(t, res.Config, key)
	}
}

// TestStart_FallbackStore verifies that requests without a directory share the fallback store.
func TestStart_FallbackStore(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"e"}`}
	r := newTestResolver(runner, nil)
	params := testParams(t)

	_, err := r.Start(context.Background(), params)
	require.NoError(t, err)
	params.Programmer = "q"
	res, err := r.Start(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, r.StoreFor("").Key(), res.Store)

	lj, err := r.StoreFor("").Load()
	require.NoError(t, err)
	assert.Equal(t, []types.ConfigurationInfo{
		{ConfigID: "a:b:c:programmer=p", Name: "Arduino (a:b:c:programmer=p)", Type: "cortex-debug", Request: "launch"},
		{ConfigID: "a:b:c:programmer=q", Name: "Arduino (a:b:c:programmer=q)", Type: "cortex-debug", Request: "launch"},
	}, launchconfig.ListConfigurations(lj))
}

func TestStart_UpsertReplaces(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"old"}`}
	r := newTestResolver(runner, nil)
	params := testParams(t)
	params.LaunchConfigsDirPath = t.TempDir()

	_, err := r.Start(context.Background(), params)
	require.NoError(t, err)
	runner.stdout = `{"executable":"new"}`
	_, err = r.Start(context.Background(), params)
	require.NoError(t, err)

	lj, err := launchconfig.LoadFromPath(filepath.Join(params.LaunchConfigsDirPath, launchconfig.LaunchJSONFileName))
	require.NoError(t, err)
	require.Len(t, lj.Configurations, 1)
	assert.Equal(t, "new", lj.Configurations[0]["executable"])
}

func TestCreateLaunchConfig_DoesNotPersist(t *testing.T) {
	r := newTestResolver(&fakeRunner{stdout: `{"executable":"e"}`}, nil)
	params := testParams(t)
	params.LaunchConfigsDirPath = filepath.Join(t.TempDir(), "launch")

	res, err := r.CreateLaunchConfig(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "a:b:c:programmer=p", res.Config.ConfigID())
	assert.Empty(t, res.Store)

	_, err = os.Stat(params.LaunchConfigsDirPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStart_Cancelled(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"e"}`}
	rec := &recorder{}
	r := newTestResolver(runner, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Start(ctx, testParams(t))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, runner.calls, "the CLI is never started")
	assert.Equal(t, []types.ResolutionState{types.StateCancelled}, rec.states)
}

func TestStart_InvalidInput(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"e"}`}
	r := newTestResolver(runner, nil)

	tests := []struct {
		name   string
		mutate func(*types.StartDebugParams)
		code   apperrors.ErrorCode
	}{
		{"missing cli", func(p *types.StartDebugParams) { p.CliPath = "" }, apperrors.CodeMissingParameter},
		{"missing fqbn", func(p *types.StartDebugParams) { p.Board.FQBN = "" }, apperrors.CodeMissingParameter},
		{"malformed fqbn", func(p *types.StartDebugParams) { p.Board.FQBN = "a:b" }, apperrors.CodeInvalidParameter},
		{"missing sketch", func(p *types.StartDebugParams) { p.SketchPath = "" }, apperrors.CodeMissingParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams(t)
			tt.mutate(&params)
			_, err := r.Start(context.Background(), params)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, runner.calls)
}

// TestStart_CliError verifies that structured CLI errors surface with their exit code
// and nothing is persisted.
func TestStart_CliError(t *testing.T) {
	runner := &fakeRunner{err: exitFailure(`{"error":"Missing programmer"}`, cli.BadArgumentExitCode)}
	rec := &recorder{}
	r := newTestResolver(runner, rec)
	params := testParams(t)
	params.Programmer = ""
	params.LaunchConfigsDirPath = filepath.Join(t.TempDir(), "launch")

	_, err := r.Start(context.Background(), params)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeCliError))
	assert.Contains(t, err.Error(), "Missing programmer")
	assert.Contains(t, err.Error(), "programmer parameter")

	var cliErr *cli.CliError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, 7, cliErr.ExitCode)
	assert.True(t, cli.IsMissingProgrammerError(err, ""))

	_, statErr := os.Stat(params.LaunchConfigsDirPath)
	assert.True(t, os.IsNotExist(statErr), "nothing is persisted on failure")
	assert.Equal(t, types.StateFailed, rec.states[len(rec.states)-1])
}

func TestStart_RawFailure(t *testing.T) {
	raw := exitFailure("Segmentation fault", 139)
	r := newTestResolver(&fakeRunner{err: raw}, nil)

	_, err := r.Start(context.Background(), testParams(t))
	assert.True(t, apperrors.Is(err, apperrors.CodeCliExecFailed))

	var cliErr *cli.CliError
	assert.False(t, errors.As(err, &cliErr), "unstructured stderr never becomes a CLI error")
	assert.True(t, errors.Is(err, raw))
}

func TestStart_ExecError(t *testing.T) {
	execErr := &cli.ExecError{Path: "/missing", Err: os.ErrNotExist}
	r := newTestResolver(&fakeRunner{err: execErr}, nil)

	_, err := r.Start(context.Background(), testParams(t))
	assert.True(t, apperrors.Is(err, apperrors.CodeCliExecFailed))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStart_MissingExecutable(t *testing.T) {
	r := newTestResolver(&fakeRunner{stdout: `{"toolchain":"gcc"}`}, nil)
	params := testParams(t)
	params.LaunchConfigsDirPath = filepath.Join(t.TempDir(), "launch")

	_, err := r.Start(context.Background(), params)
	assert.True(t, apperrors.Is(err, apperrors.CodeDebugInfoInvalid))
	assert.Contains(t, err.Error(), `'executable' is missing from the debugger configuration. Configuration: {"toolchain":"gcc"}`)

	_, isMissing := debuginfo.IsMissingExecutableError(err)
	assert.True(t, isMissing)

	_, statErr := os.Stat(params.LaunchConfigsDirPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStart_UnparsableOutput(t *testing.T) {
	r := newTestResolver(&fakeRunner{stdout: "alma"}, nil)

	_, err := r.Start(context.Background(), testParams(t))
	assert.True(t, apperrors.Is(err, apperrors.CodeDebugInfoUnparsable))
}

func TestStart_StoreFailure(t *testing.T) {
	r := newTestResolver(&fakeRunner{stdout: `{"executable":"e"}`}, nil)
	params := testParams(t)

	// A regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	params.LaunchConfigsDirPath = filepath.Join(blocker, "launch")

	_, err := r.Start(context.Background(), params)
	assert.True(t, apperrors.Is(err, apperrors.CodeLaunchStoreFailed))
}

func TestStart_LocaleAwareMissingProgrammer(t *testing.T) {
	runner := &fakeRunner{err: exitFailure(`{"error":"Programmatore mancante"}`, cli.BadArgumentExitCode)}
	r := NewResolver(runner, Options{Locale: "it_IT", Logger: log.New(&bytes.Buffer{}, "", 0)})

	_, err := r.Start(context.Background(), testParams(t))
	var de *apperrors.DebugError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, de.Hint, "programmer parameter")
}

func TestStart_Concurrent(t *testing.T) {
	runner := &fakeRunner{stdout: `{"executable":"e"}`}
	var logs bytes.Buffer
	r := NewResolver(runner, Options{Logger: log.New(&logs, "", 0)})
	dir := t.TempDir()

	var wg sync.WaitGroup
	for _, programmer := range []string{"p1", "p2", "p3", "p4"} {
		wg.Add(1)
		go func(programmer string) {
			defer wg.Done()
			params := testParams(t)
			params.Programmer = programmer
			params.LaunchConfigsDirPath = dir
			_, err := r.Start(context.Background(), params)
			assert.NoError(t, err)
		}(programmer)
	}
	wg.Wait()

	lj, err := launchconfig.LoadFromPath(filepath.Join(dir, launchconfig.LaunchJSONFileName))
	require.NoError(t, err)
	assert.Len(t, lj.Configurations, 4)

	// Requests share the one logger, so lines are never interleaved
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	updated := 0
	for _, line := range lines {
		assert.Regexp(t, `^\[[0-9a-f-]{8}\] `, line)
		if strings.Contains(line, "Updated launch configuration") {
			updated++
		}
	}
	assert.Equal(t, 4, updated)
}
