// Package cli invokes the Arduino CLI and interprets its failures.
//
// A Runner spawns one process per call and never retries. Exit codes other than
// zero are reported as *ExitError carrying the captured output, while a process
// that could not be started at all (missing path, not executable) is reported as
// *ExecError. Classify turns an *ExitError whose stderr is the CLI's JSON error
// object into a *CliError.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs an external executable and captures its output.
type Runner interface {
	// Run starts name with args and waits for it to exit. There is no implicit
	// timeout; ctx controls the lifetime of the process.
	Run(ctx context.Context, name string, args []string) (*Result, error)
}

// ExecError is returned when the process could not be started.
type ExecError struct {
	Path string
	Args []string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("failed to execute %s: %v", e.Path, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExitError is returned when the process ran but exited with a non-zero code.
type ExitError struct {
	Path   string
	Result *Result
	Err    error
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(string(e.Result.Stderr))
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Path, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Path, e.Result.ExitCode, stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	// Dir is the working directory of the process; empty means the current one
	Dir string

	// Env is appended to the current environment
	Env []string
}

// NewExecRunner creates a runner that inherits the current working directory and environment
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)

	// Set platform-specific process attributes (procattr_unix.go / procattr_windows.go)
	setProcAttr(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &ExecError{Path: name, Args: args, Err: err}
	}

	err := cmd.Wait()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &ExitError{Path: name, Result: result, Err: err}
		}
		return nil, &ExecError{Path: name, Args: args, Err: err}
	}

	return result, nil
}
