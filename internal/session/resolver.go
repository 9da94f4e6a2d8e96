// Package session orchestrates the resolution of a debug launch configuration.
//
// A resolution request runs arduino-cli `debug --info`, normalizes its output, merges
// it with the sketch's debug_custom.json overrides and, for Start, upserts the result
// into a launch configuration store. Requests are independent; the only shared
// resource is the store, which launchconfig.Update serializes.
package session

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ctagard/arduino-debug-mcp/internal/board"
	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	"github.com/ctagard/arduino-debug-mcp/internal/debuginfo"
	apperrors "github.com/ctagard/arduino-debug-mcp/internal/errors"
	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

// DefaultTitle is the progress title used when a request does not set one.
const DefaultTitle = "Getting debug info..."

// ProgressFunc receives every state transition of a request.
type ProgressFunc func(requestID string, state types.ResolutionState)

// Options configures a Resolver.
type Options struct {
	// DebuggerType is the debugger the configurations target (default cortex-debug)
	DebuggerType string

	// Locale of arduino-cli messages, used to recognize a missing programmer
	Locale string

	// FallbackStore is used when a request has no launch configurations directory.
	// When nil, configurations are kept in memory for the lifetime of the Resolver.
	FallbackStore launchconfig.Store

	Logger   *log.Logger
	Progress ProgressFunc
}

// Resolver resolves launch configurations.
type Resolver struct {
	runner        cli.Runner
	debuggerType  string
	locale        string
	fallbackStore launchconfig.Store
	logger        *log.Logger
	progress      ProgressFunc
}

// NewResolver creates a resolver that runs arduino-cli through runner.
func NewResolver(runner cli.Runner, opts Options) *Resolver {
	r := &Resolver{
		runner:        runner,
		debuggerType:  opts.DebuggerType,
		locale:        opts.Locale,
		fallbackStore: opts.FallbackStore,
		logger:        opts.Logger,
		progress:      opts.Progress,
	}
	if r.debuggerType == "" {
		r.debuggerType = launchconfig.DefaultDebuggerType
	}
	if r.fallbackStore == nil {
		r.fallbackStore = launchconfig.NewMemoryStore()
	}
	if r.logger == nil {
		r.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return r
}

// Result is the outcome of a successful resolution.
type Result struct {
	RequestID string                    `json:"requestId"`
	Config    launchconfig.LaunchConfig `json:"config"`
	State     types.ResolutionState     `json:"state"`

	// Store identifies where the configuration was persisted; empty for CreateLaunchConfig
	Store string `json:"store,omitempty"`
}

// CreateLaunchConfig resolves the launch configuration of params without persisting it.
func (r *Resolver) CreateLaunchConfig(ctx context.Context, params types.StartDebugParams) (*Result, error) {
	req := r.newRequest()
	cfg, err := req.resolve(ctx, params)
	if err != nil {
		return nil, err
	}
	req.transition(types.StateDone)
	return &Result{RequestID: req.id, Config: cfg, State: req.state}, nil
}

// Start resolves the launch configuration of params and upserts it into the store
// selected by params.LaunchConfigsDirPath. Nothing is persisted when resolution fails.
// Starting the debugger with the returned configuration is up to the caller.
func (r *Resolver) Start(ctx context.Context, params types.StartDebugParams) (*Result, error) {
	req := r.newRequest()
	cfg, err := req.resolve(ctx, params)
	if err != nil {
		return nil, err
	}

	store := r.StoreFor(params.LaunchConfigsDirPath)
	if _, err := launchconfig.Update(store, cfg); err != nil {
		req.transition(types.StateFailed)
		return nil, apperrors.LaunchStoreFailed(store.Key(), err)
	}
	req.transition(types.StatePersisted)
	req.logf("Updated launch configuration %q in %s", cfg.ConfigID(), store.Key())

	req.transition(types.StateDone)
	return &Result{RequestID: req.id, Config: cfg, State: req.state, Store: store.Key()}, nil
}

// StoreFor returns the store used for a launch configurations directory.
func (r *Resolver) StoreFor(launchConfigsDirPath string) launchconfig.Store {
	if launchConfigsDirPath != "" {
		return launchconfig.NewDirStore(launchConfigsDirPath, r.logger)
	}
	return r.fallbackStore
}

// request is the per-invocation state machine.
type request struct {
	*Resolver
	id    string
	state types.ResolutionState
}

func (r *Resolver) newRequest() *request {
	return &request{
		Resolver: r,
		id:       uuid.New().String(),
		state:    types.StateIdle,
	}
}

// logf logs through the resolver's logger, tagged with the short request ID.
func (req *request) logf(format string, args ...any) {
	req.logger.Printf("[%s] "+format, append([]any{req.id[:8]}, args...)...)
}

func (req *request) transition(state types.ResolutionState) {
	req.state = state
	if req.progress != nil {
		req.progress(req.id, state)
	}
}

func (req *request) fail(state types.ResolutionState, err error) error {
	req.transition(state)
	req.logf("Resolution failed: %v", err)
	return err
}

// resolve runs Idle -> Invoking -> Parsed -> Merged.
func (req *request) resolve(ctx context.Context, params types.StartDebugParams) (launchconfig.LaunchConfig, error) {
	if err := validate(params); err != nil {
		return nil, req.fail(types.StateFailed, err)
	}

	// Cancellation only gates the start; a running CLI is not interrupted.
	if err := ctx.Err(); err != nil {
		return nil, req.fail(types.StateCancelled, apperrors.Cancelled(err))
	}

	title := params.Title
	if title == "" {
		title = DefaultTitle
	}
	req.transition(types.StateInvoking)
	req.logf("%s", title)

	var (
		result  *cli.Result
		customs []launchconfig.CustomConfig
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		result, err = req.runner.Run(context.WithoutCancel(ctx), params.CliPath, cli.DebugInfoArgs(params))
		return err
	})
	g.Go(func() error {
		customs = launchconfig.LoadCustomConfigs(params.SketchPath, req.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, req.fail(types.StateFailed, req.cliFailure(params.CliPath, err))
	}

	info, ok, err := debuginfo.Parse(result.Stdout)
	if !ok {
		return nil, req.fail(types.StateFailed, apperrors.DebugInfoUnparsable(strings.TrimSpace(string(result.Stdout))))
	}
	if err != nil {
		return nil, req.fail(types.StateFailed, apperrors.DebugInfoInvalid(err))
	}
	req.transition(types.StateParsed)

	cfg := launchconfig.Merge(params.Board, params.Programmer, req.debuggerType, info, customs)
	req.transition(types.StateMerged)
	req.logf("Resolved launch configuration %q", cfg.ConfigID())
	return cfg, nil
}

// cliFailure maps a runner error to a structured error, keeping the original as cause.
func (req *request) cliFailure(cliPath string, err error) error {
	classified := cli.Classify(err)
	var cliErr *cli.CliError
	if errors.As(classified, &cliErr) {
		return apperrors.CliError(cliErr.Message, cliErr.ExitCode,
			cli.IsBadArgumentError(cliErr), cli.IsMissingProgrammerError(cliErr, req.locale), cliErr)
	}
	return apperrors.CliExecFailed(cliPath, classified)
}

func validate(params types.StartDebugParams) error {
	if params.CliPath == "" {
		return apperrors.MissingParameter("cliPath", "Provide the path of the arduino-cli executable.")
	}
	if params.Board.FQBN == "" {
		return apperrors.MissingParameter("board.fqbn", "Provide the fully qualified board name, e.g. arduino:samd:mkr1000.")
	}
	if _, err := board.ParseFQBN(params.Board.FQBN); err != nil {
		return apperrors.InvalidParameter("board.fqbn", params.Board.FQBN, "vendor:arch:boardId[:key=value,...]").
			WithDetails("reason", err.Error()).
			WithCause(err)
	}
	if params.SketchPath == "" {
		return apperrors.MissingParameter("sketchPath", "Provide the absolute path of the sketch folder.")
	}
	return nil
}
