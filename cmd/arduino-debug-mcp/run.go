package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/mingrammer/cfmt"

	"github.com/ctagard/arduino-debug-mcp/internal/config"
	"github.com/ctagard/arduino-debug-mcp/internal/dap"
	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
	"github.com/ctagard/arduino-debug-mcp/internal/session"
	"github.com/ctagard/arduino-debug-mcp/internal/watch"
	"github.com/ctagard/arduino-debug-mcp/pkg/types"
)

const (
	formatJSON = "json"
	formatDAP  = "dap"
)

// runOptions are the command line arguments of the one-shot modes.
type runOptions struct {
	types.StartDebugParams

	Format     string
	DAPAddress string
	Persist    bool
}

// checkPersist reports why the one-shot modes cannot save with cfg. The in-memory
// fallback store does not outlive the process, so saving needs a directory or a
// settings file.
func checkPersist(cfg *config.Config) error {
	if !cfg.CanPersist() {
		return fmt.Errorf("launch configurations are not saved in readonly mode, use -resolve")
	}
	if cfg.LaunchConfigsDirPath == "" && cfg.SettingsPath == "" {
		return fmt.Errorf("nowhere to save the launch configuration: set -launch-dir, %s or %s",
			config.EnvLaunchDir, config.EnvSettingsPath)
	}
	return nil
}

// oneShot resolves launch configurations from the command line.
type oneShot struct {
	resolver *session.Resolver
	logger   *log.Logger
	out      io.Writer
}

// run resolves once, saving the result when opts.Persist is set, and prints it.
func (r *oneShot) run(ctx context.Context, opts runOptions) error {
	if opts.Format != formatJSON && opts.Format != formatDAP {
		return fmt.Errorf("invalid format %q: must be %q or %q", opts.Format, formatJSON, formatDAP)
	}

	var (
		result *session.Result
		err    error
	)
	if opts.Persist {
		result, err = r.resolver.Start(ctx, opts.StartDebugParams)
	} else {
		result, err = r.resolver.CreateLaunchConfig(ctx, opts.StartDebugParams)
	}
	if err != nil {
		return err
	}

	rctx := &launchconfig.ResolutionContext{WorkspaceFolder: opts.SketchPath}
	switch opts.Format {
	case formatDAP:
		req, err := dap.NewRequest(result.Config, rctx)
		if err != nil {
			return err
		}
		if err := dap.WriteRequest(r.out, req); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(r.out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Config); err != nil {
			return err
		}
	}

	if opts.DAPAddress != "" {
		req, err := dap.NewRequest(result.Config, rctx)
		if err != nil {
			return err
		}
		if err := dap.Handoff(ctx, opts.DAPAddress, req, r.logger); err != nil {
			return err
		}
		r.logger.Printf("Started %q on %s", result.Config.ConfigID(), opts.DAPAddress)
	}
	return nil
}

// watch runs once, then again every time debug_custom.json of the sketch changes,
// until ctx is done. Failed runs are reported and do not stop watching.
func (r *oneShot) watch(ctx context.Context, opts runOptions) error {
	w, err := watch.New(opts.SketchPath, launchconfig.CustomConfigFileName)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.SketchPath, err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	if err := r.run(ctx, opts); err != nil {
		cfmt.Errorln(err)
	}
	cfmt.Successln("Watching " + launchconfig.CustomConfigPath(opts.SketchPath))

	for path := range w.Changed {
		cfmt.Warningf("%s changed\n", path)
		if err := r.run(ctx, opts); err != nil {
			cfmt.Errorln(err)
		}
	}
	return <-errCh
}
