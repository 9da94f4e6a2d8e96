package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mingrammer/cfmt"

	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	"github.com/ctagard/arduino-debug-mcp/internal/config"
	"github.com/ctagard/arduino-debug-mcp/internal/mcp"
	"github.com/ctagard/arduino-debug-mcp/internal/version"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "", "Capability mode: 'readonly' or 'full' (default: full)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	help := flag.Bool("help", false, "Show help and exit")

	// One-shot resolution
	resolve := flag.Bool("resolve", false, "Resolve the launch configuration, print it and exit")
	start := flag.Bool("start", false, "Resolve the launch configuration, save it, print it and exit")
	watch := flag.Bool("watch", false, "Like -start, then again whenever debug_custom.json changes")
	checkCLI := flag.Bool("check-cli", false, "Check the arduino-cli version and exit")

	cliPath := flag.String("cli", "", "Path of the arduino-cli executable")
	cliConfigPath := flag.String("cli-config", "", "Path of the arduino-cli.yaml passed to the CLI")
	launchDir := flag.String("launch-dir", "", "Directory whose launch.json is updated")

	var opts runOptions
	flag.StringVar(&opts.Board.FQBN, "fqbn", "", "Fully qualified board name")
	flag.StringVar(&opts.Board.Name, "board-name", "", "Human-readable board name")
	flag.StringVar(&opts.Programmer, "programmer", "", "Programmer used for debugging")
	flag.StringVar(&opts.SketchPath, "sketch", "", "Path of the sketch folder")
	flag.StringVar(&opts.Format, "format", formatJSON, "Output format: 'json' (launch configuration) or 'dap' (framed DAP request)")
	flag.StringVar(&opts.DAPAddress, "dap-addr", "", "host:port of a DAP server to start the session on")

	flag.Parse()

	if *showVersion {
		fmt.Printf("arduino-debug-mcp version %s\n", version.GetVersion())
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override from command line
	if *mode == "readonly" {
		cfg.Mode = config.ModeReadOnly
	} else if *mode == "full" {
		cfg.Mode = config.ModeFull
	} else if *mode != "" {
		log.Fatalf("Invalid mode %q: must be 'readonly' or 'full'", *mode)
	}
	if *cliPath != "" {
		cfg.CliPath = *cliPath
	}
	if *cliConfigPath != "" {
		cfg.CliConfigPath = *cliConfigPath
	}
	if *launchDir != "" {
		cfg.LaunchConfigsDirPath = *launchDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	runner := cli.NewExecRunner()

	switch {
	case *checkCLI:
		info, err := version.CheckCLI(ctx, runner, cfg.CliPath, cfg.CliConfigPath, cfg.MinCliVersion)
		if err != nil {
			cfmt.Errorln(err)
			os.Exit(1)
		}
		if err := info.RequireSupported(); err != nil {
			cfmt.Errorln(err)
			os.Exit(1)
		}
		cfmt.Successln(fmt.Sprintf("%s %s (%s) is supported", info.Path, info.VersionString, info.Commit))
		return

	case *resolve || *start || *watch:
		opts.Persist = *start || *watch
		if opts.Persist {
			if err := checkPersist(cfg); err != nil {
				cfmt.Errorln(err)
				os.Exit(2)
			}
		}
		r := &oneShot{
			resolver: mcp.NewResolver(cfg, runner, logger),
			logger:   logger,
			out:      os.Stdout,
		}
		opts.CliPath = cfg.CliPath
		opts.CliConfigPath = cfg.CliConfigPath
		opts.LaunchConfigsDirPath = cfg.LaunchConfigsDirPath

		if *watch {
			err = r.watch(ctx, opts)
		} else {
			err = r.run(ctx, opts)
		}
		if err != nil && ctx.Err() == nil {
			cfmt.Errorln(err)
			os.Exit(1)
		}
		return
	}

	// Create and start the server
	server := mcp.NewServer(cfg, runner, logger)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	// Start serving via stdio
	log.Println("arduino-debug-mcp server starting...")
	if err := server.ServeStdio(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp() {
	fmt.Println(`arduino-debug-mcp: Arduino debug launch configurations over MCP

A Model Context Protocol (MCP) server that resolves the debug launch configuration
of an Arduino board from arduino-cli, so AI agents can start embedded debug sessions.

USAGE:
    arduino-debug-mcp [OPTIONS]
    arduino-debug-mcp -resolve|-start|-watch -fqbn <fqbn> -sketch <path> [OPTIONS]
    arduino-debug-mcp -check-cli [-cli <path>]

OPTIONS:
    -config <path>       Path to configuration file (JSON)
    -mode <mode>         Capability mode: 'readonly' or 'full' (default: full)
    -version             Show version and exit
    -help                Show this help message

ONE-SHOT:
    -resolve             Print the launch configuration without saving it
    -start               Save the launch configuration into launch.json and print it
    -watch               Like -start, again on every change of debug_custom.json
    -check-cli           Check that arduino-cli supports debug --info
    -fqbn <fqbn>         Board, e.g. arduino:samd:mkr1000
    -board-name <name>   Human-readable board name
    -programmer <id>     Programmer, e.g. atmel_ice
    -sketch <path>       Sketch folder
    -cli <path>          arduino-cli executable
    -cli-config <path>   arduino-cli.yaml passed to the CLI
    -launch-dir <path>   Directory whose launch.json is updated (usually <sketch>/.vscode)
    -format <format>     'json' or 'dap' (framed DAP launch/attach request)
    -dap-addr <addr>     Start the session on the DAP server at host:port

ENVIRONMENT:
    ARDUINO_CLI_PATH, ARDUINO_CLI_CONFIG, ARDUINO_DEBUGGER_TYPE, ARDUINO_LAUNCH_DIR,
    ARDUINO_SETTINGS_PATH, ARDUINO_MIN_CLI_VERSION. A .env file in the working
    directory is loaded first.

CONFIGURATION:
    {
        "mode": "full",
        "cliPath": "/usr/local/bin/arduino-cli",
        "debuggerType": "cortex-debug",
        "launchConfigsDirPath": "/path/to/sketch/.vscode",
        "settingsPath": "/path/to/settings.json",
        "minCliVersion": "0.35.0"
    }

MCP INTEGRATION:
    {
        "mcpServers": {
            "arduino-debug": {
                "command": "arduino-debug-mcp",
                "args": ["--mode", "full"]
            }
        }
    }

TOOLS:
    arduino_debug_create_launch_config   Resolve a launch configuration
    arduino_debug_start                  Resolve and save (full mode only)
    arduino_debug_list_launch_configs    List saved launch configurations
    arduino_cli_version                  Check the arduino-cli version

For more information, visit: https://github.com/` + version.GitHubRepo)
}
