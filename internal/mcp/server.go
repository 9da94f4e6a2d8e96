// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes Arduino debug configuration through MCP tools that can be used
// by AI assistants and other MCP clients:
//
// Always available:
//   - arduino_debug_create_launch_config: Resolve the launch configuration of a board
//   - arduino_debug_list_launch_configs: List persisted launch configurations
//   - arduino_cli_version: Report the arduino-cli version and whether it is supported
//
// Full mode only:
//   - arduino_debug_start: Resolve, persist and optionally hand off to a DAP server
package mcp

import (
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ctagard/arduino-debug-mcp/internal/cli"
	"github.com/ctagard/arduino-debug-mcp/internal/config"
	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
	"github.com/ctagard/arduino-debug-mcp/internal/session"
	"github.com/ctagard/arduino-debug-mcp/internal/version"
)

// Server wraps the MCP server with launch configuration capabilities
type Server struct {
	mcpServer *server.MCPServer
	resolver  *session.Resolver
	runner    cli.Runner
	config    *config.Config
	logger    *log.Logger
}

// NewServer creates a new arduino-debug-mcp server
func NewServer(cfg *config.Config, runner cli.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	mcpServer := server.NewMCPServer(
		"arduino-debug-mcp",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer: mcpServer,
		resolver:  NewResolver(cfg, runner, logger),
		runner:    runner,
		config:    cfg,
		logger:    logger,
	}

	s.registerTools()

	return s
}

// NewResolver creates the resolver configured by cfg. Requests without a launch
// configurations directory use the settings file when one is configured.
func NewResolver(cfg *config.Config, runner cli.Runner, logger *log.Logger) *session.Resolver {
	opts := session.Options{
		DebuggerType: cfg.DebuggerType,
		Locale:       cfg.CliLocale(),
		Logger:       logger,
	}
	if cfg.SettingsPath != "" {
		opts.FallbackStore = launchconfig.NewSettingsStore(cfg.SettingsPath, logger)
	}
	return session.NewResolver(runner, opts)
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
