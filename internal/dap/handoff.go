package dap

import (
	"context"
	"log"

	"github.com/google/go-dap"
)

// Handoff connects to the DAP server at address and starts a session with req.
// The connection is closed once the adapter has accepted the configuration.
func Handoff(ctx context.Context, address string, req dap.RequestMessage, logger *log.Logger) error {
	transport, err := NewTCPTransport(address)
	if err != nil {
		return err
	}
	client := NewClient(transport, logger)
	defer client.Close()

	if _, err := client.Initialize(ctx, "arduino-debug-mcp", "Arduino Debug MCP"); err != nil {
		return err
	}
	return client.Start(ctx, req)
}
