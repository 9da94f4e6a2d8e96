package dap

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/go-dap"

	"github.com/ctagard/arduino-debug-mcp/internal/launchconfig"
)

// NewRequest builds the launch or attach request of cfg. Variables such as
// ${workspaceRoot} are resolved with rctx first, whose WorkspaceFolder is usually the
// sketch folder. The sequence number is left at zero; Transport.SendRequest assigns it.
func NewRequest(cfg launchconfig.LaunchConfig, rctx *launchconfig.ResolutionContext) (dap.RequestMessage, error) {
	resolved, err := launchconfig.ResolveConfiguration(cfg, rctx)
	if err != nil {
		return nil, err
	}

	args, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s args: %w", resolved.Request(), err)
	}

	switch {
	case resolved.IsLaunchRequest():
		return &dap.LaunchRequest{
			Request:   newRequest("launch"),
			Arguments: args,
		}, nil
	case resolved.IsAttachRequest():
		return &dap.AttachRequest{
			Request:   newRequest("attach"),
			Arguments: args,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported request type %q: must be 'launch' or 'attach'", resolved.Request())
	}
}

// WriteRequest writes req to w with the DAP Content-Length framing.
func WriteRequest(w io.Writer, req dap.RequestMessage) error {
	if req.GetSeq() == 0 {
		req.GetRequest().Seq = 1
	}
	return dap.WriteProtocolMessage(w, req)
}

func newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Type: "request"},
		Command:         command,
	}
}
