package dap

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/go-dap"
)

// DefaultTimeout bounds each step of the handshake when ctx has no deadline.
const DefaultTimeout = 30 * time.Second

// Client drives the start of a debug session on a DAP server
type Client struct {
	transport *Transport
	logger    *log.Logger

	// Messages read by readLoop
	msgs    chan dap.Message
	readErr chan error

	// Capabilities from initialize response
	capabilities dap.Capabilities

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a new DAP client with the given transport
func NewClient(transport *Transport, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	c := &Client{
		transport: transport,
		logger:    logger,
		msgs:      make(chan dap.Message),
		readErr:   make(chan error, 1),
		done:      make(chan struct{}),
	}

	// Start the message reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	return c
}

// readLoop continuously reads messages from the transport
func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		msg, err := c.transport.Receive()
		if err != nil {
			c.readErr <- err
			return
		}
		select {
		case c.msgs <- msg:
		case <-c.done:
			return
		}
	}
}

// next returns the next message that is not an event handled here.
func (c *Client) next(ctx context.Context) (dap.Message, error) {
	for {
		select {
		case msg := <-c.msgs:
			if out, ok := msg.(*dap.OutputEvent); ok {
				c.logger.Printf("[%s] %s", out.Body.Category, out.Body.Output)
				continue
			}
			return msg, nil
		case err := <-c.readErr:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, fmt.Errorf("client closed")
		}
	}
}

// Initialize sends the initialize request
func (c *Client) Initialize(ctx context.Context, clientID, clientName string) (*dap.InitializeResponse, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	req := &dap.InitializeRequest{
		Request: newRequest("initialize"),
		Arguments: dap.InitializeRequestArguments{
			ClientID:        clientID,
			ClientName:      clientName,
			AdapterID:       "arduino-debug-mcp",
			Locale:          "en-US",
			LinesStartAt1:   true,
			ColumnsStartAt1: true,
			PathFormat:      "path",
		},
	}
	seq, err := c.transport.SendRequest(req)
	if err != nil {
		return nil, err
	}

	for {
		msg, err := c.next(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		if err := responseError(msg, seq); err != nil {
			return nil, err
		}
		if resp, ok := msg.(*dap.InitializeResponse); ok && resp.RequestSeq == seq {
			c.capabilities = resp.Body
			return resp, nil
		}
	}
}

// Start sends a launch or attach request and completes the configuration phase.
//
// The adapter signals readiness with an initialized event, after which
// configurationDone is sent. Some adapters answer the launch request only after
// configurationDone, so both responses are awaited in any order.
func (c *Client) Start(ctx context.Context, req dap.RequestMessage) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	command := req.GetRequest().Command
	startSeq, err := c.transport.SendRequest(req)
	if err != nil {
		return err
	}

	var started, configured bool
	configSeq := -1
	for !started || !configured {
		msg, err := c.next(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", command, err)
		}
		if err := responseError(msg, startSeq); err != nil {
			return err
		}
		if err := responseError(msg, configSeq); err != nil {
			return err
		}

		switch m := msg.(type) {
		case *dap.InitializedEvent:
			configSeq, err = c.transport.SendRequest(&dap.ConfigurationDoneRequest{Request: newRequest("configurationDone")})
			if err != nil {
				return err
			}
		case *dap.LaunchResponse:
			started = started || m.RequestSeq == startSeq
		case *dap.AttachResponse:
			started = started || m.RequestSeq == startSeq
		case *dap.ConfigurationDoneResponse:
			configured = configured || m.RequestSeq == configSeq
		default:
			c.logger.Printf("Ignoring DAP message %T during %s", msg, command)
		}
	}
	return nil
}

// Capabilities returns the adapter capabilities from the initialize response
func (c *Client) Capabilities() dap.Capabilities {
	return c.capabilities
}

// Close closes the client and its transport
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.transport.Close()
		c.wg.Wait()
	})
	return err
}

// responseError reports a failed response to the request with sequence number seq.
func responseError(msg dap.Message, seq int) error {
	resp, ok := msg.(dap.ResponseMessage)
	if !ok || seq < 0 {
		return nil
	}
	r := resp.GetResponse()
	if r.RequestSeq != seq || r.Success {
		return nil
	}
	if e, ok := msg.(*dap.ErrorResponse); ok && e.Body.Error != nil {
		return fmt.Errorf("%s failed: %s", r.Command, e.Body.Error.Format)
	}
	return fmt.Errorf("%s failed: %s", r.Command, r.Message)
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
