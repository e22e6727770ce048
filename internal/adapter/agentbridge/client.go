// Package agentbridge talks to the external agent-identity layer.
package agentbridge

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"
)

// Rotator instructs the agent-identity layer to forget a session's current
// mapping so the next send starts a fresh underlying context.
type Rotator interface {
	RotateSession(sessionID string)
}

// Client is a JSON-RPC client for the agent bridge.
type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient creates a client for the given bridge URL. An empty URL yields a
// client whose calls are no-ops.
func NewClient(baseURL string) *Client {
	return &Client{
		addr:        resolveRPCAddr(baseURL),
		dialTimeout: 5 * time.Second,
		callTimeout: 5 * time.Second,
	}
}

var _ Rotator = (*Client)(nil)

// RotateRequest is the request body for a session identity reset.
type RotateRequest struct {
	SessionID string `json:"session_id"`
}

// RotateResponse is the response for a session identity reset.
type RotateResponse struct {
	OK bool `json:"ok"`
}

// RotateSession is fire-and-forget: a silent failure only means the next
// turn starts with more context than intended, so errors are logged and
// swallowed.
func (c *Client) RotateSession(sessionID string) {
	if c.addr == "" {
		return
	}

	req := &RotateRequest{SessionID: sessionID}
	var resp RotateResponse

	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	if err := c.call(ctx, "AgentBridge.RotateSession", req, &resp); err != nil {
		log.Printf("WARN: failed to reset session identity %s: %v", sessionID, err)
		return
	}
	if !resp.OK {
		log.Printf("WARN: agent bridge rejected identity reset for %s", sessionID)
	}
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		if call.Error != nil {
			return fmt.Errorf("rpc call failed: %w", call.Error)
		}
		return nil
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}
