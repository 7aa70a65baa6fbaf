package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/aogaki/delila-go/internal/state"
)

// Client sends Commands to a stage's control-plane address and decodes the
// reply, used by the operator collaborator and by integration tests.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// Dial connects to a stage's control-plane address.
func Dial(address string) (*Client, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, dec: json.NewDecoder(conn), enc: json.NewEncoder(conn)}, nil
}

// Send issues cmd and waits up to an implicit 5-second reply deadline,
// the default timeout an operator can expect any command to answer
// within.
func (c *Client) Send(cmd state.Command) (state.CommandResponse, error) {
	return c.SendWithTimeout(cmd, 5*time.Second)
}

// SendWithTimeout issues cmd and waits up to timeout for a response.
func (c *Client) SendWithTimeout(cmd state.Command, timeout time.Duration) (state.CommandResponse, error) {
	var resp state.CommandResponse
	deadline := time.Now().Add(timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return resp, fmt.Errorf("control: set deadline: %w", err)
	}
	if err := c.enc.Encode(cmd); err != nil {
		return resp, fmt.Errorf("control: send command: %w", err)
	}
	if err := c.dec.Decode(&resp); err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return resp, fmt.Errorf("control: reply timed out after %s: %w", timeout, err)
		}
		return resp, fmt.Errorf("control: decode reply: %w", err)
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
