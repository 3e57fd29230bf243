package ipc

import (
	"fmt"
	"net"
	"time"

	"hearth/internal/wire"
)

const dialTimeout = 2 * time.Second

// Client holds one connection to the daemon. The protocol is strictly one
// request and one reply per connection, so a Client is good for a single Do
// call; dial again for the next request.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon over the given transport ("unix" or "tcp").
func Dial(transport, addr string) (*Client, error) {
	switch transport {
	case "unix", "tcp":
	default:
		return nil, fmt.Errorf("unsupported transport %q", transport)
	}
	conn, err := net.DialTimeout(transport, addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Do sends one framed request and reads the framed reply.
func (c *Client) Do(req *wire.Request) (*wire.Reply, error) {
	if err := wire.Encode(c.conn, req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	var reply wire.Reply
	if err := wire.Decode(c.conn, &reply); err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return &reply, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Exchange dials, performs one request, and closes. Most callers want this.
func Exchange(transport, addr string, req *wire.Request) (*wire.Reply, error) {
	client, err := Dial(transport, addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Do(req)
}

// Ping checks daemon liveness over a fresh connection.
func Ping(transport, addr string) (*wire.Reply, error) {
	return Exchange(transport, addr, &wire.Request{Action: wire.ActionPing})
}

// Status fetches the daemon status report over a fresh connection.
func Status(transport, addr string) (*wire.Reply, error) {
	return Exchange(transport, addr, &wire.Request{Action: wire.ActionStatus})
}

// Chat sends a conversation and returns the model reply. Temperature and
// maxTokens may be nil to accept the daemon defaults.
func Chat(transport, addr string, messages []wire.Message, temperature *float64, maxTokens *int) (*wire.Reply, error) {
	return Exchange(transport, addr, &wire.Request{
		Action:      wire.ActionChat,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}
