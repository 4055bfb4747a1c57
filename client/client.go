package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/client/http/sse"
	"github.com/viant/jsonrpc/transport/client/http/streamable"
	"github.com/viant/rover/schema"
)

// Client calls the bridge JSON-RPC methods.
type Client struct {
	transport transport.Transport
	handler   *Handler
	cancel    context.CancelFunc
}

// Close aborts every request of a dialed client, including the notification
// stream. It is a no-op for clients created with New.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Command submits a drive command; the reply is an ack or an error message.
func (c *Client) Command(ctx context.Context, cmd string) (*schema.Message, error) {
	return c.send(ctx, schema.MethodCommand, &schema.Inbound{Cmd: cmd})
}

// Status returns the current link status message.
func (c *Client) Status(ctx context.Context) (*schema.Message, error) {
	return c.send(ctx, schema.MethodStatus, nil)
}

func (c *Client) send(ctx context.Context, method string, parameters interface{}) (*schema.Message, error) {
	req, err := jsonrpc.NewRequest(method, parameters)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	response, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), nil)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	result := &schema.Message{}
	if err = json.Unmarshal(response.Result, result); err != nil {
		return nil, jsonrpc.NewInternalError(fmt.Sprintf("failed to unmarshal %v result: %v", method, err), nil)
	}
	return result, nil
}

// New creates a client over an existing transport. Pass the client's
// Handler to the transport to receive status notifications.
func New(aTransport transport.Transport, handler *Handler) *Client {
	if handler == nil {
		handler = NewHandler()
	}
	return &Client{transport: aTransport, handler: handler}
}

// Dial connects to URL: a path ending in /sse uses the SSE transport,
// anything else the streamable HTTP transport. The connection, including the
// notification stream, lasts until ctx is done or Close is called.
func Dial(ctx context.Context, URL string, options ...Option) (*Client, error) {
	ctx, cancel := context.WithCancel(ctx)
	handler := NewHandler(options...)
	httpClient := newHTTPClient(ctx)
	var aTransport transport.Transport
	var err error
	if strings.HasSuffix(strings.TrimRight(URL, "/"), "/sse") {
		if aTransport, err = sse.New(ctx, URL, sse.WithHandler(handler), sse.WithHttpClient(httpClient), sse.WithMessageHttpClient(httpClient)); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create SSE transport: %w", err)
		}
	} else if aTransport, err = streamable.New(ctx, URL, streamable.WithHandler(handler), streamable.WithHTTPClient(httpClient)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create streamable transport: %w", err)
	}
	ret := New(aTransport, handler)
	ret.cancel = cancel
	return ret, nil
}
