package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/rover/schema"
)

// Handler receives server traffic for a client transport.
type Handler struct {
	listener func(message *schema.Message)
}

// NewHandler creates a transport handler.
func NewHandler(options ...Option) *Handler {
	ret := &Handler{}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Serve rejects server-initiated requests; the bridge only notifies.
func (h *Handler) Serve(_ context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	response.Id = request.Id
	response.Jsonrpc = request.Jsonrpc
	response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method %s not found", request.Method), nil)
}

// OnNotification passes status notifications to the listener.
func (h *Handler) OnNotification(_ context.Context, notification *jsonrpc.Notification) {
	if h.listener == nil || notification.Method != schema.MethodStatus {
		return
	}
	message := &schema.Message{}
	if err := json.Unmarshal(notification.Params, message); err != nil {
		return
	}
	h.listener(message)
}
