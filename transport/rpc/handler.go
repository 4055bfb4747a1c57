// Package rpc exposes rover sessions over JSON-RPC 2.0 using the
// github.com/viant/jsonrpc transports (streamable HTTP and SSE).
//
// Every open notification stream becomes a rover session: the client is
// notified with a "status" notification when the stream opens and whenever
// the link state changes. Commands are submitted with the "command" method
// and answered inline with the ack or error message.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/server/base"
	"github.com/viant/rover/internal/collection"
	"github.com/viant/rover/schema"
	"github.com/viant/rover/session"
)

// Handler serves JSON-RPC requests for one transport session.
type Handler struct {
	manager  *session.Manager
	notifier *notifier
	bind     func(ctx context.Context, h *Handler)
	bound    sync.Once
	mu       sync.Mutex
	session  *session.Session
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(ctx context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	if h.bind != nil {
		h.bound.Do(func() { h.bind(ctx, h) })
	}
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}
	switch request.Method {
	case schema.MethodCommand:
		h.setResponse(response, h.manager.Dispatch(request.Params))
	case schema.MethodStatus:
		h.setResponse(response, h.manager.Status())
	default:
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result *schema.Message) {
	var err error
	if response.Result, err = json.Marshal(result); err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), nil)
	}
}

// OnNotification ignores client notifications.
func (h *Handler) OnNotification(_ context.Context, _ *jsonrpc.Notification) {}

// Session returns the rover session currently bound to this handler, or nil
// while no notification stream is open.
func (h *Handler) Session() *session.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// start registers a rover session living for ctx, replacing the previous one.
func (h *Handler) start(ctx context.Context, options ...session.Option) *session.Session {
	ret := session.New(ctx, h.notifier, options...)
	h.mu.Lock()
	previous := h.session
	h.session = ret
	h.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	h.manager.Register(ret)
	return ret
}

// close ends the current rover session, if any.
func (h *Handler) close() {
	if s := h.Session(); s != nil {
		s.Close()
	}
}

// notifier delivers session messages as JSON-RPC notifications.
type notifier struct {
	transport.Notifier
}

func (n *notifier) Send(ctx context.Context, message *schema.Message) error {
	notification, err := jsonrpc.NewNotification(message.Type, message)
	if err != nil {
		return err
	}
	return n.Notify(ctx, notification)
}

// Server creates a Handler per transport session.
type Server struct {
	manager   *session.Manager
	streams   *collection.SyncMap[string, *Handler]
	keepAlive time.Duration
}

// New creates a JSON-RPC server backed by manager.
func New(manager *session.Manager, options ...Option) *Server {
	ret := &Server{
		manager:   manager,
		streams:   collection.NewSyncMap[string, *Handler](),
		keepAlive: DefaultKeepAliveInterval,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// NewHandler registers a rover session for an SSE transport session; the
// rover session ends with ctx, the lifetime of the event stream. When the
// stream was opened through Mount, delivery starts once the endpoint event
// has been flushed and the stream closes when the rover session ends.
func (s *Server) NewHandler(ctx context.Context, aTransport transport.Transport) transport.Handler {
	ret := &Handler{manager: s.manager, notifier: &notifier{Notifier: aTransport}}
	st, ok := ctx.Value(streamKey).(*stream)
	if !ok {
		ret.start(ctx)
		return ret
	}
	st.follow(ret.start(ctx, session.WithReady(st.ready)))
	return ret
}

// NewStreamableHandler creates a handler for a streamable HTTP transport
// session. ctx belongs to the handshake request and is not retained: a rover
// session is registered each time the client opens its GET notification
// stream and lasts as long as that stream.
func (s *Server) NewStreamableHandler(_ context.Context, aTransport transport.Transport) transport.Handler {
	return &Handler{
		manager:  s.manager,
		notifier: &notifier{Notifier: aTransport},
		bind:     s.bindStream,
	}
}

// bindStream records the transport session id of h, taken from the first
// request it serves.
func (s *Server) bindStream(ctx context.Context, h *Handler) {
	if aSession, ok := ctx.Value(jsonrpc.SessionKey).(*base.Session); ok {
		s.streams.Put(aSession.Id, h)
	}
}

// openStream starts the rover session for the notification stream of the
// transport session id. It returns nil for an unknown id.
func (s *Server) openStream(ctx context.Context, id string, ready <-chan struct{}) *session.Session {
	h, ok := s.streams.Get(id)
	if !ok {
		return nil
	}
	return h.start(ctx, session.WithReady(ready))
}

// closeStream ends the transport session id and its rover session.
func (s *Server) closeStream(id string) {
	if h, ok, _ := s.streams.Delete(id); ok {
		h.close()
	}
}

// onSessionClose is called when the streamable transport expires a session.
func (s *Server) onSessionClose(aSession *base.Session) {
	s.closeStream(aSession.Id)
	if h, ok := aSession.Handler.(*Handler); ok {
		h.close()
	}
}
