package rpc

import (
	"net/http"

	"github.com/viant/jsonrpc/transport/server/http/sse"
	"github.com/viant/jsonrpc/transport/server/http/streamable"
)

const (
	DefaultStreamableURI = "/rpc"
	DefaultSSEURI        = "/sse"
	DefaultSSEMessageURI = "/message"

	// SessionHeader carries the streamable transport session id.
	SessionHeader = "Mcp-Session-Id"
	jsonMime      = "application/json"
)

// Mount registers the streamable HTTP and SSE endpoints on mux.
func (s *Server) Mount(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(h http.Handler) http.Handler { return h }
	}
	sseHandler := sse.New(s.NewHandler,
		sse.WithURI(DefaultSSEURI),
		sse.WithMessageURI(DefaultSSEMessageURI),
	)
	mux.Handle(DefaultSSEURI, wrap(sseStream(sseHandler)))
	mux.Handle(DefaultSSEMessageURI, wrap(sseHandler))
	mux.Handle(DefaultStreamableURI, wrap(s.streamableStream(streamable.New(s.NewStreamableHandler,
		streamable.WithURI(DefaultStreamableURI),
		streamable.WithKeepAliveInterval(s.keepAlive),
		streamable.WithOnSessionClose(s.onSessionClose),
	))))
}
