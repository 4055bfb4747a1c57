package server

import (
	"errors"
	"net/http"

	"github.com/viant/afs/storage"
	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/session"
	"github.com/viant/rover/transport/rpc"
	"github.com/viant/rover/transport/ws"
	"go.uber.org/zap"
)

// Server represents the rover HTTP server.
type Server struct {
	manager            *session.Manager
	addr               string
	assetsURL          string
	assetOptions       []storage.Option
	cors               *Cors
	logger             *zap.Logger
	wsOptions          []ws.Option
	rpcOptions         []rpc.Option
	customHTTPHandlers map[string]http.HandlerFunc
	disableRPC         bool
}

// New creates a Server for manager.
func New(manager *session.Manager, options ...Option) (*Server, error) {
	if manager == nil {
		return nil, errors.New("no session manager specified")
	}
	s := &Server{
		manager: manager,
		addr:    DefaultAddr,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.logger = logging.Named(s.logger, "http")
	return s, nil
}

// Handler builds the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for path, handler := range s.customHTTPHandlers {
		mux.Handle(path, handler)
	}

	var allowed []string
	if s.cors != nil {
		allowed = s.cors.AllowOrigins
	}
	wsOptions := append([]ws.Option{ws.WithLogger(s.logger.Named("ws"))}, s.wsOptions...)
	if len(allowed) > 0 {
		wsOptions = append(wsOptions, ws.WithAllowedOrigins(allowed...))
	}
	// websocket upgrades hijack the connection and bypass response middleware
	mux.Handle("/ws", ws.New(s.manager, wsOptions...))

	var middlewares []Middleware
	middlewares = append(middlewares, accessLogMiddleware(s.logger))
	if s.cors != nil {
		handler := &corsHandler{Cors: s.cors}
		middlewares = append(middlewares, handler.Middleware, originValidationMiddleware(allowed))
	}
	wrap := func(h http.Handler) http.Handler {
		return ChainMiddlewareHandlers(h, middlewares...)
	}
	if !s.disableRPC {
		rpc.New(s.manager, s.rpcOptions...).Mount(mux, wrap)
	}
	mux.Handle("/healthz", wrap(http.HandlerFunc(s.health)))
	if s.assetsURL != "" {
		mux.Handle("/", wrap(NewAssets(s.assetsURL, s.logger.Named("assets"), s.assetOptions...)))
	}
	return mux
}

// HTTP creates an http.Server listening on addr, or the configured address when empty.
func (s *Server) HTTP(addr string) *http.Server {
	if addr == "" {
		addr = s.addr
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
}
