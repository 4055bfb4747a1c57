package server

import (
	"net/http"
	"time"

	"github.com/viant/afs/storage"
	"github.com/viant/rover/transport/rpc"
	"github.com/viant/rover/transport/ws"
	"go.uber.org/zap"
)

const (
	// DefaultAddr binds only to localhost.
	DefaultAddr              = "127.0.0.1:8000"
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithCORS sets the CORS policy; its AllowOrigins also restrict websocket origins.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		s.cors = cors
		return nil
	}
}

// WithAssetsURL serves static UI assets from an afs URL (file://, mem://, embed://).
func WithAssetsURL(URL string, options ...storage.Option) Option {
	return func(s *Server) error {
		s.assetsURL = URL
		s.assetOptions = options
		return nil
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithWebsocketOptions passes options to the websocket handler.
func WithWebsocketOptions(options ...ws.Option) Option {
	return func(s *Server) error {
		s.wsOptions = append(s.wsOptions, options...)
		return nil
	}
}

// WithRPCOptions passes options to the JSON-RPC endpoints.
func WithRPCOptions(options ...rpc.Option) Option {
	return func(s *Server) error {
		s.rpcOptions = append(s.rpcOptions, options...)
		return nil
	}
}

// WithCustomHTTPHandler adds a custom HTTP handler for the given path.
func WithCustomHTTPHandler(path string, handler http.HandlerFunc) Option {
	return func(s *Server) error {
		if s.customHTTPHandlers == nil {
			s.customHTTPHandlers = make(map[string]http.HandlerFunc)
		}
		s.customHTTPHandlers[path] = handler
		return nil
	}
}

// WithoutRPC disables the JSON-RPC endpoints.
func WithoutRPC() Option {
	return func(s *Server) error {
		s.disableRPC = true
		return nil
	}
}
