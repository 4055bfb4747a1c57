package rpc

import "time"

// DefaultKeepAliveInterval is the keepalive period of streamable notification
// streams. The first keepalive also releases messages queued for the stream.
const DefaultKeepAliveInterval = time.Second

// Option configures a Server.
type Option func(s *Server)

// WithKeepAliveInterval sets the keepalive period of streamable notification streams.
func WithKeepAliveInterval(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.keepAlive = interval
		}
	}
}
