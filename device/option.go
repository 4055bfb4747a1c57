package device

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Link.
type Option func(l *Link)

// WithOpener replaces the serial port opener.
func WithOpener(opener Opener) Option {
	return func(l *Link) {
		l.opener = opener
	}
}

// WithLogger sets the link logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Link) {
		l.logger = logger
	}
}

// WithOpenTimeout bounds how long Connect waits for the port to open.
func WithOpenTimeout(timeout time.Duration) Option {
	return func(l *Link) {
		if timeout > 0 {
			l.openTimeout = timeout
		}
	}
}

// WithDefaults sets the port and baud rate used by Reconnect before any Connect.
func WithDefaults(port string, baudRate int) Option {
	return func(l *Link) {
		l.port = port
		l.baudRate = baudRate
	}
}
