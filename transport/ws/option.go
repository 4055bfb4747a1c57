package ws

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Handler.
type Option func(h *Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithAllowedOrigins restricts browser origins allowed to open a session.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		h.allowedOrigins = make(map[string]bool, len(origins))
		for _, origin := range origins {
			h.allowedOrigins[origin] = true
		}
	}
}

// WithMaxPayloadBytes bounds an inbound frame; larger frames are answered
// with an error reply.
func WithMaxPayloadBytes(size int) Option {
	return func(h *Handler) {
		if size > 0 {
			h.maxPayloadBytes = size
		}
	}
}

// WithWriteTimeout bounds a single outbound write.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.writeTimeout = timeout
	}
}
