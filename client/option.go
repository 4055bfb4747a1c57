package client

import "github.com/viant/rover/schema"

// Option configures a client Handler.
type Option func(h *Handler)

// WithListener receives every status notification.
func WithListener(listener func(message *schema.Message)) Option {
	return func(h *Handler) {
		h.listener = listener
	}
}
