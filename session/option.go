package session

import (
	"github.com/viant/rover/schema"
	"go.uber.org/zap"
)

// Option configures a Session.
type Option func(s *Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.ID = id
		}
	}
}

// WithQueueSize sets the outbound queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.outbound = make(chan *schema.Message, size)
		}
	}
}

// WithReady holds delivery until ready is closed. Messages enqueued before
// that are kept in order and count against the queue capacity.
func WithReady(ready <-chan struct{}) Option {
	return func(s *Session) {
		s.ready = ready
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(m *Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}
