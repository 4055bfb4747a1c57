package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/viant/rover/schema"
)

// DefaultQueueSize is the number of outbound messages buffered per session.
const DefaultQueueSize = 32

// Sender writes one message to a client transport.
type Sender interface {
	Send(ctx context.Context, message *schema.Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, message *schema.Message) error

func (f SenderFunc) Send(ctx context.Context, message *schema.Message) error {
	return f(ctx, message)
}

// Session is one connected client.
type Session struct {
	ID        string
	ctx       context.Context
	cancel    context.CancelFunc
	sender    Sender
	ready     <-chan struct{}
	outbound  chan *schema.Message
	alive     atomic.Bool
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// New creates a session and starts its writer. The session ends when ctx is
// done, Close is called or a write fails.
func New(ctx context.Context, sender Sender, options ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)
	ret := &Session{
		ID:       uuid.New().String(),
		ctx:      ctx,
		cancel:   cancel,
		sender:   sender,
		outbound: make(chan *schema.Message, DefaultQueueSize),
	}
	for _, option := range options {
		option(ret)
	}
	ret.alive.Store(true)
	go ret.writeLoop()
	return ret
}

// Alive reports whether the session transport is still usable.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Err returns the write error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Enqueue queues message for delivery. It returns false once the session has
// ended; a full queue ends the session.
func (s *Session) Enqueue(message *schema.Message) bool {
	if !s.Alive() {
		return false
	}
	select {
	case s.outbound <- message:
		return true
	default:
		s.fail(errQueueFull)
		return false
	}
}

// Close ends the session; queued messages are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		s.cancel()
	})
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Close()
}

func (s *Session) writeLoop() {
	if s.ready != nil {
		select {
		case <-s.ready:
		case <-s.ctx.Done():
			s.Close()
			return
		}
	}
	for {
		select {
		case <-s.ctx.Done():
			s.Close()
			return
		case message := <-s.outbound:
			if err := s.sender.Send(s.ctx, message); err != nil {
				s.fail(err)
				return
			}
		}
	}
}
