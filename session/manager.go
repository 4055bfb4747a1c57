package session

import (
	"encoding/json"
	"errors"

	"github.com/viant/rover/device"
	"github.com/viant/rover/internal/collection"
	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/schema"
	"go.uber.org/zap"
)

// Link is the device link as seen by the manager.
type Link interface {
	State() schema.LinkState
	Send(command schema.Command) error
}

// Manager holds the active sessions and relays their commands to the link.
type Manager struct {
	link     Link
	sessions *collection.SyncMap[string, *Session]
	logger   *zap.Logger
}

// NewManager creates a manager forwarding commands to link.
func NewManager(link Link, options ...ManagerOption) *Manager {
	ret := &Manager{
		link:     link,
		sessions: collection.NewSyncMap[string, *Session](),
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = logging.Named(ret.logger, "session")
	return ret
}

// Register adds s to the active set and queues its status message, which is
// always the first message the session receives. A session that ends on its
// own is unregistered automatically.
//
// The link state is read outside the registry lock since the link may hold
// its own lock across a serial open; a change observed after the session was
// added is queued as a second status.
func (m *Manager) Register(s *Session) {
	state := m.LinkState()
	added := m.sessions.PutIfAbsent(s.ID, s, func(size int) {
		s.Enqueue(schema.NewStatus(state))
		m.logger.Info("client connected", zap.String("session", s.ID), zap.Int("sessions", size))
	})
	if !added {
		return
	}
	if latest := m.LinkState(); latest != state {
		s.Enqueue(schema.NewStatus(latest))
	}
	go func() {
		<-s.Done()
		m.Unregister(s)
	}()
}

// Unregister removes and closes s. It is idempotent.
func (m *Manager) Unregister(s *Session) {
	s.Close()
	if _, ok, size := m.sessions.Delete(s.ID); ok {
		fields := []zap.Field{zap.String("session", s.ID), zap.Int("sessions", size)}
		if err := s.Err(); err != nil {
			fields = append(fields, zap.Error(err))
		}
		m.logger.Info("client disconnected", fields...)
	}
}

// Registered reports whether s is in the active set.
func (m *Manager) Registered(s *Session) bool {
	_, ok := m.sessions.Get(s.ID)
	return ok
}

// LinkState returns the current link state.
func (m *Manager) LinkState() schema.LinkState {
	return m.link.State()
}

// Status returns the status message for the current link state.
func (m *Manager) Status() *schema.Message {
	return schema.NewStatus(m.LinkState())
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	return m.sessions.Len()
}

// Handle processes one raw inbound message and replies to s only.
func (m *Manager) Handle(s *Session, raw []byte) error {
	if !s.Alive() {
		return ErrClosed
	}
	if !s.Enqueue(m.Dispatch(raw)) {
		return ErrClosed
	}
	return nil
}

// Dispatch validates a raw inbound message, forwards the command and returns
// the reply. A message that cannot be decoded or lacks "cmd" is treated as an
// empty token.
func (m *Manager) Dispatch(raw []byte) *schema.Message {
	var inbound schema.Inbound
	if err := json.Unmarshal(raw, &inbound); err != nil {
		m.logger.Debug("malformed inbound message", zap.ByteString("raw", raw), zap.Error(err))
		inbound.Cmd = ""
	}
	return m.Execute(inbound.Cmd)
}

// Execute validates token and forwards the command to the link.
func (m *Manager) Execute(token string) *schema.Message {
	command, err := schema.Validate(token)
	if err != nil {
		return schema.NewError(err.Error())
	}
	if err = m.link.Send(command); err != nil {
		var writeErr *device.WriteError
		if !errors.As(err, &writeErr) {
			m.logger.Error("command forwarding failed", zap.String("cmd", command.Mnemonic()), zap.Error(err))
		}
		return schema.NewError(schema.DeviceWriteFailedMessage(command))
	}
	return schema.NewAck(command)
}

// Broadcast queues message for every active session.
func (m *Manager) Broadcast(message *schema.Message) {
	m.sessions.Range(func(_ string, s *Session) bool {
		if !s.Enqueue(message) {
			m.Unregister(s)
		}
		return true
	})
}

// NotifyState broadcasts the status for state; it is suitable for device.Link.Watch.
func (m *Manager) NotifyState(state schema.LinkState) {
	m.logger.Info("link state changed", zap.Stringer("state", state), zap.Int("sessions", m.Count()))
	m.Broadcast(schema.NewStatus(state))
}

// Close unregisters every session.
func (m *Manager) Close() {
	m.sessions.Range(func(_ string, s *Session) bool {
		m.Unregister(s)
		return true
	})
}
