package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/rover/device"
	"github.com/viant/rover/schema"
	"go.uber.org/zap"
)

type fakeLink struct {
	mu      sync.Mutex
	state   schema.LinkState
	sent    []schema.Command
	sendErr error
}

func (l *fakeLink) State() schema.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fakeLink) Send(command schema.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, command)
	return l.sendErr
}

func (l *fakeLink) Sent() []schema.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schema.Command{}, l.sent...)
}

// recorder is a Sender capturing delivered messages.
type recorder struct {
	messages chan *schema.Message
	err      error
}

func newRecorder() *recorder {
	return &recorder{messages: make(chan *schema.Message, 64)}
}

func (r *recorder) Send(_ context.Context, message *schema.Message) error {
	if r.err != nil {
		return r.err
	}
	r.messages <- message
	return nil
}

func (r *recorder) next(t *testing.T) *schema.Message {
	t.Helper()
	select {
	case message := <-r.messages:
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case message := <-r.messages:
		t.Fatalf("unexpected message: %+v", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestManager(state schema.LinkState) (*Manager, *fakeLink) {
	link := &fakeLink{state: state}
	return NewManager(link, WithLogger(zap.NewNop())), link
}

func TestManager_Register_SendsStatusFirst(t *testing.T) {
	var testCases = []struct {
		description string
		state       schema.LinkState
		expect      bool
	}{
		{description: "connected", state: schema.Connected, expect: true},
		{description: "dev mode", state: schema.DevMode, expect: false},
		{description: "disconnected", state: schema.Disconnected, expect: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			manager, _ := newTestManager(testCase.state)
			rec := newRecorder()
			s := New(context.Background(), rec)
			manager.Register(s)
			require.NoError(t, manager.Handle(s, []byte(`{"cmd":"stp"}`)))

			status := rec.next(t)
			assert.EqualValues(t, schema.TypeStatus, status.Type)
			require.NotNil(t, status.Serial)
			assert.EqualValues(t, testCase.expect, *status.Serial)
			ack := rec.next(t)
			assert.EqualValues(t, schema.TypeAck, ack.Type)
			rec.none(t)
			assert.EqualValues(t, 1, manager.Count())
		})
	}
}

func TestManager_Handle(t *testing.T) {
	var testCases = []struct {
		description string
		raw         string
		sendErr     error
		expect      *schema.Message
		expectSent  []schema.Command
	}{
		{description: "lower case command", raw: `{"cmd":"fwd"}`, expect: &schema.Message{Type: "ack", Cmd: "FWD"}, expectSent: []schema.Command{schema.Forward}},
		{description: "extra fields ignored", raw: `{"cmd":" Bck ","speed":3}`, expect: &schema.Message{Type: "ack", Cmd: "BCK"}, expectSent: []schema.Command{schema.Backward}},
		{description: "unknown command", raw: `{"cmd":"JUMP"}`, expect: &schema.Message{Type: "error", Msg: "Unknown command: JUMP"}},
		{description: "unknown lower case command", raw: `{"cmd":"jump"}`, expect: &schema.Message{Type: "error", Msg: "Unknown command: JUMP"}},
		{description: "missing cmd", raw: `{"command":"FWD"}`, expect: &schema.Message{Type: "error", Msg: "Unknown command: "}},
		{description: "not json", raw: `FWD`, expect: &schema.Message{Type: "error", Msg: "Unknown command: "}},
		{description: "cmd not a string", raw: `{"cmd":7}`, expect: &schema.Message{Type: "error", Msg: "Unknown command: "}},
		{
			description: "device write failure",
			raw:         `{"cmd":"lft"}`,
			sendErr:     &device.WriteError{Command: schema.Left, Err: errors.New("input/output error")},
			expect:      &schema.Message{Type: "error", Msg: "Device write failed: LFT"},
			expectSent:  []schema.Command{schema.Left},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			manager, link := newTestManager(schema.DevMode)
			link.sendErr = testCase.sendErr
			rec := newRecorder()
			s := New(context.Background(), rec)
			manager.Register(s)
			_ = rec.next(t)

			require.NoError(t, manager.Handle(s, []byte(testCase.raw)))
			assert.EqualValues(t, testCase.expect, rec.next(t))
			assert.EqualValues(t, testCase.expectSent, nilIfEmpty(link.Sent()))
			assert.True(t, s.Alive())
		})
	}
}

func nilIfEmpty(commands []schema.Command) []schema.Command {
	if len(commands) == 0 {
		return nil
	}
	return commands
}

func TestManager_RepliesOnlyToOriginatingSession(t *testing.T) {
	manager, link := newTestManager(schema.Connected)
	first, second := newRecorder(), newRecorder()
	s1 := New(context.Background(), first)
	s2 := New(context.Background(), second)
	manager.Register(s1)
	manager.Register(s2)
	_ = first.next(t)
	_ = second.next(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, manager.Handle(s1, []byte(`{"cmd":"FWD"}`)))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, manager.Handle(s2, []byte(`{"cmd":"STP"}`)))
	}()
	wg.Wait()

	assert.EqualValues(t, &schema.Message{Type: "ack", Cmd: "FWD"}, first.next(t))
	assert.EqualValues(t, &schema.Message{Type: "ack", Cmd: "STP"}, second.next(t))
	first.none(t)
	second.none(t)
	assert.ElementsMatch(t, []schema.Command{schema.Forward, schema.Stop}, link.Sent())
}

func TestManager_Unregister(t *testing.T) {
	manager, _ := newTestManager(schema.DevMode)
	gone, staying := newRecorder(), newRecorder()
	s1 := New(context.Background(), gone)
	s2 := New(context.Background(), staying)
	manager.Register(s1)
	manager.Register(s2)
	_ = gone.next(t)
	_ = staying.next(t)

	manager.Unregister(s1)
	manager.Unregister(s1)
	assert.False(t, manager.Registered(s1))
	assert.False(t, s1.Alive())
	assert.EqualValues(t, 1, manager.Count())
	assert.ErrorIs(t, manager.Handle(s1, []byte(`{"cmd":"FWD"}`)), ErrClosed)

	manager.NotifyState(schema.Connected)
	status := staying.next(t)
	assert.EqualValues(t, schema.TypeStatus, status.Type)
	assert.True(t, *status.Serial)
	gone.none(t)
}

func TestManager_SessionEndsOnContextCancel(t *testing.T) {
	manager, _ := newTestManager(schema.DevMode)
	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	s := New(ctx, rec)
	manager.Register(s)
	_ = rec.next(t)
	cancel()
	assert.Eventually(t, func() bool { return manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.Alive())
}

func TestManager_SessionEndsOnWriteFailure(t *testing.T) {
	manager, _ := newTestManager(schema.DevMode)
	rec := newRecorder()
	rec.err = errors.New("broken pipe")
	s := New(context.Background(), rec)
	manager.Register(s)
	assert.Eventually(t, func() bool { return manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualError(t, s.Err(), "broken pipe")
}

func TestManager_Close(t *testing.T) {
	manager, _ := newTestManager(schema.DevMode)
	var sessions []*Session
	for i := 0; i < 5; i++ {
		s := New(context.Background(), newRecorder())
		manager.Register(s)
		sessions = append(sessions, s)
	}
	assert.EqualValues(t, 5, manager.Count())
	manager.Close()
	assert.EqualValues(t, 0, manager.Count())
	for _, s := range sessions {
		assert.False(t, s.Alive())
	}
}

func TestSession_QueueFullEndsSession(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s := New(context.Background(), SenderFunc(func(ctx context.Context, message *schema.Message) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}), WithQueueSize(1), WithID("blocked"))
	assert.EqualValues(t, "blocked", s.ID)
	ok := true
	for i := 0; i < 5 && ok; i++ {
		ok = s.Enqueue(schema.NewAck(schema.Stop))
	}
	assert.False(t, ok)
	assert.False(t, s.Alive())
	assert.ErrorIs(t, s.Err(), errQueueFull)
}

// slowLink blocks State until released, like a link holding its lock across
// a serial open.
type slowLink struct {
	fakeLink
	entered chan struct{}
	release chan struct{}
}

func (l *slowLink) State() schema.LinkState {
	l.entered <- struct{}{}
	<-l.release
	return l.fakeLink.State()
}

func TestManager_Register_ReadsStateOutsideRegistry(t *testing.T) {
	link := &slowLink{
		fakeLink: fakeLink{state: schema.Connected},
		entered:  make(chan struct{}, 2),
		release:  make(chan struct{}),
	}
	manager := NewManager(link, WithLogger(zap.NewNop()))
	rec := newRecorder()
	s := New(context.Background(), rec)
	go manager.Register(s)
	<-link.entered

	counted := make(chan int, 1)
	go func() { counted <- manager.Count() }()
	select {
	case count := <-counted:
		assert.EqualValues(t, 0, count)
	case <-time.After(time.Second):
		t.Fatal("registry blocked while the link state was being read")
	}

	close(link.release)
	assert.Eventually(t, func() bool { return manager.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	status := rec.next(t)
	assert.EqualValues(t, schema.TypeStatus, status.Type)
	assert.True(t, *status.Serial)
	rec.none(t)
}

func TestSession_WithReady(t *testing.T) {
	ready := make(chan struct{})
	rec := newRecorder()
	s := New(context.Background(), rec, WithReady(ready))
	defer s.Close()
	require.True(t, s.Enqueue(schema.NewStatus(schema.DevMode)))
	require.True(t, s.Enqueue(schema.NewAck(schema.Stop)))
	rec.none(t)

	close(ready)
	assert.EqualValues(t, schema.TypeStatus, rec.next(t).Type)
	assert.EqualValues(t, schema.TypeAck, rec.next(t).Type)
}

func TestSession_WithReady_EndsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, newRecorder(), WithReady(make(chan struct{})))
	cancel()
	assert.Eventually(t, func() bool { return !s.Alive() }, 2*time.Second, 10*time.Millisecond)
}
