package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/schema"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	DefaultPort        = "/dev/ttyUSB0"
	DefaultBaudRate    = 9600
	DefaultOpenTimeout = 2 * time.Second
	// ReadTimeout bounds a single Read call.
	ReadTimeout = 50 * time.Millisecond
)

// Link is the single owner of the serial device handle. Connect, Send and
// Disconnect are mutually exclusive; the lock is held only across device I/O.
type Link struct {
	mu          sync.Mutex
	state       schema.LinkState
	handle      *handle
	port        string
	baudRate    int
	openTimeout time.Duration
	opener      Opener
	logger      *zap.Logger

	readMu sync.Mutex

	watchMu  sync.RWMutex
	watchers []func(schema.LinkState)
}

// New creates a disconnected link.
func New(options ...Option) *Link {
	ret := &Link{
		state:       schema.Disconnected,
		port:        DefaultPort,
		baudRate:    DefaultBaudRate,
		openTimeout: DefaultOpenTimeout,
		opener:      SerialOpener,
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = logging.Named(ret.logger, "device")
	return ret
}

// State returns the current link state.
func (l *Link) State() schema.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Connected reports whether a physical device handle is open.
func (l *Link) Connected() bool {
	return l.State() == schema.Connected
}

// Watch registers fn to be called after every state transition.
func (l *Link) Watch(fn func(state schema.LinkState)) {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	l.watchers = append(l.watchers, fn)
}

// Connect opens the device. A failure to open is not an error: the link
// settles in DevMode and keeps accepting commands. Connect on a Connected
// link is a no-op.
func (l *Link) Connect(ctx context.Context, port string, baudRate int) schema.LinkState {
	l.mu.Lock()
	if l.state == schema.Connected {
		defer l.mu.Unlock()
		return l.state
	}
	l.port, l.baudRate = port, baudRate
	h, err := l.open(ctx, port, baudRate)
	next := schema.Connected
	if err != nil {
		next = schema.DevMode
		l.logger.Warn("serial connection failed, running in dev mode",
			zap.String("port", port), zap.Int("baudRate", baudRate),
			zap.String("reason", openFailure(err)), zap.Error(err))
	} else {
		l.handle = h
		l.logger.Info("serial connected", zap.String("port", port), zap.Int("baudRate", baudRate))
	}
	changed := l.setState(next)
	l.mu.Unlock()
	if changed {
		l.notify(next)
	}
	return next
}

// Reconnect drops any open handle and connects again with the last used
// port and baud rate.
func (l *Link) Reconnect(ctx context.Context) schema.LinkState {
	l.Disconnect()
	l.mu.Lock()
	port, baudRate := l.port, l.baudRate
	l.mu.Unlock()
	return l.Connect(ctx, port, baudRate)
}

// Send writes the command to the device when Connected. Otherwise the command
// is logged as a simulated transmission and Send succeeds. A *WriteError is
// returned only when an open handle fails; the link is then Disconnected.
func (l *Link) Send(command schema.Command) error {
	l.mu.Lock()
	h := l.handle
	if l.state != schema.Connected || h == nil {
		l.mu.Unlock()
		l.logger.Info("dev mode TX", zap.String("cmd", command.Mnemonic()))
		return nil
	}
	_, err := h.port.Write(command.Line())
	if err == nil {
		err = h.port.Drain()
	}
	if err == nil {
		l.mu.Unlock()
		l.logger.Info("serial TX", zap.String("cmd", command.Mnemonic()))
		return nil
	}
	changed := l.release(h)
	l.mu.Unlock()
	l.logger.Error("serial write failed, device disconnected",
		zap.String("port", h.path), zap.String("cmd", command.Mnemonic()), zap.Error(err))
	if changed {
		l.notify(schema.Disconnected)
	}
	return &WriteError{Command: command, Err: err}
}

// Read returns one line from the device, waiting at most ReadTimeout. It
// returns false on timeout or when no device is connected.
func (l *Link) Read() (string, bool) {
	l.readMu.Lock()
	defer l.readMu.Unlock()
	l.mu.Lock()
	h := l.handle
	connected := l.state == schema.Connected
	l.mu.Unlock()
	if !connected || h == nil {
		return "", false
	}
	if line, ok := h.nextLine(); ok {
		return line, true
	}
	deadline := time.Now().Add(ReadTimeout)
	buf := make([]byte, 256)
	for {
		n, err := h.port.Read(buf)
		if n > 0 {
			h.pending = append(h.pending, buf[:n]...)
			if line, ok := h.nextLine(); ok {
				return line, true
			}
		}
		if err != nil {
			if !h.closed.Load() {
				l.fault(h, err)
			}
			return "", false
		}
		if n == 0 || time.Now().After(deadline) {
			return "", false
		}
	}
}

// Disconnect closes the handle if open and sets Disconnected. It is safe to
// call repeatedly.
func (l *Link) Disconnect() {
	l.mu.Lock()
	h := l.handle
	l.handle = nil
	var err error
	if h != nil {
		err = h.close()
	}
	changed := l.setState(schema.Disconnected)
	l.mu.Unlock()
	if h != nil {
		if err != nil {
			l.logger.Warn("serial close failed", zap.String("port", h.path), zap.Error(err))
		} else {
			l.logger.Info("serial disconnected", zap.String("port", h.path))
		}
	}
	if changed {
		l.notify(schema.Disconnected)
	}
}

// fault tears down h after an I/O error unless it was already replaced.
func (l *Link) fault(h *handle, err error) {
	l.mu.Lock()
	if l.handle != h {
		l.mu.Unlock()
		return
	}
	changed := l.release(h)
	l.mu.Unlock()
	l.logger.Error("serial read failed, device disconnected", zap.String("port", h.path), zap.Error(err))
	if changed {
		l.notify(schema.Disconnected)
	}
}

// release closes the current handle; l.mu must be held.
func (l *Link) release(h *handle) bool {
	_ = h.close()
	l.handle = nil
	return l.setState(schema.Disconnected)
}

// setState records the transition; l.mu must be held.
func (l *Link) setState(next schema.LinkState) bool {
	if l.state == next {
		return false
	}
	l.logger.Debug("link state changed", zap.Stringer("from", l.state), zap.Stringer("to", next))
	l.state = next
	return true
}

func (l *Link) notify(state schema.LinkState) {
	l.watchMu.RLock()
	watchers := append([]func(schema.LinkState){}, l.watchers...)
	l.watchMu.RUnlock()
	for _, fn := range watchers {
		fn(state)
	}
}

func (l *Link) open(ctx context.Context, path string, baudRate int) (*handle, error) {
	ctx, cancel := context.WithTimeout(ctx, l.openTimeout)
	defer cancel()
	type result struct {
		port Port
		err  error
	}
	done := make(chan result, 1)
	go func() {
		port, err := l.opener(path, &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		done <- result{port: port, err: err}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if late := <-done; late.port != nil {
				_ = late.port.Close()
			}
		}()
		return nil, fmt.Errorf("open %v: %w: %w", path, errOpenTimeout, ctx.Err())
	case opened := <-done:
		if opened.err != nil {
			return nil, fmt.Errorf("open %v: %w", path, opened.err)
		}
		if err := opened.port.SetReadTimeout(ReadTimeout); err != nil {
			_ = opened.port.Close()
			return nil, fmt.Errorf("set read timeout on %v: %w", path, err)
		}
		return newHandle(opened.port, path), nil
	}
}
