package device

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of serial.Port used by the link.
type Port interface {
	io.ReadWriteCloser
	// Drain blocks until the output buffer has been handed to the transport.
	Drain() error
	SetReadTimeout(t time.Duration) error
}

// Opener opens a serial port.
type Opener func(path string, mode *serial.Mode) (Port, error)

// SerialOpener opens a physical serial port.
func SerialOpener(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// handle is an open port owned by exactly one Link. It is closed once.
type handle struct {
	port    Port
	path    string
	once    sync.Once
	closed  atomic.Bool
	err     error
	pending []byte // guarded by Link.readMu
}

func newHandle(port Port, path string) *handle {
	return &handle{port: port, path: path}
}

func (h *handle) close() error {
	h.once.Do(func() {
		h.closed.Store(true)
		h.err = h.port.Close()
	})
	return h.err
}

// nextLine pops the next non blank line from the pending buffer.
func (h *handle) nextLine() (string, bool) {
	for {
		idx := strings.IndexByte(string(h.pending), '\n')
		if idx == -1 {
			return "", false
		}
		line := strings.TrimSpace(string(h.pending[:idx]))
		h.pending = h.pending[idx+1:]
		if line != "" {
			return line, true
		}
	}
}

// openFailure describes why a port could not be opened.
func openFailure(err error) string {
	var code serial.PortErrorCode = -1
	var portErr *serial.PortError
	var portErrValue serial.PortError
	switch {
	case errors.As(err, &portErr):
		code = portErr.Code()
	case errors.As(err, &portErrValue):
		code = portErrValue.Code()
	case errors.Is(err, errOpenTimeout):
		return "open timeout"
	}
	switch code {
	case serial.PortNotFound:
		return "device not found"
	case serial.PermissionDenied:
		return "permission denied"
	case serial.PortBusy:
		return "port busy"
	case serial.InvalidSpeed:
		return "invalid baud rate"
	case serial.InvalidSerialPort:
		return "not a serial port"
	}
	return "open failed"
}
