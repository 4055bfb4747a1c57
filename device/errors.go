package device

import (
	"errors"
	"fmt"

	"github.com/viant/rover/schema"
)

var errOpenTimeout = errors.New("serial open timed out")

// WriteError reports an I/O failure on an open handle. The handle is closed
// and the link is Disconnected when it is returned.
type WriteError struct {
	Command schema.Command
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("serial write %v: %v", e.Command.Mnemonic(), e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
