package schema

import (
	"strings"
)

// ValidationError reports a token that is not one of the known commands.
type ValidationError struct {
	Token string
}

func (e *ValidationError) Error() string {
	return "Unknown command: " + strings.ToUpper(e.Token)
}

// DeviceWriteFailedMessage formats the client facing message for a command
// the device did not accept.
func DeviceWriteFailedMessage(command Command) string {
	return "Device write failed: " + command.Mnemonic()
}
