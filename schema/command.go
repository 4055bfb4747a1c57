package schema

import (
	"strings"
)

// Command is a single motion command understood by the rover.
type Command string

const (
	Forward  Command = "FWD"
	Backward Command = "BCK"
	Left     Command = "LFT"
	Right    Command = "RGT"
	Stop     Command = "STP"
)

// Commands lists every valid command in wire order.
var Commands = []Command{Forward, Backward, Left, Right, Stop}

// Mnemonic returns the wire representation of the command.
func (c Command) Mnemonic() string {
	return string(c)
}

// Line returns the command as sent to the device: mnemonic plus line terminator.
func (c Command) Line() []byte {
	return []byte(string(c) + LineTerminator)
}

// String returns the descriptive command name.
func (c Command) String() string {
	switch c {
	case Forward:
		return "FORWARD"
	case Backward:
		return "BACKWARD"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Stop:
		return "STOP"
	}
	return "UNKNOWN(" + string(c) + ")"
}

// LineTerminator terminates every command written to the device.
const LineTerminator = "\n"

// Validate maps a raw client token to a command. Matching is case-insensitive
// and ignores surrounding whitespace.
func Validate(raw string) (Command, error) {
	candidate := Command(strings.ToUpper(strings.TrimSpace(raw)))
	for _, command := range Commands {
		if candidate == command {
			return command, nil
		}
	}
	return "", &ValidationError{Token: raw}
}
