package schema

// Message types sent to clients.
const (
	TypeStatus = "status"
	TypeAck    = "ack"
	TypeError  = "error"
)

// Inbound is a client request. Unknown fields are ignored.
type Inbound struct {
	Cmd string `json:"cmd"`
}

// Message is an outbound message; exactly one of the payload fields is set
// depending on Type.
type Message struct {
	Type   string `json:"type"`
	Serial *bool  `json:"serial,omitempty"`
	Cmd    string `json:"cmd,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

// NewStatus creates a status message for the supplied link state.
func NewStatus(state LinkState) *Message {
	present := state.DevicePresent()
	return &Message{Type: TypeStatus, Serial: &present}
}

// NewAck creates an acknowledgement for an accepted command.
func NewAck(command Command) *Message {
	return &Message{Type: TypeAck, Cmd: command.Mnemonic()}
}

// NewError creates an error message.
func NewError(msg string) *Message {
	return &Message{Type: TypeError, Msg: msg}
}
