package schema

// JSON-RPC methods.
const (
	// MethodCommand submits a command; params are an Inbound message and the
	// result is the ack or error Message.
	MethodCommand = "command"
	// MethodStatus returns the status Message; the server also uses it to
	// notify clients.
	MethodStatus = "status"
)
