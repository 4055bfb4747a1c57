package schema

// LinkState is the operating mode of the device link.
type LinkState int

const (
	Disconnected LinkState = iota
	DevMode
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case DevMode:
		return "devmode"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// DevicePresent reports whether commands reach a physical device in this state.
func (s LinkState) DevicePresent() bool {
	return s == Connected
}
