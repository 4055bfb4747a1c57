// Package rover is a bridge between remote control clients and a rover's
// serial motor controller.
//
// Clients connect over websocket (/ws) or JSON-RPC (/rpc, /sse) and send
// drive commands (forward, backward, left, right, stop). Each command is
// validated, written to the device as a short line-terminated mnemonic and
// acknowledged to the sending client only. When no device is reachable the
// bridge runs in dev mode: commands are acknowledged and logged, not
// transmitted.
//
// Packages:
//   - schema: commands, validation, link states and client messages
//   - device: the serial device link with dev-mode fallback
//   - session: the client session registry and command dispatch
//   - transport/ws, transport/rpc: client transports
//   - server: HTTP surface (transports, health, static UI assets)
//   - config, bridge: configuration and process lifecycle
//   - client: JSON-RPC client
//
// The bridge/rover-bridge command runs the service:
//
//	rover-bridge -p /dev/ttyUSB0 -b 9600 -a 127.0.0.1:8000 --assets ./frontend
package rover
