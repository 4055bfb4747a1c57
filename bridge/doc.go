// Package bridge wires the rover device link, session manager and HTTP server
// into a runnable service.
//
// The service connects to the serial device on Start (falling back to dev
// mode when no device is reachable), serves websocket and JSON-RPC sessions
// until its context ends, and releases sessions and the device on Shutdown.
package bridge
