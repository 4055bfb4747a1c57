// Package schema defines the rover bridge vocabulary: the closed command set,
// the device link states and the messages exchanged with clients.
//
// Inbound client messages carry a single "cmd" field. Outbound messages are one of
//
//	{"type":"status","serial":true}
//	{"type":"ack","cmd":"FWD"}
//	{"type":"error","msg":"Unknown command: JUMP"}
//
// Commands are written to the device as one ASCII mnemonic per line.
package schema
