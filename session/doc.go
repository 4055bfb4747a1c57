// Package session tracks connected rover clients and relays their commands to
// the device link.
//
// Every Session has its own outbound queue drained by a single writer
// goroutine, so replies are delivered in order and only to the session they
// are addressed to. The Manager registry is never locked across network I/O.
package session
