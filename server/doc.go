// Package server assembles the rover HTTP surface.
//
// It mounts:
//   - /ws: websocket sessions
//   - /rpc, /sse, /message: JSON-RPC sessions (streamable HTTP and SSE)
//   - /healthz: link state and session count
//   - /: static UI assets read through github.com/viant/afs
//
// with CORS, origin validation and access logging middleware:
//
//	srv, _ := server.New(manager, server.WithAssetsURL("file:///opt/rover/frontend"))
//	log.Fatal(srv.HTTP("127.0.0.1:8000").ListenAndServe())
package server
