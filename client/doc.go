// Package client provides a JSON-RPC client for the rover bridge.
//
// It drives the "command" and "status" methods over any
// github.com/viant/jsonrpc client transport and surfaces "status"
// notifications through a listener:
//
//	aClient, err := client.Dial(ctx, "http://127.0.0.1:8000/sse", client.WithListener(func(m *schema.Message) {
//		fmt.Println("serial:", *m.Serial)
//	}))
//	reply, err := aClient.Command(ctx, "fwd")
package client
