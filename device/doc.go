// Package device owns the serial link to the rover.
//
// A Link holds at most one open serial handle. When no device can be opened the
// link settles in dev mode: commands are accepted and logged as simulated
// transmissions so that the bridge stays usable without hardware.
//
//	link := device.New()
//	state := link.Connect(ctx, "/dev/ttyUSB0", 9600) // Connected or DevMode
//	_ = link.Send(schema.Forward)
//	defer link.Disconnect()
package device
