// Package runtime wires config, logging, and the notification service into
// a single-node server instance. It exposes Open/Close, basic health
// checks, and accessors used by the transport layer.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Publish an event
//	rt.Notify().Dispatch("NETCONF", "link-down", []byte(`{"if":"eth0"}`))
package runtime
