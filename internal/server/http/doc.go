// Package httpserver provides the REST gateway for the notification
// service, with SSE subscribe support and JSON endpoints mirroring the
// service surface.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, rt.Logger())
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
