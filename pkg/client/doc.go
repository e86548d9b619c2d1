// Package client provides the client SDK for the TestDriver automation backend.
//
// This package is the entry point of the SDK. A Client owns one session,
// the bearer token obtained from the configured API key and a transport
// dispatcher; every command it sends carries the session so the backend can
// correlate the calls of one automation run.
//
// Example usage:
//
//	import "github.com/testdriverai/go-sdk/pkg/client"
//
//	// Create a new client
//	c, err := client.New(client.ConfigFromEnv())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Authenticate(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	// Send a buffered command
//	result, err := c.Send(ctx, "assert", map[string]any{"expect": "page loaded"}, nil)
//
//	// Stream a command, printing progress as it arrives
//	match, err := c.Execute(ctx, core.Command{
//		Path:    "find",
//		Params:  map[string]any{"description": "submit button"},
//		Timeout: 30 * time.Second,
//	}, func(event core.StreamEvent) {
//		fmt.Println(event.Type, event.Data)
//	})
package client
