// Package transport carries commands to the TestDriver backend and rebuilds
// their results.
//
// A Dispatcher POSTs a JSON body made of the command payload (with falsy
// fields stripped) plus the session and stream flags. Buffered responses are
// decoded according to their content type. Streamed NDJSON responses are
// decoded line by line; each event is delivered to the caller's handler as
// soon as it is complete and folded by an Aggregator into the value the call
// returns.
//
// The transport never retries. Every failure is returned as one of the typed
// errors in package core.
//
// Example usage:
//
//	import "github.com/testdriverai/go-sdk/pkg/transport"
//
//	d := transport.NewDispatcher(apiRoot,
//		transport.WithSession(sessionID),
//		transport.WithTokenSource(provider),
//	)
//
//	result, err := transport.WithTimeout(ctx, 30*time.Second, "find",
//		func(ctx context.Context) (any, error) {
//			return d.Send(ctx, "find", map[string]any{"description": "button"},
//				func(event core.StreamEvent) {
//					fmt.Println(event.Type, event.Data)
//				})
//		})
package transport
