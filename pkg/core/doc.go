// Package core provides the foundational types and errors for the TestDriver SDK.
//
// This package defines the values that flow between callers and the transport
// layer: commands sent to the automation backend, the events a streamed
// response is made of, and the aggregate a stream folds into. It also defines
// the error taxonomy every transport failure is classified under.
//
// Errors can be matched by sentinel or by kind:
//
//	import "github.com/testdriverai/go-sdk/pkg/core"
//
//	result, err := c.Send(ctx, "assert", map[string]any{"expect": "page loaded"}, nil)
//	switch {
//	case errors.Is(err, core.ErrTimeout):
//		// the call did not settle in time
//	case errors.Is(err, core.ErrHTTP):
//		var httpErr *core.HTTPError
//		errors.As(err, &httpErr)
//		log.Printf("backend answered %d: %v", httpErr.Status, httpErr.Body)
//	}
package core
