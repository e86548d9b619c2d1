// Package encoding decodes newline-delimited JSON (NDJSON) response bodies.
//
// A streamed backend response arrives as a sequence of arbitrarily sized
// chunks. LineSplitter turns those chunks into complete lines, holding back a
// trailing partial line until the rest of it arrives, and Decoder turns the
// lines into core.StreamEvent values.
//
// Example usage:
//
//	import "github.com/testdriverai/go-sdk/pkg/encoding"
//
//	dec := encoding.NewDecoder(resp.Body)
//	for {
//		event, err := dec.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Println(event.Type, event.Data)
//	}
package encoding
