package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command is one request to the automation backend.
// Commands are built per call and never persisted.
type Command struct {
	// Path is the command name ("assert", "find") or an absolute API path
	// starting with "/api"
	Path string

	// Params are the command arguments; falsy values are dropped before sending
	Params map[string]any

	// Timeout bounds the whole call when positive
	Timeout time.Duration
}

// StreamEvent is one decoded line of a streamed response.
type StreamEvent struct {
	// Type is the event category used as the aggregation key
	Type string `json:"type"`

	// Data is either a string or any decoded JSON value
	Data any `json:"data"`
}

// EventHandler receives stream events in arrival order.
// Supplying a handler switches a call into streaming mode.
type EventHandler func(event StreamEvent)

// AggregateResult maps each event type to its accumulated data.
type AggregateResult map[string]any

// DecodeResult converts a value returned by a send call into out, which must
// be a pointer. Raw byte results are decoded as JSON text.
func DecodeResult(value any, out any) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		data = encoded
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{RawLine: string(data), Err: err}
	}
	return nil
}
