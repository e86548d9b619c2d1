package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/testdriverai/go-sdk/pkg/core"
)

const defaultChunkSize = 32 * 1024

// LineSplitter reassembles complete lines from a sequence of byte chunks.
// The zero value is ready to use.
type LineSplitter struct {
	pending []byte
}

// Write appends chunk and returns every line it completed, in order.
// Blank lines are dropped. The returned slices do not alias chunk.
func (s *LineSplitter) Write(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	s.pending = append(s.pending, chunk...)

	last := bytes.LastIndexByte(s.pending, '\n')
	if last < 0 {
		return nil
	}

	lines := splitLines(s.pending[:last])
	// the tail after the final newline may be the start of a longer line
	rest := s.pending[last+1:]
	s.pending = append(make([]byte, 0, len(rest)), rest...)
	return lines
}

// Flush returns whatever is buffered once the stream has ended. The final
// line does not need a trailing newline.
func (s *LineSplitter) Flush() [][]byte {
	lines := splitLines(s.pending)
	s.pending = nil
	return lines
}

// Buffered reports how many bytes are held back waiting for a newline.
func (s *LineSplitter) Buffered() int {
	return len(s.pending)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines
}

// ErrNotEvent is wrapped by the ParseError returned for a valid JSON line that
// is not an object with a non-empty string "type" member.
var ErrNotEvent = errors.New("line is not a stream event")

// ParseEvent decodes one NDJSON line into a StreamEvent. The line must be a
// JSON object carrying a non-empty string "type"; "data" may be absent.
func ParseEvent(line []byte) (core.StreamEvent, error) {
	fail := func(err error) (core.StreamEvent, error) {
		return core.StreamEvent{}, &core.ParseError{RawLine: string(line), Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return fail(err)
	}
	rawType, ok := fields["type"]
	if !ok {
		return fail(fmt.Errorf("%w: missing type", ErrNotEvent))
	}

	var event core.StreamEvent
	if err := json.Unmarshal(rawType, &event.Type); err != nil {
		return fail(fmt.Errorf("%w: type is not a string", ErrNotEvent))
	}
	if event.Type == "" {
		return fail(fmt.Errorf("%w: empty type", ErrNotEvent))
	}
	if rawData, ok := fields["data"]; ok {
		if err := json.Unmarshal(rawData, &event.Data); err != nil {
			return fail(err)
		}
	}
	return event, nil
}

// Decoder reads StreamEvents from an NDJSON stream.
type Decoder struct {
	r        io.Reader
	splitter LineSplitter
	buf      []byte
	queue    [][]byte
	err      error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, defaultChunkSize),
	}
}

// Next returns the next event. It returns io.EOF once the stream and its
// buffered remainder are exhausted. A malformed line yields a *core.ParseError
// and the decoder stays usable for the lines after it.
func (d *Decoder) Next() (core.StreamEvent, error) {
	for len(d.queue) == 0 {
		if d.err != nil {
			return core.StreamEvent{}, d.err
		}
		d.fill()
	}

	line := d.queue[0]
	d.queue = d.queue[1:]
	return ParseEvent(line)
}

// fill performs one read and queues the lines it completed.
func (d *Decoder) fill() {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.queue = append(d.queue, d.splitter.Write(d.buf[:n])...)
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		d.queue = append(d.queue, d.splitter.Flush()...)
		d.err = io.EOF
	default:
		d.err = &core.NetworkError{Operation: "read stream", Err: err}
	}
}
