package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/testdriverai/go-sdk/pkg/core"
)

// Media types that mark a streamed NDJSON body.
var streamMediaTypes = map[string]bool{
	"application/jsonl":    true,
	"application/x-jsonl":  true,
	"application/ndjson":   true,
	"application/x-ndjson": true,
}

func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// fall back to the part before any parameters
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsStreamContentType reports whether a Content-Type header announces an
// NDJSON stream.
func IsStreamContentType(contentType string) bool {
	return streamMediaTypes[mediaTypeOf(contentType)]
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// decodeBody reads a buffered (non-streamed) success response.
// JSON bodies are decoded, text bodies returned as a string and anything
// else as raw bytes.
func decodeBody(command string, resp *http.Response) (any, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Operation: command, Err: err}
	}

	mediaType := mediaTypeOf(resp.Header.Get("Content-Type"))
	switch {
	case isJSONMediaType(mediaType):
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, &core.ParseError{RawLine: string(data), Err: err}
		}
		return value, nil
	case strings.HasPrefix(mediaType, "text/"):
		return string(data), nil
	default:
		return data, nil
	}
}

// DecodeErrorBody keeps an error body in the most useful form for logging:
// the decoded JSON value when it parses, the trimmed text otherwise.
func DecodeErrorBody(data []byte) any {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err == nil {
		return value
	}
	return string(trimmed)
}

// redirectTarget extracts the new command path from a 301 body. The backend
// sends it as plain text; a JSON string literal is accepted too.
func redirectTarget(data []byte) string {
	target := strings.TrimSpace(string(data))
	if strings.HasPrefix(target, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(target), &unquoted); err == nil {
			target = strings.TrimSpace(unquoted)
		}
	}
	return target
}

// StatusText returns the reason phrase of resp, e.g. "Not Found".
func StatusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
