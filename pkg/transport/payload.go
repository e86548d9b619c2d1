package transport

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// StripFalsy returns a copy of payload without nil, false, empty-string and
// numeric-zero values. Empty maps and slices are kept.
func StripFalsy(payload map[string]any) map[string]any {
	stripped := make(map[string]any, len(payload))
	for key, value := range payload {
		if isFalsy(value) {
			continue
		}
		stripped[key] = value
	}
	return stripped
}

func isFalsy(value any) bool {
	if value == nil {
		return true
	}
	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		return n == "" || (err == nil && f == 0)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.String:
		return v.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// buildBody serialises the stripped payload and merges the envelope fields
// into it. Envelope fields win over payload fields of the same name.
func buildBody(payload map[string]any, sessionID string, stream bool) ([]byte, error) {
	doc, err := json.Marshal(StripFalsy(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	envelope := map[string]any{"stream": stream}
	if sessionID != "" {
		envelope["session"] = sessionID
	}
	patch, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	body, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to merge envelope: %w", err)
	}
	return body, nil
}
