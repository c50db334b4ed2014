package crowd

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Variants travel externally tagged: a variant without payload is its bare
// name as a JSON string, any other variant is an object with exactly one
// key, the name, mapping to the payload.

func encodeTagged(tag string, payload any) ([]byte, error) {
	if payload == nil {
		return json.Marshal(tag)
	}
	return json.Marshal(map[string]any{tag: payload})
}

func decodeTagged(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	switch data[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return tag, nil, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(obj) != 1 {
			return "", nil, fmt.Errorf("%w: expected exactly one variant key, got %d", ErrMalformed, len(obj))
		}
		for tag, payload := range obj {
			return tag, payload, nil
		}
	}
	return "", nil, fmt.Errorf("%w: expected string or object", ErrMalformed)
}

func decodePayload(tag string, payload json.RawMessage, v any) error {
	if payload == nil || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return fmt.Errorf("%w: variant %s requires a payload", ErrMalformed, tag)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: variant %s: %v", ErrMalformed, tag, err)
	}
	return nil
}

func requireUnit(tag string, payload json.RawMessage) error {
	if payload != nil {
		return fmt.Errorf("%w: variant %s takes no payload", ErrMalformed, tag)
	}
	return nil
}
