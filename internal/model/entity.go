package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// MetaKey is the reserved payload key that carries client metadata and is
// never validated against the schema
const MetaKey = "_meta"

// Entity is a record payload keyed by field name
type Entity map[string]any

// WithoutMeta returns a shallow copy of the entity without the reserved metadata key
func (e Entity) WithoutMeta() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		if k == MetaKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the entity's keys
func (e Entity) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	return keys
}

// EntityKey returns the document key for a primary key value. Only scalar
// strings and integral numbers identify an entity.
func EntityKey(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("primary key value is empty")
		}
		return v, nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("primary key value %v of type %T cannot identify an entity", value, value)
	}
}

// DecodeJSON decodes a JSON object keeping numbers as json.Number so that
// integral and floating-point literals stay distinguishable
func DecodeJSON(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("failed to decode JSON object: payload is null")
	}
	return payload, nil
}

// DecodeJSONBytes is DecodeJSON over a byte slice
func DecodeJSONBytes(data []byte) (map[string]any, error) {
	return DecodeJSON(bytes.NewReader(data))
}
