// Package schema converts between raw store records and typed entities.
// It owns the wire layout of the rooms, users and messages collections
// and the coercion of store-native timestamps into epoch milliseconds.
package schema

import (
	"errors"
	"fmt"
	"time"

	"chat-core/store"
)

// ErrMalformedRecord is returned when a required field of a stored
// record has an unexpected shape. Mapping never partially succeeds: on
// error the returned entity must be discarded.
var ErrMalformedRecord = errors.New("schema: malformed record")

// Collection names per the store layout.
const (
	RoomsCollection = "rooms"
	UsersCollection = "users"
)

// MessagesCollection returns the per-room message sub-collection path.
func MessagesCollection(roomID string) string {
	return RoomsCollection + "/" + roomID + "/messages"
}

// Millis coerces a store-native timestamp value into epoch milliseconds.
// Absent values stay nil rather than erroring; time.Time, integer and
// float representations are all accepted.
func Millis(v any) (*int64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		ms := val.UnixMilli()
		return &ms, nil
	case int64:
		return &val, nil
	case int:
		ms := int64(val)
		return &ms, nil
	case float64:
		ms := int64(val)
		return &ms, nil
	case *int64:
		return val, nil
	}
	return nil, fmt.Errorf("%w: timestamp of type %T", ErrMalformedRecord, v)
}

func timestampField(data map[string]any, field string) (*int64, error) {
	ms, err := Millis(data[field])
	if err != nil {
		return nil, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
	}
	return ms, nil
}

func stringField(data map[string]any, field string, required bool) (string, error) {
	v, ok := data[field]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: missing field %q", ErrMalformedRecord, field)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
	}
	return s, nil
}

func stringSliceField(data map[string]any, field string, required bool) ([]string, error) {
	v, ok := data[field]
	if !ok || v == nil {
		if required {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, field)
		}
		return nil, nil
	}
	switch items := v.(type) {
	case []string:
		out := make([]string, len(items))
		copy(out, items)
		return out, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
}

func mapField(data map[string]any, field string) (map[string]any, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
	}
	return store.CloneData(m), nil
}

func intField(data map[string]any, field string) (int64, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("%w: field %q", ErrMalformedRecord, field)
}

func setIfNotZero(data map[string]any, field, value string) {
	if value != "" {
		data[field] = value
	}
}
