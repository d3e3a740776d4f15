package sinks

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
)

// Serializer converts a value into the byte form stored in a record key or
// value. Serializers must tolerate nil input and return nil bytes for it.
type Serializer func(v any) ([]byte, error)

// ToBytes serializes strings and byte slices directly; any other type is an
// error, callers should serialize structured values with ToJSONBytes.
func ToBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return nil, fmt.Errorf("cannot serialize %T to bytes", v)
	}
}

// ToJSONBytes serializes a value as JSON.
func ToJSONBytes(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize to json: %w", err)
	}
	return data, nil
}

// ToZippedBytes serializes a value with ToBytes and compresses the result
// with zlib.
func ToZippedBytes(v any) ([]byte, error) {
	raw, err := ToBytes(v)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}
