package sources

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
)

// ToString decodes record bytes as a UTF-8 string. Nil input yields an empty
// string.
func ToString(data []byte) string {
	return string(data)
}

// FromJSON decodes record bytes as JSON into the given target. Nil input is
// a no-op so callers can pass through tombstone values.
func FromJSON(data []byte, into any) error {
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("deserialize json: %w", err)
	}
	return nil
}

// Unzip decompresses zlib-compressed record bytes.
func Unzip(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// UnzipToString decompresses zlib-compressed record bytes and decodes the
// result as a UTF-8 string.
func UnzipToString(data []byte) (string, error) {
	raw, err := Unzip(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
