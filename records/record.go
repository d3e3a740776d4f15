// Package records defines the Record type exchanged between data sources,
// actions and data sinks, along with helpers for manipulating record headers.
package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Header is a single key/value pair attached to a Record. Header keys are not
// unique; a record may carry the same key multiple times, matching Kafka
// record header semantics.
type Header struct {
	Key   string
	Value []byte
}

// Record is a unit of data read from a DataSource or sent to a DataSink.
//
// Key and Value are raw bytes; serializer helpers in the sinks and sources
// packages convert to and from richer types. Raw optionally carries the
// underlying client type (e.g. a *kgo.Record) for advanced use cases.
type Record struct {
	Headers []Header
	Key     []byte
	Value   []byte
	Raw     any
}

// NewRecord builds a Record with string key and value, the most common shape
// for callers producing text payloads.
func NewRecord(key, value string, headers ...Header) Record {
	var k []byte
	if key != "" {
		k = []byte(key)
	}
	return Record{Headers: headers, Key: k, Value: []byte(value)}
}

// FirstHeader returns the value of the first header whose key matches,
// case-insensitively. The second return reports whether any match was found.
func FirstHeader(r Record, key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value), true
		}
	}
	return "", false
}

// LastHeader returns the value of the last header whose key matches,
// case-insensitively.
func LastHeader(r Record, key string) (string, bool) {
	for i := len(r.Headers) - 1; i >= 0; i-- {
		if strings.EqualFold(r.Headers[i].Key, key) {
			return string(r.Headers[i].Value), true
		}
	}
	return "", false
}

// AllHeaders returns every value for the given key in record order, matching
// keys case-insensitively. Returns nil when there are no matches.
func AllHeaders(r Record, key string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			values = append(values, string(h.Value))
		}
	}
	return values
}

// HasHeader reports whether the record carries at least one header with the
// given key, matched case-insensitively.
func HasHeader(r Record, key string) bool {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return true
		}
	}
	return false
}

// AddHeader returns a copy of the record with one header appended. The input
// record is never mutated.
func AddHeader(r Record, key, value string) Record {
	return AddHeaders(r, Header{Key: key, Value: []byte(value)})
}

// AddHeaders returns a copy of the record with the given headers appended in
// order. The input record is never mutated.
func AddHeaders(r Record, headers ...Header) Record {
	if len(headers) == 0 {
		return r
	}
	merged := make([]Header, 0, len(r.Headers)+len(headers))
	merged = append(merged, r.Headers...)
	merged = append(merged, headers...)
	r.Headers = merged
	return r
}

// ReplaceOrAddHeader returns a copy of the record where the first header
// matching key (case-insensitively) has its value replaced. When no header
// matches, the header is appended instead.
func ReplaceOrAddHeader(r Record, key string, value []byte) Record {
	updated := make([]Header, len(r.Headers), len(r.Headers)+1)
	copy(updated, r.Headers)
	for i := range updated {
		if strings.EqualFold(updated[i].Key, key) {
			updated[i] = Header{Key: updated[i].Key, Value: value}
			r.Headers = updated
			return r
		}
	}
	r.Headers = append(updated, Header{Key: key, Value: value})
	return r
}

// RemoveHeader returns a copy of the record with matching headers removed.
// Keys match case-insensitively. When value is nil every header with the key
// is removed; otherwise only headers whose value is byte-equal are removed.
func RemoveHeader(r Record, key string, value []byte) Record {
	kept := make([]Header, 0, len(r.Headers))
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Key, key) {
			kept = append(kept, h)
			continue
		}
		if value != nil && string(h.Value) != string(value) {
			kept = append(kept, h)
		}
	}
	r.Headers = kept
	return r
}

// ToHeaders converts a map into a header slice, optionally appending to a
// copy of existing headers. Map iteration order is not deterministic, so use
// AddHeaders directly when ordering matters.
func ToHeaders(headers map[string]string, existing []Header) []Header {
	out := make([]Header, 0, len(existing)+len(headers))
	out = append(out, existing...)
	for k, v := range headers {
		out = append(out, Header{Key: k, Value: []byte(v)})
	}
	return out
}

// JSONHeader encodes a value as JSON for use as a header value. It fails only
// when the value itself is unmarshalable.
func JSONHeader(key string, value any) (Header, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Header{}, fmt.Errorf("encode header %q: %w", key, err)
	}
	return Header{Key: key, Value: data}, nil
}
