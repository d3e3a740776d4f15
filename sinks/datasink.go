// Package sinks provides the DataSink abstraction actions write records to,
// with Kafka and in-memory implementations plus value serializer helpers.
package sinks

import (
	"context"

	"github.com/telicent-oss/telicent-lib/records"
)

// DataSink is a destination records can be sent to. Implementations must be
// safe to close more than once.
type DataSink interface {
	// Send delivers one record to the sink, honoring ctx for cancellation.
	Send(ctx context.Context, record records.Record) error
	// Name identifies the sink for banners, logs and provenance headers.
	Name() string
	// Close releases any resources held by the sink, flushing pending sends.
	Close() error
}
