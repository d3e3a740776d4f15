// Package sources provides the DataSource abstraction actions read records
// from, with Kafka and in-memory implementations plus value deserializer
// helpers.
package sources

import (
	"context"
	"errors"

	"github.com/telicent-oss/telicent-lib/records"
)

// ErrNoMoreData is returned by Poll when a finite source is exhausted.
// Unbounded sources such as Kafka topics never return it.
var ErrNoMoreData = errors.New("source has no more data")

// ErrSourceClosed is returned by Poll after the source has been closed.
var ErrSourceClosed = errors.New("source is closed")

// DataSource is an origin records can be read from.
type DataSource interface {
	// Poll returns the next record, blocking until one is available, the
	// context is done, or the source is exhausted (ErrNoMoreData).
	Poll(ctx context.Context) (records.Record, error)
	// Remaining reports how many records are left, when the source knows.
	// The second return is false when the count is unknown; the count may
	// change over time for sources that are actively receiving data.
	Remaining() (int64, bool)
	// Name identifies the source for banners, logs and provenance headers.
	Name() string
	// Close releases any resources held by the source.
	Close() error
}
