package sinks

import (
	"context"
	"errors"
	"sync"

	"github.com/telicent-oss/telicent-lib/records"
)

// ErrSinkClosed is returned by Send after a sink has been closed.
var ErrSinkClosed = errors.New("sink is closed")

// ListSink collects records in memory. It exists for tests and for small
// local pipelines where the output is inspected programmatically.
type ListSink struct {
	mu      sync.Mutex
	sent    []records.Record
	closed  bool
	name    string
	sendErr error
}

// NewListSink builds an empty in-memory sink.
func NewListSink(name string) *ListSink {
	if name == "" {
		name = "in-memory list"
	}
	return &ListSink{name: name}
}

// FailWith makes every subsequent Send return err, for exercising error
// paths in action tests.
func (s *ListSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// Send appends the record to the in-memory list.
func (s *ListSink) Send(_ context.Context, record records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, record)
	return nil
}

// Records returns a copy of everything sent so far.
func (s *ListSink) Records() []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.Record, len(s.sent))
	copy(out, s.sent)
	return out
}

// Name implements DataSink.
func (s *ListSink) Name() string { return s.name }

// Close marks the sink closed; further sends fail with ErrSinkClosed.
func (s *ListSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
