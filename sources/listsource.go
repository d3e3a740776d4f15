package sources

import (
	"context"
	"sync"

	"github.com/telicent-oss/telicent-lib/records"
)

// ListSource serves records from an in-memory slice, in order. It exists for
// tests and for small local pipelines.
type ListSource struct {
	mu     sync.Mutex
	remain []records.Record
	closed bool
	name   string
}

// NewListSource builds a source over a copy of the given records.
func NewListSource(name string, recs ...records.Record) *ListSource {
	if name == "" {
		name = "in-memory list"
	}
	remain := make([]records.Record, len(recs))
	copy(remain, recs)
	return &ListSource{name: name, remain: remain}
}

// Poll returns the next record, or ErrNoMoreData once exhausted.
func (s *ListSource) Poll(ctx context.Context) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return records.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return records.Record{}, ErrSourceClosed
	}
	if len(s.remain) == 0 {
		return records.Record{}, ErrNoMoreData
	}
	next := s.remain[0]
	s.remain = s.remain[1:]
	return next, nil
}

// Remaining reports the exact number of records left.
func (s *ListSource) Remaining() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.remain)), true
}

// Name implements DataSource.
func (s *ListSource) Name() string { return s.name }

// Close marks the source closed; further polls fail with ErrSourceClosed.
func (s *ListSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
