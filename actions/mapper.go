package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sinks"
	"github.com/telicent-oss/telicent-lib/sources"
)

// Mapper maps between a data source and a data sink, transforming each input
// record into zero or more output records with the provided map function.
//
// Use an Adapter instead when the source is managed by the caller, and a
// Projector when the output does not go to a DataSink.
type Mapper struct {
	*Action
	source sources.DataSource
	target sinks.DataSink
	fn     records.Mapper
}

// NewMapper creates a mapper wiring source through fn into target.
func NewMapper(fn records.Mapper, source sources.DataSource, target sinks.DataSink, opts Options) (*Mapper, error) {
	if fn == nil {
		return nil, errors.New("mapper requires a map function")
	}
	if source == nil {
		return nil, errors.New("mapper requires a data source")
	}
	if target == nil {
		return nil, errors.New("mapper requires a data sink")
	}
	action := newAction("Mapper", opts)
	action.setID(source.Name(), target.Name())
	return &Mapper{Action: action, source: source, target: target, fn: fn}, nil
}

// Run consumes the source until it is exhausted or ctx is cancelled. Records
// the map function rejects are routed to the DLQ when one is configured and
// counted as errors otherwise; they never stop the loop. Source exhaustion
// finishes the action, cancellation aborts it.
func (m *Mapper) Run(ctx context.Context) error {
	m.displayBanner()
	m.sink.Emit(fmt.Sprintf("Waiting for data from %s - will write out to %s",
		m.source.Name(), m.target.Name()))
	m.reportSourceStatus(m.source)
	if err := m.tracker.Start(); err != nil {
		return err
	}

	for {
		record, err := m.source.Poll(ctx)
		if err != nil {
			if errors.Is(err, sources.ErrNoMoreData) {
				return m.finish()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return m.abort()
			}
			m.logger.Error("mapper source poll failed", zap.Error(err))
			if abortErr := m.abort(); abortErr != nil {
				return abortErr
			}
			return err
		}
		if err := m.tracker.RecordRead(1); err != nil {
			return err
		}

		outputs, mapErr := m.fn.Map(ctx, record)
		if mapErr != nil {
			if err := m.handleRejected(ctx, record, mapErr); err != nil {
				return err
			}
			continue
		}
		for _, out := range outputs {
			out = records.AddHeaders(out, m.provenanceHeaders(m.target.Name())...)
			if err := m.target.Send(ctx, out); err != nil {
				m.logger.Error("mapper send failed", zap.Error(err))
				if abortErr := m.abort(); abortErr != nil {
					return abortErr
				}
				return fmt.Errorf("mapper send: %w", err)
			}
			if err := m.tracker.RecordOutput(1); err != nil {
				return err
			}
		}
		if err := m.tracker.RecordProcessed(1); err != nil {
			return err
		}
	}
}

// handleRejected counts a map failure and forwards the offending record to
// the DLQ when a target is configured.
func (m *Mapper) handleRejected(ctx context.Context, record records.Record, cause error) error {
	if err := m.tracker.RecordError(1); err != nil {
		return err
	}
	if m.dlq == nil {
		m.logger.Warn("record rejected by map function", zap.Error(cause))
		return nil
	}
	if err := m.SendToDLQ(ctx, record, cause.Error()); err != nil {
		m.logger.Error("failed to dead letter rejected record", zap.Error(err))
	}
	return nil
}

func (m *Mapper) finish() error {
	m.closeEndpoints()
	return m.tracker.Finish()
}

func (m *Mapper) abort() error {
	m.closeEndpoints()
	return m.tracker.Abort()
}

func (m *Mapper) closeEndpoints() {
	if err := m.source.Close(); err != nil {
		m.logger.Warn("closing mapper source failed", zap.Error(err))
	}
	if err := m.target.Close(); err != nil {
		m.logger.Warn("closing mapper sink failed", zap.Error(err))
	}
	if m.dlq != nil {
		if err := m.dlq.Close(); err != nil {
			m.logger.Warn("closing mapper DLQ failed", zap.Error(err))
		}
	}
}
