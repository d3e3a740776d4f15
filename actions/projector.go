package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sources"
)

// Projector reads from a data source and projects each record out to some
// external system or database via the provided projector function. There is
// no downstream DataSink; the projector function owns delivery.
type Projector struct {
	*Action
	source sources.DataSource
	fn     records.Projector
}

// NewProjector creates a projector draining source through fn.
func NewProjector(fn records.Projector, source sources.DataSource, opts Options) (*Projector, error) {
	if fn == nil {
		return nil, errors.New("projector requires a projector function")
	}
	if source == nil {
		return nil, errors.New("projector requires a data source")
	}
	action := newAction("Projector", opts)
	action.setID(source.Name(), "")
	return &Projector{Action: action, source: source, fn: fn}, nil
}

// Run consumes the source until it is exhausted or ctx is cancelled.
// Projection failures are routed to the DLQ when one is configured and
// counted as errors otherwise. Source exhaustion finishes the action,
// cancellation aborts it.
func (p *Projector) Run(ctx context.Context) error {
	p.displayBanner()
	p.sink.Emit(fmt.Sprintf("Waiting for data from %s", p.source.Name()))
	p.reportSourceStatus(p.source)
	if err := p.tracker.Start(); err != nil {
		return err
	}

	for {
		record, err := p.source.Poll(ctx)
		if err != nil {
			if errors.Is(err, sources.ErrNoMoreData) {
				return p.finish()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return p.abort()
			}
			p.logger.Error("projector source poll failed", zap.Error(err))
			if abortErr := p.abort(); abortErr != nil {
				return abortErr
			}
			return err
		}
		if err := p.tracker.RecordRead(1); err != nil {
			return err
		}

		if projErr := p.fn.Project(ctx, record); projErr != nil {
			if err := p.tracker.RecordError(1); err != nil {
				return err
			}
			if p.dlq != nil {
				if err := p.SendToDLQ(ctx, record, projErr.Error()); err != nil {
					p.logger.Error("failed to dead letter rejected record", zap.Error(err))
				}
			} else {
				p.logger.Warn("record rejected by projector function", zap.Error(projErr))
			}
			continue
		}
		if err := p.tracker.RecordProcessed(1); err != nil {
			return err
		}
	}
}

func (p *Projector) finish() error {
	p.closeEndpoints()
	return p.tracker.Finish()
}

func (p *Projector) abort() error {
	p.closeEndpoints()
	return p.tracker.Abort()
}

func (p *Projector) closeEndpoints() {
	if err := p.source.Close(); err != nil {
		p.logger.Warn("closing projector source failed", zap.Error(err))
	}
	if p.dlq != nil {
		if err := p.dlq.Close(); err != nil {
			p.logger.Warn("closing projector DLQ failed", zap.Error(err))
		}
	}
}
