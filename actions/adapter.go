package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sinks"
)

// Adapter imports data into a data sink. The data source is managed entirely
// by the caller, who reads it themselves, transforms the records and calls
// Send to deliver them.
//
// Usage: Run once, Send per record, then Finish (or Abort on interruption).
type Adapter struct {
	*Action
	target sinks.DataSink
}

// NewAdapter creates a manual adapter writing to target.
func NewAdapter(target sinks.DataSink, opts Options) (*Adapter, error) {
	if target == nil {
		return nil, errors.New("adapter requires a data sink")
	}
	action := newAction("Manual Adapter", opts)
	action.setID("", target.Name())
	return &Adapter{Action: action, target: target}, nil
}

// Run displays the banner and starts progress tracking. The caller then
// feeds records through Send.
func (a *Adapter) Run() error {
	a.displayBanner()
	a.sink.Emit(fmt.Sprintf("Waiting for data - will write out to %s", a.target.Name()))
	return a.tracker.Start()
}

// Send stamps provenance headers onto the record, delivers it to the sink
// and updates the progress counters.
func (a *Adapter) Send(ctx context.Context, record records.Record) error {
	record = records.AddHeaders(record, a.provenanceHeaders(a.target.Name())...)
	if err := a.target.Send(ctx, record); err != nil {
		if recErr := a.tracker.RecordError(1); recErr != nil {
			return recErr
		}
		return fmt.Errorf("adapter send: %w", err)
	}
	if err := a.tracker.RecordOutput(1); err != nil {
		return err
	}
	return a.tracker.RecordProcessed(1)
}

// Finish closes the sink and emits the final progress summary.
func (a *Adapter) Finish() error {
	if err := a.target.Close(); err != nil {
		a.logger.Warn("closing adapter sink failed", zap.Error(err))
	}
	return a.tracker.Finish()
}

// Abort closes the sink and emits the aborted summary. Call it when handling
// interrupts or cancellations.
func (a *Adapter) Abort() error {
	if err := a.target.Close(); err != nil {
		a.logger.Warn("closing adapter sink failed", zap.Error(err))
	}
	return a.tracker.Abort()
}

// AutomaticAdapter imports data into a data sink from a Generator that
// produces the records, driving the whole read/stamp/send loop itself.
type AutomaticAdapter struct {
	*Action
	target    sinks.DataSink
	generator records.Generator
}

// NewAutomaticAdapter creates an adapter that drains generator into target.
func NewAutomaticAdapter(generator records.Generator, target sinks.DataSink, opts Options) (*AutomaticAdapter, error) {
	if generator == nil {
		return nil, errors.New("automatic adapter requires a generator")
	}
	if target == nil {
		return nil, errors.New("automatic adapter requires a data sink")
	}
	action := newAction("Automatic Adapter", opts)
	action.setID("", target.Name())
	return &AutomaticAdapter{Action: action, target: target, generator: generator}, nil
}

// Run drives the generator to completion, sending every produced record to
// the sink. Generator failure or context cancellation aborts the action;
// normal exhaustion finishes it.
func (a *AutomaticAdapter) Run(ctx context.Context) error {
	a.displayBanner()
	a.sink.Emit(fmt.Sprintf("Waiting for data - will write out to %s", a.target.Name()))
	if err := a.tracker.Start(); err != nil {
		return err
	}

	genErr := a.generator.Generate(ctx, func(record records.Record) error {
		record = records.AddHeaders(record, a.provenanceHeaders(a.target.Name())...)
		if err := a.target.Send(ctx, record); err != nil {
			return fmt.Errorf("send to %s: %w", a.target.Name(), err)
		}
		if err := a.tracker.RecordOutput(1); err != nil {
			return err
		}
		return a.tracker.RecordProcessed(1)
	})

	if closeErr := a.target.Close(); closeErr != nil {
		a.logger.Warn("closing adapter sink failed", zap.Error(closeErr))
	}
	if genErr != nil {
		a.logger.Error("adapter generator failed", zap.Error(genErr))
		if recErr := a.tracker.RecordError(1); recErr != nil {
			return recErr
		}
		if abortErr := a.tracker.Abort(); abortErr != nil {
			return abortErr
		}
		return genErr
	}
	return a.tracker.Finish()
}
