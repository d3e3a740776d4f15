// Package progress implements the record counting, throughput and reporting
// engine that actions delegate to while moving data between sources and
// sinks. A Tracker owns the counters and timers for exactly one action and
// decides when a human-readable progress report should be emitted.
package progress

import (
	"fmt"
	"time"
)

// DefaultBatchSize is the reporting batch size used when none is configured:
// a progress report is emitted every time this many records have been
// processed since the previous report.
const DefaultBatchSize = 25000

// minElapsed clamps elapsed-time denominators so rate computation never
// divides by zero on sub-millisecond runs.
const minElapsed = 1e-9

// State is the lifecycle phase of a Tracker. Transitions only move forward:
// NotStarted -> Running -> (Finished | Aborted).
type State int

// Tracker lifecycle states.
const (
	NotStarted State = iota
	Running
	Finished
	Aborted
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown state %d", int(s))
	}
}

// InvalidStateError reports an operation invoked in a lifecycle state that
// forbids it, e.g. recording progress before Start or after Finish. It always
// indicates a programming error in the owning action, so it is never
// recovered internally.
type InvalidStateError struct {
	Op    string
	State State
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("progress: cannot %s while tracker is %s", e.Op, e.State)
}

// Clock supplies the current time. Trackers read time exclusively through
// their Clock so tests can drive deterministic timestamps.
type Clock func() time.Time

// Config controls Tracker construction.
//   - BatchSize: records between automatic reports (default 25000; zero or
//     negative falls back to the default).
//   - Clock: time source (defaults to time.Now).
//   - Sink: receives formatted report lines (defaults to a no-op sink).
//   - Metrics: optional Prometheus collectors updated alongside the counters.
type Config struct {
	BatchSize int
	Clock     Clock
	Sink      ReportSink
	Metrics   *Metrics
}

// Tracker counts processed, read, output and errored records, computes batch
// and overall throughput, and emits formatted progress reports through its
// ReportSink.
//
// A Tracker is owned by a single goroutine; it performs no internal locking.
// Callers sharing one instance across goroutines must provide their own
// mutual exclusion.
type Tracker struct {
	batchSize uint64
	clock     Clock
	sink      ReportSink
	metrics   *Metrics

	state       State
	processed   uint64
	read        uint64
	output      uint64
	errored     uint64
	expected    uint64
	hasExpected bool

	startTime       time.Time
	lastReportTime  time.Time
	lastReportCount uint64
}

// NewTracker builds a Tracker in the NotStarted state.
func NewTracker(cfg Config) *Tracker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	return &Tracker{
		batchSize: uint64(batch),
		clock:     clock,
		sink:      sink,
		metrics:   cfg.Metrics,
	}
}

// State returns the current lifecycle state.
func (t *Tracker) State() State { return t.state }

// Processed returns the cumulative processed count.
func (t *Tracker) Processed() uint64 { return t.processed }

// Read returns the cumulative read count.
func (t *Tracker) Read() uint64 { return t.read }

// Output returns the cumulative output count.
func (t *Tracker) Output() uint64 { return t.output }

// Errors returns the cumulative error count.
func (t *Tracker) Errors() uint64 { return t.errored }

// BatchSize returns the configured reporting batch size.
func (t *Tracker) BatchSize() uint64 { return t.batchSize }

// Start transitions the tracker from NotStarted to Running and records the
// start time. Calling Start in any other state fails with InvalidStateError.
func (t *Tracker) Start() error {
	if t.state != NotStarted {
		return &InvalidStateError{Op: "start", State: t.state}
	}
	t.state = Running
	t.startTime = t.clock()
	t.lastReportTime = t.startTime
	t.sink.Emit("Started work...")
	return nil
}

// ExpectRecords declares the total number of records the action expects to
// process, enabling percentage prefixes on progress reports and an
// expectation check at Finish. The expectation may be set exactly once, in
// any non-terminal state; a second call fails with InvalidStateError.
func (t *Tracker) ExpectRecords(n uint64) error {
	if t.state == Finished || t.state == Aborted {
		return &InvalidStateError{Op: "set expected records", State: t.state}
	}
	if t.hasExpected {
		return &InvalidStateError{Op: "set expected records twice", State: t.state}
	}
	t.expected = n
	t.hasExpected = true
	if n > 0 {
		t.sink.Emit(fmt.Sprintf("Expecting to process %s records", formatCount(n)))
	}
	return nil
}

// RecordProcessed increments the processed counter by count and emits a
// progress report when the increment crosses a reporting batch boundary.
// Crossing is judged on boundary counts, not raw totals, so one call that
// jumps several boundaries still produces exactly one report.
func (t *Tracker) RecordProcessed(count uint64) error {
	if t.state != Running {
		return &InvalidStateError{Op: "record processed", State: t.state}
	}
	t.processed += count
	t.metrics.addProcessed(count)
	if t.processed/t.batchSize > t.lastReportCount/t.batchSize {
		t.report(t.clock())
	}
	return nil
}

// RecordRead increments the read counter by count. Reads never trigger
// reporting; only processed counts drive cadence.
func (t *Tracker) RecordRead(count uint64) error {
	if t.state != Running {
		return &InvalidStateError{Op: "record read", State: t.state}
	}
	t.read += count
	t.metrics.addRead(count)
	return nil
}

// RecordOutput increments the output counter by count.
func (t *Tracker) RecordOutput(count uint64) error {
	if t.state != Running {
		return &InvalidStateError{Op: "record output", State: t.state}
	}
	t.output += count
	t.metrics.addOutput(count)
	return nil
}

// RecordError increments the error counter by count.
func (t *Tracker) RecordError(count uint64) error {
	if t.state != Running {
		return &InvalidStateError{Op: "record error", State: t.state}
	}
	t.errored += count
	t.metrics.addErrors(count)
	return nil
}

// ReportProgress emits a progress report on demand. Without force the call is
// a no-op when nothing has been processed since the last report, so repeated
// calls never produce duplicate lines for the same point.
func (t *Tracker) ReportProgress(force bool) error {
	if t.state != Running {
		return &InvalidStateError{Op: "report progress", State: t.state}
	}
	if !force && t.processed == t.lastReportCount {
		return nil
	}
	t.report(t.clock())
	return nil
}

// Finish transitions the tracker from Running to Finished. Any partial final
// batch is reported first, then an expectation mismatch warning when the
// declared expected total was not met, then the final summary line.
func (t *Tracker) Finish() error {
	if t.state != Running {
		return &InvalidStateError{Op: "finish", State: t.state}
	}
	now := t.clock()
	if t.processed != t.lastReportCount {
		t.report(now)
	}
	if t.hasExpected && t.processed != t.expected {
		t.sink.Emit(fmt.Sprintf(
			"Expected number of records was incorrect, expected %s but processed %s",
			formatCount(t.expected), formatCount(t.processed)))
	}
	elapsed, rate := t.finalStats(now)
	t.sink.Emit(fmt.Sprintf(
		"Finished work, processed %s %s in %s seconds at %s records/second and encountered %s %s",
		formatCount(t.processed), plural(t.processed, "record"),
		formatFloat(elapsed), formatFloat(rate),
		formatCount(t.errored), plural(t.errored, "error")))
	t.state = Finished
	return nil
}

// Abort transitions the tracker from Running to Aborted, reporting any
// partial final batch and the same summary statistics as Finish. No
// expectation mismatch warning is produced; aborts are expected mid-stream.
func (t *Tracker) Abort() error {
	if t.state != Running {
		return &InvalidStateError{Op: "abort", State: t.state}
	}
	now := t.clock()
	if t.processed != t.lastReportCount {
		t.report(now)
	}
	elapsed, rate := t.finalStats(now)
	t.sink.Emit(fmt.Sprintf(
		"Aborted! Processed %s %s in %s seconds at %s records/second",
		formatCount(t.processed), plural(t.processed, "record"),
		formatFloat(elapsed), formatFloat(rate)))
	t.state = Aborted
	return nil
}

// report formats and emits a batch progress line, then advances the report
// markers. Callers have already decided a report is due.
func (t *Tracker) report(now time.Time) {
	batch := t.processed - t.lastReportCount
	batchElapsed := clampSeconds(now.Sub(t.lastReportTime))
	totalElapsed := clampSeconds(now.Sub(t.startTime))
	batchRate := float64(batch) / batchElapsed
	totalRate := float64(t.processed) / totalElapsed

	line := ""
	if t.hasExpected && t.expected > 0 {
		percentage := float64(t.processed) / float64(t.expected) * 100
		line = fmt.Sprintf("[%.2f%%] ", percentage)
	}
	line += fmt.Sprintf(
		"%s records processed. Last %s records took %s seconds. Batch rate was %s records/second. Overall rate is %s records/second.",
		formatCount(t.processed), formatCount(batch),
		formatFloat(now.Sub(t.lastReportTime).Seconds()),
		formatFloat(batchRate), formatFloat(totalRate))
	t.sink.Emit(line)

	t.lastReportCount = t.processed
	t.lastReportTime = now
}

func (t *Tracker) finalStats(now time.Time) (elapsed, rate float64) {
	elapsed = now.Sub(t.startTime).Seconds()
	rate = float64(t.processed) / clampSeconds(now.Sub(t.startTime))
	return elapsed, rate
}

func clampSeconds(d time.Duration) float64 {
	s := d.Seconds()
	if s < minElapsed {
		return minElapsed
	}
	return s
}

func plural(n uint64, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
