package progress

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock hands out a controllable timestamp so tests get deterministic
// elapsed times and rates.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// captureSink records every emitted report line for assertions.
type captureSink struct {
	lines []string
}

func (s *captureSink) Emit(line string) { s.lines = append(s.lines, line) }

// batchReports filters the captured lines down to batch progress reports,
// excluding lifecycle lines like "Started work...".
func (s *captureSink) batchReports() []string {
	var out []string
	for _, l := range s.lines {
		if strings.Contains(l, "records processed.") {
			out = append(out, l)
		}
	}
	return out
}

func newTestTracker(t *testing.T, batchSize int) (*Tracker, *captureSink, *fakeClock) {
	t.Helper()
	sink := &captureSink{}
	clock := newFakeClock()
	tracker := NewTracker(Config{BatchSize: batchSize, Clock: clock.Now, Sink: sink})
	return tracker, sink, clock
}

// TestTrackerCountsSumOfIncrements verifies the processed total is the exact
// sum of every increment, whatever the call pattern.
func TestTrackerCountsSumOfIncrements(t *testing.T) {
	t.Parallel()

	tracker, _, _ := newTestTracker(t, 100)
	require.NoError(t, tracker.Start())

	increments := []uint64{1, 7, 42, 1, 950, 3}
	var want uint64
	for _, c := range increments {
		require.NoError(t, tracker.RecordProcessed(c))
		want += c
	}
	require.Equal(t, want, tracker.Processed())
}

// TestTrackerSingleCallCrossingManyBoundaries asserts one increment that
// jumps several batch boundaries emits exactly one report.
func TestTrackerSingleCallCrossingManyBoundaries(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 100)
	require.NoError(t, tracker.Start())

	clock.Advance(time.Second)
	require.NoError(t, tracker.RecordProcessed(250))

	require.Len(t, sink.batchReports(), 1)
	require.Equal(t, uint64(250), tracker.Processed())
	require.Equal(t, uint64(250), tracker.lastReportCount)
}

// TestTrackerReportProgressIdempotent asserts only the first of two
// back-to-back manual reports produces output when nothing new was processed.
func TestTrackerReportProgressIdempotent(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 1000)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.RecordProcessed(5))
	clock.Advance(time.Second)

	require.NoError(t, tracker.ReportProgress(false))
	require.NoError(t, tracker.ReportProgress(false))
	require.Len(t, sink.batchReports(), 1)

	// Forcing bypasses the already-reported check.
	require.NoError(t, tracker.ReportProgress(true))
	require.Len(t, sink.batchReports(), 2)
}

// TestTrackerReadOutputErrorDoNotReport verifies only processed counts drive
// the reporting cadence.
func TestTrackerReadOutputErrorDoNotReport(t *testing.T) {
	t.Parallel()

	tracker, sink, _ := newTestTracker(t, 2)
	require.NoError(t, tracker.Start())

	require.NoError(t, tracker.RecordRead(10))
	require.NoError(t, tracker.RecordOutput(10))
	require.NoError(t, tracker.RecordError(10))
	require.Empty(t, sink.batchReports())

	require.Equal(t, uint64(10), tracker.Read())
	require.Equal(t, uint64(10), tracker.Output())
	require.Equal(t, uint64(10), tracker.Errors())
}

// TestTrackerExpectationMismatch checks the Finish warning appears exactly
// when the processed count differs from the declared expectation.
func TestTrackerExpectationMismatch(t *testing.T) {
	t.Parallel()

	t.Run("met", func(t *testing.T) {
		t.Parallel()
		tracker, sink, _ := newTestTracker(t, 10000)
		require.NoError(t, tracker.ExpectRecords(1000))
		require.NoError(t, tracker.Start())
		require.NoError(t, tracker.RecordProcessed(1000))
		require.NoError(t, tracker.Finish())
		for _, l := range sink.lines {
			require.NotContains(t, l, "incorrect")
		}
	})

	t.Run("short", func(t *testing.T) {
		t.Parallel()
		tracker, sink, _ := newTestTracker(t, 10000)
		require.NoError(t, tracker.ExpectRecords(1000))
		require.NoError(t, tracker.Start())
		require.NoError(t, tracker.RecordProcessed(750))
		require.NoError(t, tracker.Finish())

		var warning string
		for _, l := range sink.lines {
			if strings.Contains(l, "incorrect") {
				warning = l
			}
		}
		require.NotEmpty(t, warning)
		require.Contains(t, warning, "1,000")
		require.Contains(t, warning, "750")
	})
}

// TestTrackerExpectRecordsOnlyOnce verifies the expectation is immutable
// after the first call.
func TestTrackerExpectRecordsOnlyOnce(t *testing.T) {
	t.Parallel()

	tracker, _, _ := newTestTracker(t, 100)
	require.NoError(t, tracker.ExpectRecords(500))

	err := tracker.ExpectRecords(600)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

// TestTrackerPercentagePrefix verifies batch reports carry the expected-total
// percentage prefix with two decimal places.
func TestTrackerPercentagePrefix(t *testing.T) {
	t.Parallel()

	tracker, sink, _ := newTestTracker(t, 100)
	require.NoError(t, tracker.ExpectRecords(400))
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.RecordProcessed(100))

	reports := sink.batchReports()
	require.Len(t, reports, 1)
	require.True(t, strings.HasPrefix(reports[0], "[25.00%] "), "got %q", reports[0])
}

// TestTrackerDoubleStart asserts the second Start fails with
// InvalidStateError.
func TestTrackerDoubleStart(t *testing.T) {
	t.Parallel()

	tracker, _, _ := newTestTracker(t, 100)
	require.NoError(t, tracker.Start())

	err := tracker.Start()
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, Running, stateErr.State)
}

// TestTrackerLifecycleViolations covers counting and reporting calls outside
// the Running state.
func TestTrackerLifecycleViolations(t *testing.T) {
	t.Parallel()

	assertInvalid := func(t *testing.T, err error) {
		t.Helper()
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
	}

	t.Run("before start", func(t *testing.T) {
		t.Parallel()
		tracker, _, _ := newTestTracker(t, 100)
		assertInvalid(t, tracker.RecordProcessed(1))
		assertInvalid(t, tracker.RecordRead(1))
		assertInvalid(t, tracker.ReportProgress(false))
		assertInvalid(t, tracker.Finish())
		assertInvalid(t, tracker.Abort())
	})

	t.Run("after finish", func(t *testing.T) {
		t.Parallel()
		tracker, _, _ := newTestTracker(t, 100)
		require.NoError(t, tracker.Start())
		require.NoError(t, tracker.Finish())
		assertInvalid(t, tracker.RecordProcessed(1))
		assertInvalid(t, tracker.Finish())
		assertInvalid(t, tracker.Abort())
		assertInvalid(t, tracker.Start())
	})

	t.Run("after abort", func(t *testing.T) {
		t.Parallel()
		tracker, _, _ := newTestTracker(t, 100)
		require.NoError(t, tracker.Start())
		require.NoError(t, tracker.Abort())
		assertInvalid(t, tracker.RecordProcessed(1))
		assertInvalid(t, tracker.ExpectRecords(10))
		require.Equal(t, Aborted, tracker.State())
	})
}

// TestTrackerEndToEndFinish drives five exact batches through a tracker and
// checks five reports plus a clean summary, matching real action usage.
func TestTrackerEndToEndFinish(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 10)
	require.NoError(t, tracker.Start())

	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Second)
		require.NoError(t, tracker.RecordProcessed(10))
	}

	reports := sink.batchReports()
	require.Len(t, reports, 5)
	for _, r := range reports {
		require.Contains(t, r, "Last 10 records took")
	}

	clock.Advance(time.Second)
	require.NoError(t, tracker.Finish())
	require.Equal(t, Finished, tracker.State())

	summary := sink.lines[len(sink.lines)-1]
	require.Contains(t, summary, "Finished work")
	require.Contains(t, summary, "50 records")
	require.NotContains(t, strings.Join(sink.lines, "\n"), "incorrect")
	// Finish landed exactly on a batch boundary, so no sixth report.
	require.Len(t, sink.batchReports(), 5)
}

// TestTrackerEndToEndAbort aborts a short run and checks the Aborted summary
// carries the processed count and no mismatch warning even with an unmet
// expectation.
func TestTrackerEndToEndAbort(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 100)
	require.NoError(t, tracker.ExpectRecords(1000))
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.RecordProcessed(5))
	clock.Advance(500 * time.Millisecond)
	require.NoError(t, tracker.Abort())

	summary := sink.lines[len(sink.lines)-1]
	require.Contains(t, summary, "Aborted!")
	require.Contains(t, summary, "5 records")
	require.NotContains(t, strings.Join(sink.lines, "\n"), "incorrect")
}

// TestTrackerFinishReportsPartialBatch asserts a trailing partial batch is
// reported before the Finish summary.
func TestTrackerFinishReportsPartialBatch(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 10)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.RecordProcessed(10))
	require.NoError(t, tracker.RecordProcessed(3))
	clock.Advance(time.Second)
	require.NoError(t, tracker.Finish())

	reports := sink.batchReports()
	require.Len(t, reports, 2)
	require.Contains(t, reports[1], "13 records processed.")
	require.Contains(t, reports[1], "Last 3 records took")
}

// TestTrackerZeroElapsedClamped verifies instantaneous runs produce finite
// rates instead of dividing by zero.
func TestTrackerZeroElapsedClamped(t *testing.T) {
	t.Parallel()

	tracker, sink, _ := newTestTracker(t, 10)
	require.NoError(t, tracker.Start())
	require.NoError(t, tracker.RecordProcessed(10))
	require.NoError(t, tracker.Finish())

	for _, l := range sink.lines {
		require.NotContains(t, l, "Inf")
		require.NotContains(t, l, "NaN")
	}
}

// TestTrackerDefaultBatchSize checks the construction fallback.
func TestTrackerDefaultBatchSize(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(Config{})
	require.Equal(t, uint64(DefaultBatchSize), tracker.BatchSize())

	tracker = NewTracker(Config{BatchSize: -5})
	require.Equal(t, uint64(DefaultBatchSize), tracker.BatchSize())
}

// TestTrackerRateComputation pins down the arithmetic of a report line using
// a deterministic clock.
func TestTrackerRateComputation(t *testing.T) {
	t.Parallel()

	tracker, sink, clock := newTestTracker(t, 100)
	require.NoError(t, tracker.Start())
	clock.Advance(4 * time.Second)
	require.NoError(t, tracker.RecordProcessed(100))

	reports := sink.batchReports()
	require.Len(t, reports, 1)
	require.Equal(t,
		"100 records processed. Last 100 records took 4.00 seconds. "+
			"Batch rate was 25.00 records/second. Overall rate is 25.00 records/second.",
		reports[0])
}

// TestInvalidStateErrorMessage checks the error names the operation and the
// state it was attempted in.
func TestInvalidStateErrorMessage(t *testing.T) {
	t.Parallel()

	tracker, _, _ := newTestTracker(t, 100)
	err := tracker.RecordProcessed(1)
	require.EqualError(t, err, "progress: cannot record processed while tracker is not started")
}
