package actions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/telicent-oss/telicent-lib/config"
	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sinks"
	"github.com/telicent-oss/telicent-lib/sources"
)

// captureSink collects progress report lines for assertions.
type captureSink struct {
	lines []string
}

func (s *captureSink) Emit(line string) { s.lines = append(s.lines, line) }

func (s *captureSink) joined() string { return strings.Join(s.lines, "\n") }

func inputRecords(values ...string) []records.Record {
	out := make([]records.Record, len(values))
	for i, v := range values {
		out[i] = records.NewRecord("", v)
	}
	return out
}

// TestMapperEndToEnd runs a mapper over an in-memory source and checks
// counters, provenance headers and the finish summary.
func TestMapperEndToEnd(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input", inputRecords("a", "b", "c")...)
	target := sinks.NewListSink("output")
	reports := &captureSink{}

	upper := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		return []records.Record{records.NewRecord("", strings.ToUpper(string(r.Value)))}, nil
	})
	mapper, err := NewMapper(upper, source, target, Options{
		Name:               "uppercase mapper",
		ReportingBatchSize: 1,
		ReportSink:         reports,
	})
	require.NoError(t, err)

	require.NoError(t, mapper.Run(context.Background()))

	sent := target.Records()
	require.Len(t, sent, 3)
	require.Equal(t, "A", string(sent[0].Value))

	// Every output is stamped with provenance headers.
	for _, rec := range sent {
		execPath, ok := records.FirstHeader(rec, "Exec-Path")
		require.True(t, ok)
		require.Equal(t, "uppercase-mapper", execPath)
		requestID, ok := records.FirstHeader(rec, "Request-Id")
		require.True(t, ok)
		require.True(t, strings.HasPrefix(requestID, "output:"))
	}

	require.Equal(t, uint64(3), mapper.Tracker().Processed())
	require.Equal(t, uint64(3), mapper.Tracker().Read())
	require.Equal(t, uint64(3), mapper.Tracker().Output())
	require.Zero(t, mapper.Tracker().Errors())
	require.Contains(t, reports.joined(), "Finished work")
	require.Contains(t, reports.joined(), "TELICENT CORE")
}

// TestMapperFlatMapAndDrop checks zero-output and multi-output map results.
func TestMapperFlatMapAndDrop(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input", inputRecords("keep", "drop", "split")...)
	target := sinks.NewListSink("output")

	fn := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		switch string(r.Value) {
		case "drop":
			return nil, nil
		case "split":
			return []records.Record{records.NewRecord("", "s1"), records.NewRecord("", "s2")}, nil
		default:
			return []records.Record{r}, nil
		}
	})
	mapper, err := NewMapper(fn, source, target, Options{})
	require.NoError(t, err)
	require.NoError(t, mapper.Run(context.Background()))

	require.Len(t, target.Records(), 3)
	require.Equal(t, uint64(3), mapper.Tracker().Processed())
	require.Equal(t, uint64(3), mapper.Tracker().Output())
}

// TestMapperRoutesRejectsToDLQ verifies map failures land on the DLQ with a
// Dead-Letter-Reason header and the loop keeps going.
func TestMapperRoutesRejectsToDLQ(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input", inputRecords("good", "bad", "good")...)
	target := sinks.NewListSink("output")
	dlq := sinks.NewListSink("output.dlq")

	fn := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		if string(r.Value) == "bad" {
			return nil, errors.New("malformed payload")
		}
		return []records.Record{r}, nil
	})
	mapper, err := NewMapper(fn, source, target, Options{})
	require.NoError(t, err)
	mapper.SetDLQTarget(dlq)

	require.NoError(t, mapper.Run(context.Background()))

	require.Len(t, target.Records(), 2)
	dead := dlq.Records()
	require.Len(t, dead, 1)
	reason, ok := records.FirstHeader(dead[0], "Dead-Letter-Reason")
	require.True(t, ok)
	require.Equal(t, "malformed payload", reason)

	require.Equal(t, uint64(2), mapper.Tracker().Processed())
	require.Equal(t, uint64(1), mapper.Tracker().Errors())
}

// TestMapperAbortsOnCancel checks context cancellation produces an Aborted
// summary rather than an error.
func TestMapperAbortsOnCancel(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input", inputRecords("a")...)
	target := sinks.NewListSink("output")
	reports := &captureSink{}

	fn := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		return []records.Record{r}, nil
	})
	mapper, err := NewMapper(fn, source, target, Options{ReportSink: reports})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, mapper.Run(ctx))
	require.Contains(t, reports.joined(), "Aborted!")
}

// TestAdapterManualFlow drives a manual adapter: Run, Send records, Finish.
func TestAdapterManualFlow(t *testing.T) {
	t.Parallel()

	target := sinks.NewListSink("knowledge")
	reports := &captureSink{}
	adapter, err := NewAdapter(target, Options{ReportSink: reports})
	require.NoError(t, err)
	require.Equal(t, "Manual-Adapter-to-knowledge", adapter.ID())

	require.NoError(t, adapter.Run())
	ctx := context.Background()
	require.NoError(t, adapter.Send(ctx, records.NewRecord("k", "v1")))
	require.NoError(t, adapter.Send(ctx, records.NewRecord("k", "v2")))
	require.NoError(t, adapter.Finish())

	require.Len(t, target.Records(), 2)
	require.Equal(t, uint64(2), adapter.Tracker().Processed())
	require.Contains(t, reports.joined(), "Finished work")

	// Counting after finish is a lifecycle violation.
	require.Error(t, adapter.Send(ctx, records.NewRecord("k", "v3")))
}

// TestAdapterSendFailureCounts verifies sink failures are surfaced and
// counted as errors.
func TestAdapterSendFailureCounts(t *testing.T) {
	t.Parallel()

	target := sinks.NewListSink("knowledge")
	target.FailWith(errors.New("broker down"))
	adapter, err := NewAdapter(target, Options{})
	require.NoError(t, err)
	require.NoError(t, adapter.Run())

	err = adapter.Send(context.Background(), records.NewRecord("k", "v"))
	require.ErrorContains(t, err, "broker down")
	require.Equal(t, uint64(1), adapter.Tracker().Errors())
	require.Zero(t, adapter.Tracker().Processed())
}

// TestAutomaticAdapter drains a generator into a sink.
func TestAutomaticAdapter(t *testing.T) {
	t.Parallel()

	target := sinks.NewListSink("knowledge")
	gen := records.GeneratorFunc(func(_ context.Context, emit func(records.Record) error) error {
		for _, v := range []string{"r1", "r2", "r3", "r4"} {
			if err := emit(records.NewRecord("", v)); err != nil {
				return err
			}
		}
		return nil
	})
	adapter, err := NewAutomaticAdapter(gen, target, Options{Name: "file loader"})
	require.NoError(t, err)

	require.NoError(t, adapter.Run(context.Background()))
	require.Len(t, target.Records(), 4)
	require.Equal(t, uint64(4), adapter.Tracker().Processed())
}

// TestAutomaticAdapterGeneratorFailure asserts a failing generator aborts
// the action and surfaces the cause.
func TestAutomaticAdapterGeneratorFailure(t *testing.T) {
	t.Parallel()

	target := sinks.NewListSink("knowledge")
	reports := &captureSink{}
	boom := errors.New("upstream exploded")
	gen := records.GeneratorFunc(func(_ context.Context, emit func(records.Record) error) error {
		if err := emit(records.NewRecord("", "one")); err != nil {
			return err
		}
		return boom
	})
	adapter, err := NewAutomaticAdapter(gen, target, Options{ReportSink: reports})
	require.NoError(t, err)

	err = adapter.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, reports.joined(), "Aborted!")
	require.Equal(t, uint64(1), adapter.Tracker().Errors())
}

// TestProjectorEndToEnd drains a source into a projector function.
func TestProjectorEndToEnd(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input", inputRecords("a", "b")...)
	var projected []string
	fn := records.ProjectorFunc(func(_ context.Context, r records.Record) error {
		projected = append(projected, string(r.Value))
		return nil
	})
	projector, err := NewProjector(fn, source, Options{})
	require.NoError(t, err)

	require.NoError(t, projector.Run(context.Background()))
	require.Equal(t, []string{"a", "b"}, projected)
	require.Equal(t, uint64(2), projector.Tracker().Processed())
}

// TestSendToDLQWithoutTarget asserts the documented error.
func TestSendToDLQWithoutTarget(t *testing.T) {
	t.Parallel()

	target := sinks.NewListSink("output")
	adapter, err := NewAdapter(target, Options{})
	require.NoError(t, err)

	err = adapter.SendToDLQ(context.Background(), records.Record{}, "why")
	require.ErrorIs(t, err, ErrNoDLQTarget)
}

// TestEnableAutoDLQ covers the disabled and non-Kafka-source paths; wiring
// against a live broker is out of unit test scope.
func TestEnableAutoDLQ(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input")
	target := sinks.NewListSink("output")
	fn := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		return nil, nil
	})
	mapper, err := NewMapper(fn, source, target, Options{})
	require.NoError(t, err)

	cfg := config.New()
	require.NoError(t, EnableAutoDLQ(cfg, mapper.Action, source))
	require.Nil(t, mapper.dlq)

	// Enabled but the source is not Kafka: warn and leave the DLQ unset.
	cfg.Set(config.KeyAutoEnableDLQ, "true")
	require.NoError(t, EnableAutoDLQ(cfg, mapper.Action, source))
	require.Nil(t, mapper.dlq)
}

// TestActionIDGeneration covers name-derived and endpoint-derived ids.
func TestActionIDGeneration(t *testing.T) {
	t.Parallel()

	source := sources.NewListSource("input")
	target := sinks.NewListSink("output")
	fn := records.MapperFunc(func(_ context.Context, r records.Record) ([]records.Record, error) {
		return nil, nil
	})

	named, err := NewMapper(fn, source, target, Options{Name: "my fancy mapper"})
	require.NoError(t, err)
	require.Equal(t, "my-fancy-mapper", named.ID())

	anonymous, err := NewMapper(fn, source, target, Options{})
	require.NoError(t, err)
	require.Equal(t, "Mapper-from-input-to-output", anonymous.ID())
}
