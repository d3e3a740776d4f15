// Package actions provides the Adapter, Mapper and Projector action types
// that move records between data sources and data sinks while reporting
// progress through the progress package.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/config"
	"github.com/telicent-oss/telicent-lib/logging"
	"github.com/telicent-oss/telicent-lib/progress"
	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sinks"
	"github.com/telicent-oss/telicent-lib/sources"
)

// ErrNoDLQTarget is returned by SendToDLQ when no dead letter queue sink has
// been configured.
var ErrNoDLQTarget = errors.New("no dead letter queue target has been set")

// Header keys stamped onto outgoing records for provenance.
const (
	headerExecPath         = "Exec-Path"
	headerRequestID        = "Request-Id"
	headerDeadLetterReason = "Dead-Letter-Reason"
)

// Options configures the common behavior shared by every action type.
type Options struct {
	// Name describes what this specific action instance does; it appears
	// in the startup banner and derives the action id.
	Name string
	// ReportingBatchSize sets how many processed records trigger a
	// progress report. Zero uses progress.DefaultBatchSize.
	ReportingBatchSize int
	// Logger receives structured diagnostics. Nil disables them.
	Logger *zap.Logger
	// ReportSink receives the human-readable progress lines. Nil discards
	// them; use progress.NewConsoleSink for the classic console output.
	ReportSink progress.ReportSink
	// Metrics optionally exports the action counters to Prometheus.
	Metrics *progress.Metrics
	// Clock overrides the tracker time source, for tests.
	Clock progress.Clock
}

// Action carries the state common to all action kinds: identity, the
// progress tracker, the report sink, and the optional dead letter queue.
type Action struct {
	kind        string
	name        string
	id          string
	logger      *zap.Logger
	sink        progress.ReportSink
	tracker     *progress.Tracker
	dlq         sinks.DataSink
	bannerShown bool
}

func newAction(kind string, opts Options) *Action {
	logger := logging.OrNop(opts.Logger)
	sink := opts.ReportSink
	if sink == nil {
		sink = progress.NopSink{}
	}
	tracker := progress.NewTracker(progress.Config{
		BatchSize: opts.ReportingBatchSize,
		Clock:     opts.Clock,
		Sink:      sink,
		Metrics:   opts.Metrics,
	})
	return &Action{
		kind:    kind,
		name:    opts.Name,
		logger:  logger,
		sink:    sink,
		tracker: tracker,
	}
}

// setID fixes the action id from its name, or from its source/sink names
// when no name was given.
func (a *Action) setID(sourceName, targetName string) {
	if a.name != "" {
		a.id = strings.ReplaceAll(a.name, " ", "-")
		return
	}
	id := a.kind
	if sourceName != "" {
		id += "-from-" + sourceName
	}
	if targetName != "" {
		id += "-to-" + targetName
	}
	a.id = strings.ReplaceAll(id, " ", "-")
}

// ID returns the generated action identifier used in provenance headers.
func (a *Action) ID() string { return a.id }

// Name returns the configured action name, which may be empty.
func (a *Action) Name() string { return a.name }

// Kind returns the action kind, e.g. "mapper".
func (a *Action) Kind() string { return a.kind }

// Tracker exposes the progress tracker so callers can declare expected
// record counts or trigger manual reports.
func (a *Action) Tracker() *progress.Tracker { return a.tracker }

// SetDLQTarget configures the sink that receives records which could not be
// processed.
func (a *Action) SetDLQTarget(target sinks.DataSink) {
	a.dlq = target
}

// SendToDLQ routes a record to the dead letter queue, recording why it was
// rejected in a Dead-Letter-Reason header.
func (a *Action) SendToDLQ(ctx context.Context, record records.Record, reason string) error {
	if a.dlq == nil {
		a.logger.Error("unable to send record to DLQ as no target has been set")
		return ErrNoDLQTarget
	}
	record = records.AddHeader(record, headerDeadLetterReason, reason)
	if err := a.dlq.Send(ctx, record); err != nil {
		return fmt.Errorf("send to DLQ %s: %w", a.dlq.Name(), err)
	}
	return nil
}

// displayBanner emits the startup banner once; repeated calls do nothing.
func (a *Action) displayBanner() {
	if a.bannerShown {
		return
	}
	a.bannerShown = true

	horizontal := strings.Repeat("-", 80)
	empty := "|" + strings.Repeat(" ", 78) + "|"
	a.sink.Emit(horizontal)
	a.sink.Emit(empty)
	a.sink.Emit("|" + center("TELICENT CORE", 78) + "|")
	if a.kind != "" {
		a.sink.Emit("|" + center(a.kind, 78) + "|")
	}
	if a.name != "" {
		a.sink.Emit("|" + center(a.name, 78) + "|")
	}
	a.sink.Emit(empty)
	a.sink.Emit(horizontal)
}

// reportSourceStatus prints how many records the source has available, when
// the source can say.
func (a *Action) reportSourceStatus(source sources.DataSource) {
	remaining, known := source.Remaining()
	if !known {
		return
	}
	if remaining == 0 {
		a.sink.Emit(fmt.Sprintf("Source %s has no further records available", source.Name()))
		return
	}
	a.sink.Emit(fmt.Sprintf("Source %s has %d records remaining", source.Name(), remaining))
}

// provenanceHeaders builds the default headers stamped onto every outgoing
// record.
func (a *Action) provenanceHeaders(targetName string) []records.Header {
	requestID := fmt.Sprintf("%s:%s", targetName, uuid.NewString())
	return []records.Header{
		{Key: headerExecPath, Value: []byte(a.id)},
		{Key: headerRequestID, Value: []byte(requestID)},
	}
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// EnableAutoDLQ wires a dead letter queue sink for an action whose source is
// a Kafka topic, targeting `<source topic>.dlq`, when the AUTO_ENABLE_DLQ
// configuration key is true. Non-Kafka sources are left alone with a warning
// since the DLQ topic cannot be derived for them.
func EnableAutoDLQ(cfg *config.Configurator, action *Action, source sources.DataSource) error {
	if cfg == nil {
		cfg = config.New()
	}
	enabled, err := cfg.GetBool(config.KeyAutoEnableDLQ, false)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}
	kafkaSource, ok := source.(*sources.KafkaSource)
	if !ok {
		action.logger.Warn("dead letter queue can only be automatically initialised for Kafka sources; " +
			"call SetDLQTarget to provide one manually")
		return nil
	}
	brokers, err := cfg.Brokers()
	if err != nil {
		return err
	}
	dlq, err := sinks.NewKafkaSink(sinks.KafkaConfig{
		Topic:   kafkaSource.Topic() + ".dlq",
		Brokers: brokers,
		Logger:  action.logger,
		Config:  cfg,
	})
	if err != nil {
		return fmt.Errorf("initialise auto DLQ: %w", err)
	}
	action.SetDLQTarget(dlq)
	return nil
}
