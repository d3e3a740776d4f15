// Package reporter publishes periodic heartbeat records describing a running
// action so the wider platform can observe component liveness and topology.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/logging"
	"github.com/telicent-oss/telicent-lib/records"
	"github.com/telicent-oss/telicent-lib/sinks"
)

// Status is the coarse lifecycle status included in each heartbeat.
type Status string

// Supported component statuses.
const (
	StatusStarted    Status = "STARTED"
	StatusRunning    Status = "RUNNING"
	StatusCompleted  Status = "COMPLETED"
	StatusErroring   Status = "ERRORING"
	StatusTerminated Status = "TERMINATED"
)

// DefaultPeriod is the heartbeat interval used when none is configured.
const DefaultPeriod = 15 * time.Second

// Endpoint describes one side of the action's data flow in heartbeats.
type Endpoint struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Heartbeat is the JSON payload published on every beat.
type Heartbeat struct {
	ID              string   `json:"id"`
	InstanceID      string   `json:"instance_id"`
	Name            string   `json:"name"`
	Timestamp       string   `json:"timestamp"`
	ComponentType   string   `json:"component_type"`
	ReportingPeriod float64  `json:"reporting_period"`
	Input           Endpoint `json:"input"`
	Output          Endpoint `json:"output"`
	Status          Status   `json:"status"`
}

// Config configures a Reporter.
type Config struct {
	// ActionID is the stable identifier of the reporting action. Required.
	ActionID string
	// ActionName is the human-readable action name.
	ActionName string
	// ComponentType is the action kind, e.g. "mapper".
	ComponentType string
	// Input and Output describe the action's endpoints.
	Input  Endpoint
	Output Endpoint
	// Sink receives the serialized heartbeat records. Required.
	Sink sinks.DataSink
	// Period between heartbeats; zero uses DefaultPeriod.
	Period time.Duration
	// Logger receives delivery diagnostics. Nil disables them.
	Logger *zap.Logger
	// Clock overrides the timestamp source, for tests.
	Clock func() time.Time
}

// Reporter registers a component and then publishes heartbeats on a fixed
// period until stopped. Run starts the background goroutine; Stop sends the
// final status and closes the sink.
type Reporter struct {
	cfg        Config
	instanceID string
	logger     *zap.Logger
	clock      func() time.Time

	mu      sync.Mutex
	status  Status
	started bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New builds a Reporter. The component is not registered until Run.
func New(cfg Config) (*Reporter, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("reporter requires a data sink")
	}
	if cfg.ActionID == "" {
		return nil, fmt.Errorf("reporter requires an action id")
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	logger := logging.OrNop(cfg.Logger)
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Reporter{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		logger:     logger,
		clock:      clock,
		status:     StatusStarted,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// InstanceID returns the unique id of this reporter instance.
func (r *Reporter) InstanceID() string { return r.instanceID }

// SetStatus updates the status carried by subsequent heartbeats.
func (r *Reporter) SetStatus(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// Run registers the component and starts the heartbeat goroutine.
func (r *Reporter) Run(ctx context.Context) error {
	if err := r.send(ctx); err != nil {
		return fmt.Errorf("register component: %w", err)
	}
	r.SetStatus(StatusRunning)
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	go r.beat()
	return nil
}

// Stop halts the heartbeat goroutine, publishes one final heartbeat with the
// given status and closes the sink. Safe to call more than once; later calls
// are no-ops. Stop is also safe when Run was never called, or failed before
// the heartbeat goroutine started, so it can be deferred unconditionally.
func (r *Reporter) Stop(ctx context.Context, final Status) error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.mu.Lock()
		started := r.started
		r.mu.Unlock()
		if started {
			<-r.doneCh
		}
		r.SetStatus(final)
		if sendErr := r.send(ctx); sendErr != nil {
			r.logger.Warn("final heartbeat failed", zap.Error(sendErr))
		}
		err = r.cfg.Sink.Close()
	})
	return err
}

func (r *Reporter) beat() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.send(context.Background()); err != nil {
				r.logger.Warn("heartbeat delivery failed", zap.Error(err))
			}
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reporter) send(ctx context.Context) error {
	r.mu.Lock()
	status := r.status
	r.mu.Unlock()

	hb := Heartbeat{
		ID:              r.cfg.ActionID,
		InstanceID:      r.instanceID,
		Name:            r.cfg.ActionName,
		Timestamp:       r.clock().UTC().Format(time.RFC3339Nano),
		ComponentType:   r.cfg.ComponentType,
		ReportingPeriod: r.cfg.Period.Seconds(),
		Input:           r.cfg.Input,
		Output:          r.cfg.Output,
		Status:          status,
	}
	payload, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("encode heartbeat: %w", err)
	}
	return r.cfg.Sink.Send(ctx, records.Record{Value: payload})
}
