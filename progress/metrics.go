package progress

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports tracker counters as Prometheus collectors so a host
// process can scrape throughput without parsing report lines. One Metrics
// instance belongs to one action; the action kind becomes the metric
// subsystem, e.g. mapper_records_processed_total.
type Metrics struct {
	processed prometheus.Counter
	read      prometheus.Counter
	output    prometheus.Counter
	errored   prometheus.Counter
}

// NewMetrics registers the tracker collectors against the provided registry
// under the given subsystem. A nil registerer uses the Prometheus default.
func NewMetrics(reg prometheus.Registerer, subsystem string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "records_processed_total",
			Help:      "Total records processed by the action.",
		}),
		read: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "records_read_total",
			Help:      "Total records read from the action's source.",
		}),
		output: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "records_output_total",
			Help:      "Total records emitted to the action's sink.",
		}),
		errored: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "records_error_total",
			Help:      "Total records that failed processing.",
		}),
	}
	for _, collector := range []prometheus.Collector{m.processed, m.read, m.output, m.errored} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) addProcessed(n uint64) {
	if m != nil {
		m.processed.Add(float64(n))
	}
}

func (m *Metrics) addRead(n uint64) {
	if m != nil {
		m.read.Add(float64(n))
	}
}

func (m *Metrics) addOutput(n uint64) {
	if m != nil {
		m.output.Add(float64(n))
	}
}

func (m *Metrics) addErrors(n uint64) {
	if m != nil {
		m.errored.Add(float64(n))
	}
}
