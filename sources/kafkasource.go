package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/config"
	"github.com/telicent-oss/telicent-lib/logging"
	"github.com/telicent-oss/telicent-lib/records"
)

// ErrSourceNotFound is returned when the configured topic does not exist on
// the bootstrap servers.
var ErrSourceNotFound = errors.New("source topic not found")

// DefaultCommitInterval is how many records are read between consumer offset
// commits when no interval is configured. The read position is also
// committed on Close, but a graceful close is not guaranteed, so positions
// are committed as the source goes.
const DefaultCommitInterval = 10000

// KafkaConfig configures a KafkaSource.
type KafkaConfig struct {
	// Topic to consume. Required.
	Topic string
	// Brokers seed the Kafka client. Required.
	Brokers []string
	// GroupID names the consumer group. When empty a group id is derived
	// from the running binary and topic so an application can be stopped
	// and restarted without re-reading the whole topic.
	GroupID string
	// CommitInterval overrides DefaultCommitInterval when positive.
	CommitInterval int
	// Logger receives client lifecycle messages; nil disables them.
	Logger *zap.Logger
	// Config resolves broker security settings (TLS, SASL) from the
	// environment. Nil uses a fresh environment-backed Configurator.
	Config *config.Configurator
	// ClientOpts are appended to the franz-go client options for advanced
	// tuning (fetch sizing, custom dialers).
	ClientOpts []kgo.Opt
}

// KafkaSource reads records from a Kafka topic within a consumer group.
// Offsets are committed manually every CommitInterval records, giving
// at-least-once delivery to the consuming action.
//
// A KafkaSource is not safe for concurrent polling.
type KafkaSource struct {
	client         *kgo.Client
	topic          string
	group          string
	logger         *zap.Logger
	commitInterval uint64

	buffered []*kgo.Record
	seen     uint64
	lag      map[int32]int64
	closed   bool
}

// NewKafkaSource connects a consumer for the configured topic. Consumption
// starts from the earliest uncommitted offset.
func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka source: topic is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka source: at least one broker is required")
	}
	logger := logging.OrNop(cfg.Logger)
	group := cfg.GroupID
	if group == "" {
		group = defaultGroupID(cfg.Topic)
		logger.Info("no consumer group id provided, derived one automatically",
			zap.String("group_id", group))
	}
	interval := cfg.CommitInterval
	if interval <= 0 {
		interval = DefaultCommitInterval
	}
	conf := cfg.Config
	if conf == nil {
		conf = config.New()
	}
	authOpts, err := conf.KafkaAuthOpts()
	if err != nil {
		return nil, fmt.Errorf("kafka source: %w", err)
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(group),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	}
	opts = append(opts, authOpts...)
	opts = append(opts, cfg.ClientOpts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka source: create client: %w", err)
	}
	logger.Debug("kafka source connected",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", group),
		zap.Strings("brokers", cfg.Brokers))
	return &KafkaSource{
		client:         client,
		topic:          cfg.Topic,
		group:          group,
		logger:         logger,
		commitInterval: uint64(interval),
		lag:            make(map[int32]int64),
	}, nil
}

// Poll returns the next record from the topic, blocking until one arrives or
// ctx is done.
func (s *KafkaSource) Poll(ctx context.Context) (records.Record, error) {
	if s.closed {
		return records.Record{}, ErrSourceClosed
	}
	for len(s.buffered) == 0 {
		fetches := s.client.PollFetches(ctx)
		if err := s.fetchError(fetches); err != nil {
			return records.Record{}, err
		}
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			if n := len(p.Records); n > 0 {
				last := p.Records[n-1]
				s.lag[p.Partition] = p.HighWatermark - last.Offset - 1
			}
			s.buffered = append(s.buffered, p.Records...)
		})
	}

	next := s.buffered[0]
	s.buffered = s.buffered[1:]
	s.seen++
	if s.seen%s.commitInterval == 0 {
		if err := s.client.CommitUncommittedOffsets(ctx); err != nil {
			s.logger.Warn("periodic offset commit failed", zap.Error(err))
		}
	}
	return fromKgoRecord(next), nil
}

// Remaining estimates how many records are left across the partitions this
// consumer has fetched from, based on the high watermarks observed on the
// most recent fetches. Unknown until at least one partition watermark has
// been observed; a fetch that returned no records observes nothing.
func (s *KafkaSource) Remaining() (int64, bool) {
	if len(s.lag) == 0 {
		return 0, false
	}
	var total int64
	for _, l := range s.lag {
		if l > 0 {
			total += l
		}
	}
	return total, true
}

// Name returns the source topic.
func (s *KafkaSource) Name() string { return s.topic }

// Topic returns the consumed topic, used to derive dead letter queue topic
// names.
func (s *KafkaSource) Topic() string { return s.topic }

// Close commits outstanding read positions and releases the client.
func (s *KafkaSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	ctx := context.Background()
	if err := s.client.CommitUncommittedOffsets(ctx); err != nil {
		s.logger.Warn("final offset commit failed", zap.Error(err))
	}
	s.client.Close()
	return nil
}

func (s *KafkaSource) fetchError(fetches kgo.Fetches) error {
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
			return fe.Err
		}
		if errors.Is(fe.Err, kerr.UnknownTopicOrPartition) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, s.topic)
		}
		return fmt.Errorf("kafka source: fetch %s[%d]: %w", fe.Topic, fe.Partition, fe.Err)
	}
	return nil
}

// defaultGroupID derives a stable consumer group from the running binary and
// topic, mirroring how group ids are selected when none is configured.
func defaultGroupID(topic string) string {
	app := filepath.Base(os.Args[0])
	return fmt.Sprintf("%s-%s", app, topic)
}

// fromKgoRecord converts a fetched Kafka record into the library shape. The
// original client record remains reachable through Raw.
func fromKgoRecord(rec *kgo.Record) records.Record {
	headers := make([]records.Header, len(rec.Headers))
	for i, h := range rec.Headers {
		headers[i] = records.Header{Key: h.Key, Value: h.Value}
	}
	return records.Record{
		Headers: headers,
		Key:     rec.Key,
		Value:   rec.Value,
		Raw:     rec,
	}
}
