package sinks

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/telicent-oss/telicent-lib/config"
	"github.com/telicent-oss/telicent-lib/logging"
	"github.com/telicent-oss/telicent-lib/records"
)

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	// Topic every record is produced to. Required.
	Topic string
	// Brokers seed the Kafka client. Required.
	Brokers []string
	// Logger receives client lifecycle messages; nil disables them.
	Logger *zap.Logger
	// Config resolves broker security settings (TLS, SASL) from the
	// environment. Nil uses a fresh environment-backed Configurator.
	Config *config.Configurator
	// ClientOpts are appended to the franz-go client options for advanced
	// tuning (batching, custom dialers).
	ClientOpts []kgo.Opt
}

// KafkaSink produces records to a single Kafka topic. Sends are synchronous;
// a nil return from Send means the broker acknowledged the record.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

// NewKafkaSink connects a producer for the configured topic.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: topic is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: at least one broker is required")
	}
	logger := logging.OrNop(cfg.Logger)
	conf := cfg.Config
	if conf == nil {
		conf = config.New()
	}
	authOpts, err := conf.KafkaAuthOpts()
	if err != nil {
		return nil, fmt.Errorf("kafka sink: %w", err)
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	}
	opts = append(opts, authOpts...)
	opts = append(opts, cfg.ClientOpts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka sink: create client: %w", err)
	}
	logger.Debug("kafka sink connected",
		zap.String("topic", cfg.Topic), zap.Strings("brokers", cfg.Brokers))
	return &KafkaSink{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Send produces one record and waits for broker acknowledgement.
func (s *KafkaSink) Send(ctx context.Context, record records.Record) error {
	res := s.client.ProduceSync(ctx, toKgoRecord(s.topic, record))
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("kafka sink: produce to %s: %w", s.topic, err)
	}
	return nil
}

// Name returns the target topic.
func (s *KafkaSink) Name() string { return s.topic }

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}

// toKgoRecord converts a library record into the franz-go produce shape.
func toKgoRecord(topic string, record records.Record) *kgo.Record {
	headers := make([]kgo.RecordHeader, len(record.Headers))
	for i, h := range record.Headers {
		headers[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     record.Key,
		Value:   record.Value,
		Headers: headers,
	}
}
