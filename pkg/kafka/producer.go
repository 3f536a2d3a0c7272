package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Async        bool
}

// DefaultProducerConfig returns producer defaults tuned for a
// low-volume event stream: small batches flushed quickly, synchronous
// writes, full-ISR acknowledgement.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Async:        false,
	}
}

// Producer publishes Event envelopes to Kafka topics.
type Producer struct {
	w       *kafka.Writer
	brokers []string
	log     *slog.Logger
}

// NewProducer creates a producer from cfg. The writer balances by
// message size and waits for acknowledgement from all in-sync replicas.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			Async:        cfg.Async,
			RequiredAcks: kafka.RequireAll,
		},
		brokers: cfg.Brokers,
		log:     logger,
	}
}

// Publish sends one event to topic. Messages are keyed by aggregate ID
// so every event for an aggregate lands on the same partition, and the
// envelope metadata travels in headers for consumers that filter
// without deserializing.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "source", Value: []byte(event.Source)},
	}
	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		p.log.ErrorContext(ctx, "event publish failed",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	p.log.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// Ping dials each broker until one answers a metadata request.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes any buffered messages and releases the writer.
func (p *Producer) Close() error {
	return p.w.Close()
}
