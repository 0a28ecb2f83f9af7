package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/config"
	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher mirrors ingested records to a Kafka topic.
// It implements stream.Mirror. Writes are asynchronous so the ingestion loop
// never waits on the broker; failures are logged and counted.
type Publisher struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ stream.Mirror = (*Publisher)(nil)

// NewPublisher creates an asynchronous Kafka producer for the mirror topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	p := &Publisher{logger: logger, metrics: metrics}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

// Publish enqueues rec under the session key. It does not block on I/O.
func (p *Publisher) Publish(sessionID string, rec domain.Record) {
	msg, err := serializeToMessage(sessionID, rec)
	if err != nil {
		p.failed(1, err)
		return
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.failed(1, err)
	}
}

func (p *Publisher) completed(msgs []kafkago.Message, err error) {
	if err != nil {
		p.failed(len(msgs), err)
	}
}

func (p *Publisher) failed(n int, err error) {
	p.logger.Warn("mirror publish failed", "messages", n, "error", err)
	if p.metrics != nil {
		p.metrics.MirrorPublishErrors.Add(float64(n))
	}
}

// Close flushes pending messages and closes the producer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message keyed by session,
// so records of one subscription stay ordered within a partition.
func serializeToMessage(sessionID string, rec domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %d: %w", rec.Seq, err)
	}
	return kafkago.Message{
		Key:   []byte(sessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "payload_kind", Value: []byte(rec.Payload.Kind)},
			{Key: "received_at", Value: []byte(rec.ReceivedAt.Format(time.RFC3339Nano))},
		},
	}, nil
}
