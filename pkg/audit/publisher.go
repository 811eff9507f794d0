package audit

import (
	"context"
	"encoding/json"
	"time"

	"staytax/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Publisher records audit events. Publishing is best effort: a failed
// emit is logged and swallowed so the audit stream can never fail a
// payment or reservation operation.
type Publisher interface {
	Emit(ctx context.Context, eventType, subject string, data map[string]any)
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	log    *logger.Logger
	now    func() time.Time
}

// NewPublisher builds a Kafka-backed publisher. With no brokers
// configured it returns a no-op publisher so callers never branch.
func NewPublisher(brokers []string, topic string, log *logger.Logger) Publisher {
	if len(brokers) == 0 || topic == "" {
		log.Info("Audit stream disabled, no brokers configured")
		return &nopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // hash by subject for per-entity ordering
		RequiredAcks: kafka.RequireOne,
		Compression:  compress.Snappy,
		BatchTimeout: 50 * time.Millisecond,
	}

	return &kafkaPublisher{
		writer: writer,
		log:    log,
		now:    time.Now,
	}
}

func (p *kafkaPublisher) Emit(ctx context.Context, eventType, subject string, data map[string]any) {
	event := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Subject: subject,
		At:      p.now().UTC(),
		Data:    data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("Failed to encode audit event", "type", eventType, "subject", subject, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(subject),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("Failed to publish audit event", "type", eventType, "subject", subject, "error", err)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

func (*nopPublisher) Emit(context.Context, string, string, map[string]any) {}

func (*nopPublisher) Close() error { return nil }
