package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/foehnwatch/tas-tracker/internal/config"
	"github.com/foehnwatch/tas-tracker/internal/pipeline"
)

// Publisher produces frame-set events to a Kafka topic.
// It implements pipeline.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishFrameSet serializes and publishes one completed frame set.
func (p *Publisher) PublishFrameSet(ctx context.Context, event pipeline.FrameSetEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish frame set for %s %d: %w", event.Region, event.Year, err)
	}
	p.logger.Debug("frame set published",
		"region", event.Region,
		"year", event.Year,
		"kind", event.Kind,
		"frames", event.FrameCount,
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a frame-set event into a Kafka message.
func serializeToMessage(event pipeline.FrameSetEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize frame-set event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%s-%d", event.Region, event.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "generated_at", Value: []byte(event.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
