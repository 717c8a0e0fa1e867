package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/config"
	"github.com/segmentio/kafka-go"
)

// ExchangeEventProducer publishes exchange lifecycle events to the topic the
// notification collaborator consumes.
type ExchangeEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewExchangeEventProducer creates a producer and ensures the topic exists
func NewExchangeEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ExchangeEventProducer, error) {
	if cfg.ExchangeTopic == "" {
		return nil, fmt.Errorf("kafka exchange topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for exchange event producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopicExists(conn, cfg.ExchangeTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure exchange topic %s exists: %w", cfg.ExchangeTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ExchangeTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &ExchangeEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ExchangeTopic,
	}, nil
}

// Publish writes one event keyed by exchange id so all transitions of a
// request land on the same partition, in order.
func (p *ExchangeEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish exchange event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish exchange event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published exchange event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ExchangeEventProducer) Close() error {
	p.logger.Info("Closing exchange event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
