package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/outbox"
	"github.com/Laimiu-debug/lifecard-exchange/internal/metrics"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/messaging/producers"
)

// HistoryAppender records completed exchanges in the read model
type HistoryAppender interface {
	Append(ctx context.Context, record *exchange.Record) error
}

// EventPublisher delivers an outbox message to its consumers
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl publishes exchange events to Kafka and, for accepted
// exchanges, appends the history record. The history write happens before the
// message is marked processed, so a crash between the two replays the publish
// rather than losing the record; both sinks tolerate the replay.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	history    HistoryAppender
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	history HistoryAppender,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		history:    history,
		logger:     logger,
	}
}

func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal exchange event from outbox payload",
			"outbox_id", message.ID, "exchange_id", message.ExchangeID.String(), "error", err)
		// A payload that never parses will never publish; fail it now
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to update outbox status after unmarshal error", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, event.ExchangeID.String(), event); err != nil {
		metrics.RecordOutboxPublish(string(event.Type), "failure")
		return fmt.Errorf("failed to publish event for outbox %d: %w", message.ID, err)
	}

	if event.Type == exchange.EventAccepted {
		if err := p.history.Append(ctx, event.ToRecord()); err != nil {
			return fmt.Errorf("failed to append history record for outbox %d: %w", message.ID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		return fmt.Errorf("event for outbox %d published, but failed to mark as PROCESSED: %w", message.ID, err)
	}

	metrics.RecordOutboxPublish(string(event.Type), "success")
	p.logger.Info("Outbox message published",
		"outbox_id", message.ID,
		"exchange_id", event.ExchangeID.String(),
		"event_type", string(event.Type))
	return nil
}
