package workers

import (
	"context"
	"log/slog"
	"time"

	application "modelmarket/contexts/marketplace/model-ledger/application"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/shared/events"
)

type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce drains one batch of pending outbox rows to the event bus.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = "marketplace.model-events"
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list pending failed",
			"event", "model_ledger_outbox_list_failed",
			"module", "marketplace/model-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, message := range pending {
		envelope, err := events.Decode(message.Payload)
		if err != nil {
			logger.Error("outbox payload decode failed",
				"event", "model_ledger_outbox_decode_failed",
				"module", "marketplace/model-ledger",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}

		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("outbox publish failed",
				"event", "model_ledger_outbox_publish_failed",
				"module", "marketplace/model-ledger",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"event_id", envelope.EventID,
				"event_type", envelope.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, message.OutboxID, now); err != nil {
			logger.Error("outbox mark sent failed",
				"event", "model_ledger_outbox_mark_sent_failed",
				"module", "marketplace/model-ledger",
				"layer", "worker",
				"outbox_id", message.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	if len(pending) > 0 {
		logger.Info("outbox relay cycle completed",
			"event", "model_ledger_outbox_relay_completed",
			"module", "marketplace/model-ledger",
			"layer", "worker",
			"sent_count", len(pending),
		)
	}
	return nil
}
