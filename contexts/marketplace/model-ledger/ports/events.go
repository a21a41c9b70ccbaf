package ports

import (
	"strconv"
	"time"

	"modelmarket/internal/shared/events"
)

const (
	SourceService = "model-ledger"

	EventTypeModelListed    = "marketplace.model_listed"
	EventTypeModelPurchased = "marketplace.model_purchased"
	EventTypeModelRated     = "marketplace.model_rated"
	EventTypeFundsWithdrawn = "marketplace.funds_withdrawn"
)

// ModelListedEvent is the outbound integration payload persisted to outbox
// when a listing is created. ModelID is filled by the repository at id
// allocation time.
type ModelListedEvent struct {
	EventID    string
	ModelID    uint64
	CreatorID  string
	Name       string
	PriceCents int64
	OccurredAt time.Time
}

func (e ModelListedEvent) Envelope() (events.Envelope, error) {
	data, err := events.EncodeData(map[string]any{
		"model_id":    e.ModelID,
		"creator_id":  e.CreatorID,
		"name":        e.Name,
		"price_cents": e.PriceCents,
	})
	if err != nil {
		return events.Envelope{}, err
	}
	return envelope(e.EventID, EventTypeModelListed, modelPartition(e.ModelID), e.OccurredAt, data), nil
}

type ModelPurchasedEvent struct {
	EventID      string
	ModelID      uint64
	BuyerID      string
	CreatorID    string
	PaymentCents int64
	OccurredAt   time.Time
}

func (e ModelPurchasedEvent) Envelope() (events.Envelope, error) {
	data, err := events.EncodeData(map[string]any{
		"model_id":      e.ModelID,
		"buyer_id":      e.BuyerID,
		"creator_id":    e.CreatorID,
		"payment_cents": e.PaymentCents,
	})
	if err != nil {
		return events.Envelope{}, err
	}
	return envelope(e.EventID, EventTypeModelPurchased, modelPartition(e.ModelID), e.OccurredAt, data), nil
}

type ModelRatedEvent struct {
	EventID    string
	ModelID    uint64
	BuyerID    string
	Score      int
	OccurredAt time.Time
}

func (e ModelRatedEvent) Envelope() (events.Envelope, error) {
	data, err := events.EncodeData(map[string]any{
		"model_id": e.ModelID,
		"buyer_id": e.BuyerID,
		"score":    e.Score,
	})
	if err != nil {
		return events.Envelope{}, err
	}
	return envelope(e.EventID, EventTypeModelRated, modelPartition(e.ModelID), e.OccurredAt, data), nil
}

// FundsWithdrawnEvent records a completed custody withdrawal. AmountCents is
// filled by the repository inside the withdrawal transaction.
type FundsWithdrawnEvent struct {
	EventID     string
	OperatorID  string
	AmountCents int64
	OccurredAt  time.Time
}

func (e FundsWithdrawnEvent) Envelope() (events.Envelope, error) {
	data, err := events.EncodeData(map[string]any{
		"operator_id":  e.OperatorID,
		"amount_cents": e.AmountCents,
	})
	if err != nil {
		return events.Envelope{}, err
	}
	return envelope(e.EventID, EventTypeFundsWithdrawn, e.OperatorID, e.OccurredAt, data), nil
}

func envelope(eventID string, eventType string, partitionKey string, occurredAt time.Time, data []byte) events.Envelope {
	return events.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SourceService: SourceService,
		OccurredAt:    occurredAt.UTC(),
		PartitionKey:  partitionKey,
		SchemaVersion: 1,
		Data:          data,
	}
}

func modelPartition(modelID uint64) string {
	return strconv.FormatUint(modelID, 10)
}
