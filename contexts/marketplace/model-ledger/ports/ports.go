package ports

import (
	"context"
	"time"

	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	"modelmarket/internal/shared/events"
)

// CreateModelInput carries the caller-supplied listing fields; the repository
// assigns the dense model id.
type CreateModelInput struct {
	CreatorID   string
	Name        string
	Description string
	PriceCents  int64
}

// ModelRepository owns listing persistence and the transaction boundaries of
// every listing mutation. Each *WithOutbox method must commit the state
// change and its outbox event atomically, re-checking preconditions under the
// same lock so concurrent callers serialize instead of interleaving.
type ModelRepository interface {
	GetModel(ctx context.Context, modelID uint64) (entities.Model, error)
	ListModels(ctx context.Context) ([]entities.Model, error)
	// CreateModelWithOutbox allocates the next model id, persists the listing
	// and fills the event's ModelID before writing the outbox row.
	CreateModelWithOutbox(ctx context.Context, input CreateModelInput, event ModelListedEvent) (entities.Model, error)
	// RecordPurchaseWithOutbox sets the buyer once and adds the full payment
	// to the custody balance.
	RecordPurchaseWithOutbox(ctx context.Context, modelID uint64, buyerID string, paymentCents int64, event ModelPurchasedEvent) (entities.Model, error)
	RecordRatingWithOutbox(ctx context.Context, modelID uint64, buyerID string, score int, event ModelRatedEvent) (entities.Model, error)
}

// TreasuryRepository owns the custody balance.
type TreasuryRepository interface {
	CustodyBalance(ctx context.Context) (int64, error)
	// WithdrawWithOutbox captures the full balance, resets it to zero, runs
	// transfer for that amount and writes the outbox row, all atomically. A
	// transfer failure must roll back the reset. The withdrawn amount is
	// returned; the event's AmountCents is filled in by the repository.
	WithdrawWithOutbox(ctx context.Context, operatorID string, transfer func(amountCents int64) error, event FundsWithdrawnEvent) (int64, error)
}

// PayoutGateway settles a withdrawal with the operator's external account.
type PayoutGateway interface {
	Transfer(ctx context.Context, operatorID string, amountCents int64) error
}

// IdempotencyRecord captures dedupe metadata for mutating requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ModelID     uint64
	ExpiresAt   time.Time
}

// IdempotencyStore abstracts idempotency persistence with TTL handling.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// Clock allows deterministic testing of timestamps and TTL rules.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the ledger outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope is the canonical cross-process envelope contract.
type EventEnvelope = events.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
