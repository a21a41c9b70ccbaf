package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/shared/events"
)

const outboxStatusPending = "pending"

type outboxRow struct {
	message ports.OutboxMessage
	status  string
	sentAt  time.Time
}

// Store is the in-memory ledger. One mutex serializes every mutation, so
// operations apply fully or not at all and no caller observes a partial
// effect. Ids stay dense because allocation happens under the same lock.
type Store struct {
	mu          sync.Mutex
	models      map[uint64]entities.Model
	nextModelID uint64
	custody     int64
	idempotency map[string]ports.IdempotencyRecord
	outbox      []outboxRow
}

func NewStore() *Store {
	return &Store{
		models:      make(map[uint64]entities.Model),
		idempotency: make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) GetModel(ctx context.Context, modelID uint64) (entities.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, ok := s.models[modelID]
	if !ok {
		return entities.Model{}, domainerrors.ErrModelNotFound
	}
	return model, nil
}

func (s *Store) ListModels(ctx context.Context) ([]entities.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.Model, 0, len(s.models))
	for id := uint64(0); id < s.nextModelID; id++ {
		items = append(items, s.models[id])
	}
	return items, nil
}

func (s *Store) CreateModelWithOutbox(
	ctx context.Context,
	input ports.CreateModelInput,
	event ports.ModelListedEvent,
) (entities.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := event.OccurredAt.UTC()
	model := entities.Model{
		ModelID:     s.nextModelID,
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		CreatorID:   input.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	event.ModelID = model.ModelID
	envelope, err := event.Envelope()
	if err != nil {
		return entities.Model{}, err
	}
	if err := s.appendOutbox(envelope); err != nil {
		return entities.Model{}, err
	}

	s.models[model.ModelID] = model
	s.nextModelID++
	return model, nil
}

func (s *Store) RecordPurchaseWithOutbox(
	ctx context.Context,
	modelID uint64,
	buyerID string,
	paymentCents int64,
	event ports.ModelPurchasedEvent,
) (entities.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, ok := s.models[modelID]
	if !ok {
		return entities.Model{}, domainerrors.ErrModelNotFound
	}
	if model.Sold() {
		return entities.Model{}, domainerrors.ErrModelAlreadySold
	}
	if paymentCents < model.PriceCents {
		return entities.Model{}, domainerrors.ErrInsufficientPayment
	}

	envelope, err := event.Envelope()
	if err != nil {
		return entities.Model{}, err
	}
	if err := s.appendOutbox(envelope); err != nil {
		return entities.Model{}, err
	}

	model.BuyerID = buyerID
	model.UpdatedAt = event.OccurredAt.UTC()
	s.models[modelID] = model
	s.custody += paymentCents
	return model, nil
}

func (s *Store) RecordRatingWithOutbox(
	ctx context.Context,
	modelID uint64,
	buyerID string,
	score int,
	event ports.ModelRatedEvent,
) (entities.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, ok := s.models[modelID]
	if !ok {
		return entities.Model{}, domainerrors.ErrModelNotFound
	}
	if model.BuyerID != buyerID {
		return entities.Model{}, domainerrors.ErrOnlyBuyerCanRate
	}
	if model.RatingCount > 0 {
		return entities.Model{}, domainerrors.ErrModelAlreadyRated
	}

	envelope, err := event.Envelope()
	if err != nil {
		return entities.Model{}, err
	}
	if err := s.appendOutbox(envelope); err != nil {
		return entities.Model{}, err
	}

	model.RatingSum += int64(score)
	model.RatingCount++
	model.UpdatedAt = event.OccurredAt.UTC()
	s.models[modelID] = model
	return model, nil
}

func (s *Store) CustodyBalance(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.custody, nil
}

func (s *Store) WithdrawWithOutbox(
	ctx context.Context,
	operatorID string,
	transfer func(amountCents int64) error,
	event ports.FundsWithdrawnEvent,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.custody
	event.AmountCents = amount
	envelope, err := event.Envelope()
	if err != nil {
		return 0, err
	}

	// The balance is only reset after the transfer succeeds; a failed
	// transfer leaves the ledger untouched.
	if err := transfer(amount); err != nil {
		return 0, fmt.Errorf("%w: %v", domainerrors.ErrPayoutFailed, err)
	}
	if err := s.appendOutbox(envelope); err != nil {
		return 0, err
	}
	s.custody = 0
	return amount, nil
}

func (s *Store) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[record.Key]; ok {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		return nil
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.status != outboxStatusPending {
			continue
		}
		message := row.message
		message.Payload = append([]byte(nil), row.message.Payload...)
		items = append(items, message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].status = "sent"
			s.outbox[i].sentAt = sentAt.UTC()
			return nil
		}
	}
	return domainerrors.ErrRepositoryInvariantBroke
}

func (s *Store) NewID(ctx context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) appendOutbox(envelope events.Envelope) error {
	payload, err := events.Encode(envelope)
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, outboxRow{
		message: ports.OutboxMessage{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		},
		status: outboxStatusPending,
	})
	return nil
}

var _ ports.ModelRepository = (*Store)(nil)
var _ ports.TreasuryRepository = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
