package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
	"modelmarket/internal/shared/events"
)

func TestStoreWritesOutboxRowPerMutation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	model, err := store.CreateModelWithOutbox(ctx, ports.CreateModelInput{
		CreatorID:  "creator_1",
		Name:       "Sentiment Classifier",
		PriceCents: 1500,
	}, ports.ModelListedEvent{EventID: "evt-1", CreatorID: "creator_1", Name: "Sentiment Classifier", PriceCents: 1500, OccurredAt: now})
	if err != nil {
		t.Fatalf("create model failed: %v", err)
	}

	if _, err := store.RecordPurchaseWithOutbox(ctx, model.ModelID, "buyer_1", 1500, ports.ModelPurchasedEvent{
		EventID: "evt-2", ModelID: model.ModelID, BuyerID: "buyer_1", CreatorID: "creator_1", PaymentCents: 1500, OccurredAt: now,
	}); err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	if _, err := store.RecordRatingWithOutbox(ctx, model.ModelID, "buyer_1", 5, ports.ModelRatedEvent{
		EventID: "evt-3", ModelID: model.ModelID, BuyerID: "buyer_1", Score: 5, OccurredAt: now,
	}); err != nil {
		t.Fatalf("record rating failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending outbox rows, got %d", len(pending))
	}

	wantTypes := []string{
		ports.EventTypeModelListed,
		ports.EventTypeModelPurchased,
		ports.EventTypeModelRated,
	}
	for i, message := range pending {
		if message.EventType != wantTypes[i] {
			t.Fatalf("outbox row %d: expected type %s, got %s", i, wantTypes[i], message.EventType)
		}
		envelope, err := events.Decode(message.Payload)
		if err != nil {
			t.Fatalf("outbox row %d payload decode failed: %v", i, err)
		}
		if envelope.EventID != message.OutboxID {
			t.Fatalf("outbox row %d: envelope id %s does not match outbox id %s", i, envelope.EventID, message.OutboxID)
		}
		if envelope.SourceService != ports.SourceService || envelope.SchemaVersion != 1 {
			t.Fatalf("outbox row %d: unexpected envelope header: %+v", i, envelope)
		}
	}

	// The listed event gets its model id from the allocation.
	first, err := events.Decode(pending[0].Payload)
	if err != nil {
		t.Fatalf("decode listed payload failed: %v", err)
	}
	var listedData struct {
		ModelID uint64 `json:"model_id"`
	}
	if err := events.DecodeInto(first.Data, &listedData); err != nil {
		t.Fatalf("decode listed data failed: %v", err)
	}
	if listedData.ModelID != model.ModelID {
		t.Fatalf("expected listed event model id %d, got %d", model.ModelID, listedData.ModelID)
	}

	if err := store.MarkOutboxSent(ctx, pending[0].OutboxID, now); err != nil {
		t.Fatalf("mark outbox sent failed: %v", err)
	}
	remaining, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 pending rows after mark sent, got %d", len(remaining))
	}
	if err := store.MarkOutboxSent(ctx, "missing-row", now); !errors.Is(err, domainerrors.ErrRepositoryInvariantBroke) {
		t.Fatalf("expected invariant error for unknown outbox id, got %v", err)
	}
}

func TestStoreRejectedMutationsWriteNoOutbox(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	model, err := store.CreateModelWithOutbox(ctx, ports.CreateModelInput{
		CreatorID:  "creator_1",
		Name:       "Sentiment Classifier",
		PriceCents: 1500,
	}, ports.ModelListedEvent{EventID: "evt-1", OccurredAt: now})
	if err != nil {
		t.Fatalf("create model failed: %v", err)
	}

	if _, err := store.RecordPurchaseWithOutbox(ctx, model.ModelID, "buyer_1", 100, ports.ModelPurchasedEvent{
		EventID: "evt-2", OccurredAt: now,
	}); !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("expected insufficient payment, got %v", err)
	}
	if _, err := store.RecordRatingWithOutbox(ctx, model.ModelID, "buyer_1", 5, ports.ModelRatedEvent{
		EventID: "evt-3", OccurredAt: now,
	}); !errors.Is(err, domainerrors.ErrOnlyBuyerCanRate) {
		t.Fatalf("expected only buyer can rate, got %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("rejected mutations must not enqueue events, got %d rows", len(pending))
	}
}

func TestStoreWithdrawIsAtomicWithTransfer(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	model, err := store.CreateModelWithOutbox(ctx, ports.CreateModelInput{
		CreatorID:  "creator_1",
		Name:       "Sentiment Classifier",
		PriceCents: 1500,
	}, ports.ModelListedEvent{EventID: "evt-1", OccurredAt: now})
	if err != nil {
		t.Fatalf("create model failed: %v", err)
	}
	if _, err := store.RecordPurchaseWithOutbox(ctx, model.ModelID, "buyer_1", 1500, ports.ModelPurchasedEvent{
		EventID: "evt-2", OccurredAt: now,
	}); err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}

	_, err = store.WithdrawWithOutbox(ctx, "operator_1", func(amountCents int64) error {
		return errors.New("rail down")
	}, ports.FundsWithdrawnEvent{EventID: "evt-3", OperatorID: "operator_1", OccurredAt: now})
	if !errors.Is(err, domainerrors.ErrPayoutFailed) {
		t.Fatalf("expected payout failed, got %v", err)
	}
	balance, err := store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("failed transfer must keep balance, got %d", balance)
	}

	var transferred int64
	amount, err := store.WithdrawWithOutbox(ctx, "operator_1", func(amountCents int64) error {
		transferred = amountCents
		return nil
	}, ports.FundsWithdrawnEvent{EventID: "evt-4", OperatorID: "operator_1", OccurredAt: now})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if amount != 1500 || transferred != 1500 {
		t.Fatalf("expected full balance transfer of 1500, got amount=%d transferred=%d", amount, transferred)
	}
	balance, err = store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("withdraw must reset custody, got %d", balance)
	}
}

func TestStoreIdempotencyExpiry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	record := ports.IdempotencyRecord{
		Key:         "idem-1",
		RequestHash: "hash-a",
		ModelID:     0,
		ExpiresAt:   now.Add(time.Hour),
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, found, err := store.Get(ctx, "idem-1", now)
	if err != nil || !found {
		t.Fatalf("expected live record, found=%v err=%v", found, err)
	}
	if got.RequestHash != "hash-a" {
		t.Fatalf("unexpected record: %+v", got)
	}

	conflicting := record
	conflicting.RequestHash = "hash-b"
	if err := store.Put(ctx, conflicting); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected key conflict, got %v", err)
	}

	_, found, err = store.Get(ctx, "idem-1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get after expiry failed: %v", err)
	}
	if found {
		t.Fatalf("expired record must not be returned")
	}
}
