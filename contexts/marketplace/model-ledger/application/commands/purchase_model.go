package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "modelmarket/contexts/marketplace/model-ledger/application"
	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/domain/services"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type PurchaseModelCommand struct {
	BuyerID        string
	ModelID        uint64
	PaymentCents   int64
	IdempotencyKey string
}

type PurchaseModelResult struct {
	Model    entities.Model
	Replayed bool
}

type PurchaseModelUseCase struct {
	Models         ports.ModelRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute runs the purchase workflow in this order:
// 1) idempotency lookup/replay
// 2) domain eligibility validation
// 3) atomic buyer + custody + outbox persistence
// 4) idempotency record write.
func (u PurchaseModelUseCase) Execute(ctx context.Context, cmd PurchaseModelCommand) (PurchaseModelResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.BuyerID) == "" {
		return PurchaseModelResult{}, domainerrors.ErrInvalidListing
	}

	now := u.now()
	idempotencyKey := resolveIdempotencyKey(cmd)
	requestHash := hashPurchase(cmd)

	record, found, err := u.Idempotency.Get(ctx, idempotencyKey, now)
	if err != nil {
		return PurchaseModelResult{}, err
	}
	if found {
		// A reused idempotency key must map to an identical request payload.
		if record.RequestHash != requestHash {
			logger.Warn("purchase idempotency key conflict",
				"event", "purchase_model_idempotency_conflict",
				"module", "marketplace/model-ledger",
				"layer", "application",
				"model_id", cmd.ModelID,
				"buyer_id", cmd.BuyerID,
			)
			return PurchaseModelResult{}, domainerrors.ErrIdempotencyKeyConflict
		}
		model, err := u.Models.GetModel(ctx, record.ModelID)
		if err != nil {
			return PurchaseModelResult{}, err
		}
		logger.Info("purchase replayed from idempotency",
			"event", "purchase_model_replayed",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"model_id", model.ModelID,
			"buyer_id", cmd.BuyerID,
		)
		return PurchaseModelResult{Model: model, Replayed: true}, nil
	}

	model, err := u.Models.GetModel(ctx, cmd.ModelID)
	if err != nil {
		return PurchaseModelResult{}, err
	}
	if err := services.EvaluatePurchase(model, cmd.BuyerID, cmd.PaymentCents); err != nil {
		logger.Warn("purchase rejected",
			"event", "purchase_model_rejected",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"model_id", cmd.ModelID,
			"buyer_id", cmd.BuyerID,
			"payment_cents", cmd.PaymentCents,
			"error", err.Error(),
		)
		return PurchaseModelResult{}, err
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return PurchaseModelResult{}, err
	}

	// Ledger write boundary: buyer slot, custody balance and the
	// marketplace.model_purchased outbox row are committed together by the
	// repository adapter, which re-checks the sold/payment preconditions
	// under its lock.
	model, err = u.Models.RecordPurchaseWithOutbox(ctx, cmd.ModelID, cmd.BuyerID, cmd.PaymentCents, ports.ModelPurchasedEvent{
		EventID:      eventID,
		ModelID:      cmd.ModelID,
		BuyerID:      cmd.BuyerID,
		CreatorID:    model.CreatorID,
		PaymentCents: cmd.PaymentCents,
		OccurredAt:   now,
	})
	if err != nil {
		logger.Error("purchase failed on write transaction",
			"event", "purchase_model_write_failed",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"model_id", cmd.ModelID,
			"buyer_id", cmd.BuyerID,
			"error", err.Error(),
		)
		return PurchaseModelResult{}, err
	}

	if err := u.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         idempotencyKey,
		RequestHash: requestHash,
		ModelID:     model.ModelID,
		ExpiresAt:   now.Add(u.idempotencyTTL()),
	}); err != nil {
		return PurchaseModelResult{}, err
	}

	logger.Info("model purchased",
		"event", "model_purchased",
		"module", "marketplace/model-ledger",
		"layer", "application",
		"model_id", model.ModelID,
		"buyer_id", model.BuyerID,
		"payment_cents", cmd.PaymentCents,
	)
	return PurchaseModelResult{Model: model}, nil
}

func (u PurchaseModelUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return u.IdempotencyTTL
}

func (u PurchaseModelUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}

func resolveIdempotencyKey(cmd PurchaseModelCommand) string {
	if strings.TrimSpace(cmd.IdempotencyKey) != "" {
		return cmd.IdempotencyKey
	}
	// Canonical fallback pattern for purchase operations.
	return fmt.Sprintf("mm:%s:%d:purchase", cmd.BuyerID, cmd.ModelID)
}

func hashPurchase(cmd PurchaseModelCommand) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", cmd.BuyerID, cmd.ModelID, cmd.PaymentCents)))
	return hex.EncodeToString(sum[:])
}
