package commands

import (
	"context"
	"log/slog"
	"time"

	application "modelmarket/contexts/marketplace/model-ledger/application"
	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	"modelmarket/contexts/marketplace/model-ledger/domain/services"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type RateModelCommand struct {
	CallerID string
	ModelID  uint64
	Score    int
}

type RateModelUseCase struct {
	Models      ports.ModelRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute records the buyer's rating and its outbox event atomically. Score
// range is checked before the caller's role so an out-of-range score fails
// identically for any caller.
func (u RateModelUseCase) Execute(ctx context.Context, cmd RateModelCommand) (entities.Model, error) {
	logger := application.ResolveLogger(u.Logger)

	model, err := u.Models.GetModel(ctx, cmd.ModelID)
	if err != nil {
		return entities.Model{}, err
	}
	if err := services.EvaluateRating(model, cmd.CallerID, cmd.Score); err != nil {
		logger.Warn("rating rejected",
			"event", "rate_model_rejected",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"model_id", cmd.ModelID,
			"caller_id", cmd.CallerID,
			"score", cmd.Score,
			"error", err.Error(),
		)
		return entities.Model{}, err
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Model{}, err
	}

	model, err = u.Models.RecordRatingWithOutbox(ctx, cmd.ModelID, cmd.CallerID, cmd.Score, ports.ModelRatedEvent{
		EventID:    eventID,
		ModelID:    cmd.ModelID,
		BuyerID:    cmd.CallerID,
		Score:      cmd.Score,
		OccurredAt: u.now(),
	})
	if err != nil {
		logger.Error("rating failed on write transaction",
			"event", "rate_model_write_failed",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"model_id", cmd.ModelID,
			"caller_id", cmd.CallerID,
			"error", err.Error(),
		)
		return entities.Model{}, err
	}

	logger.Info("model rated",
		"event", "model_rated",
		"module", "marketplace/model-ledger",
		"layer", "application",
		"model_id", model.ModelID,
		"buyer_id", cmd.CallerID,
		"score", cmd.Score,
		"avg_rating", model.AverageRating(),
	)
	return model, nil
}

func (u RateModelUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
