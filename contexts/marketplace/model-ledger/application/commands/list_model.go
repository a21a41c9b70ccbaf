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

type ListModelCommand struct {
	CreatorID   string
	Name        string
	Description string
	PriceCents  int64
}

type ListModelUseCase struct {
	Models      ports.ModelRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute validates the listing and persists it together with its
// marketplace.model_listed outbox event. The model id is assigned by the
// repository under the ledger lock so ids stay dense and strictly ordered.
func (u ListModelUseCase) Execute(ctx context.Context, cmd ListModelCommand) (entities.Model, error) {
	logger := application.ResolveLogger(u.Logger)

	if err := services.ValidateListing(cmd.CreatorID, cmd.Name, cmd.PriceCents); err != nil {
		logger.Warn("list model rejected",
			"event", "list_model_rejected",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"creator_id", cmd.CreatorID,
			"error", err.Error(),
		)
		return entities.Model{}, err
	}

	now := u.now()
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Model{}, err
	}

	model, err := u.Models.CreateModelWithOutbox(ctx, ports.CreateModelInput{
		CreatorID:   cmd.CreatorID,
		Name:        cmd.Name,
		Description: cmd.Description,
		PriceCents:  cmd.PriceCents,
	}, ports.ModelListedEvent{
		EventID:    eventID,
		CreatorID:  cmd.CreatorID,
		Name:       cmd.Name,
		PriceCents: cmd.PriceCents,
		OccurredAt: now,
	})
	if err != nil {
		logger.Error("list model failed on write transaction",
			"event", "list_model_write_failed",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"creator_id", cmd.CreatorID,
			"error", err.Error(),
		)
		return entities.Model{}, err
	}

	logger.Info("model listed",
		"event", "model_listed",
		"module", "marketplace/model-ledger",
		"layer", "application",
		"model_id", model.ModelID,
		"creator_id", model.CreatorID,
		"price_cents", model.PriceCents,
	)
	return model, nil
}

func (u ListModelUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
