package queries

import (
	"context"
	"log/slog"

	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type ListModelsUseCase struct {
	Models ports.ModelRepository
	Logger *slog.Logger
}

// Execute returns all listings in id order.
func (u ListModelsUseCase) Execute(ctx context.Context) ([]ModelSnapshot, error) {
	models, err := u.Models.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ModelSnapshot, 0, len(models))
	for _, model := range models {
		items = append(items, snapshotFromModel(model))
	}
	return items, nil
}
