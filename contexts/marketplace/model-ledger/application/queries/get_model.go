package queries

import (
	"context"
	"log/slog"
	"time"

	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

// ModelSnapshot is the read-side view of a listing, with the derived average
// rating materialized. Reads never mutate ledger state.
type ModelSnapshot struct {
	ModelID     uint64
	Name        string
	Description string
	PriceCents  int64
	CreatorID   string
	BuyerID     string
	Sold        bool
	RatingCount int64
	AvgRating   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type GetModelUseCase struct {
	Models ports.ModelRepository
	Logger *slog.Logger
}

func (u GetModelUseCase) Execute(ctx context.Context, modelID uint64) (ModelSnapshot, error) {
	model, err := u.Models.GetModel(ctx, modelID)
	if err != nil {
		return ModelSnapshot{}, err
	}
	return snapshotFromModel(model), nil
}

func snapshotFromModel(model entities.Model) ModelSnapshot {
	return ModelSnapshot{
		ModelID:     model.ModelID,
		Name:        model.Name,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		CreatorID:   model.CreatorID,
		BuyerID:     model.BuyerID,
		Sold:        model.Sold(),
		RatingCount: model.RatingCount,
		AvgRating:   model.AverageRating(),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
