package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"modelmarket/contexts/marketplace/model-ledger/application/commands"
	"modelmarket/contexts/marketplace/model-ledger/application/queries"
	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	httptransport "modelmarket/contexts/marketplace/model-ledger/transport/http"
)

type Handler struct {
	ListModel       commands.ListModelUseCase
	PurchaseModel   commands.PurchaseModelUseCase
	RateModel       commands.RateModelUseCase
	WithdrawFunds   commands.WithdrawFundsUseCase
	GetModel        queries.GetModelUseCase
	ListModels      queries.ListModelsUseCase
	TreasuryBalance queries.TreasuryBalanceUseCase
	Logger          *slog.Logger
}

func (h Handler) ListModelHandler(
	ctx context.Context,
	creatorID string,
	req httptransport.ListModelRequest,
) (httptransport.ListModelResponse, error) {
	model, err := h.ListModel.Execute(ctx, commands.ListModelCommand{
		CreatorID:   creatorID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		return httptransport.ListModelResponse{}, err
	}

	resp := httptransport.ListModelResponse{Status: "success"}
	resp.Data.Model = toModelDTO(model)
	return resp, nil
}

func (h Handler) PurchaseModelHandler(
	ctx context.Context,
	buyerID string,
	modelID uint64,
	idempotencyKey string,
	req httptransport.PurchaseModelRequest,
) (httptransport.PurchaseModelResponse, error) {
	result, err := h.PurchaseModel.Execute(ctx, commands.PurchaseModelCommand{
		BuyerID:        buyerID,
		ModelID:        modelID,
		PaymentCents:   req.PaymentCents,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.PurchaseModelResponse{}, err
	}

	resp := httptransport.PurchaseModelResponse{
		Status:   "success",
		Replayed: result.Replayed,
	}
	resp.Data.Model = toModelDTO(result.Model)
	return resp, nil
}

func (h Handler) RateModelHandler(
	ctx context.Context,
	callerID string,
	modelID uint64,
	req httptransport.RateModelRequest,
) (httptransport.RateModelResponse, error) {
	model, err := h.RateModel.Execute(ctx, commands.RateModelCommand{
		CallerID: callerID,
		ModelID:  modelID,
		Score:    req.Score,
	})
	if err != nil {
		return httptransport.RateModelResponse{}, err
	}

	resp := httptransport.RateModelResponse{Status: "success"}
	resp.Data.Model = toModelDTO(model)
	return resp, nil
}

func (h Handler) WithdrawFundsHandler(ctx context.Context, callerID string) (httptransport.WithdrawFundsResponse, error) {
	result, err := h.WithdrawFunds.Execute(ctx, commands.WithdrawFundsCommand{CallerID: callerID})
	if err != nil {
		return httptransport.WithdrawFundsResponse{}, err
	}

	resp := httptransport.WithdrawFundsResponse{Status: "success"}
	resp.Data.OperatorID = result.OperatorID
	resp.Data.AmountCents = result.AmountCents
	return resp, nil
}

func (h Handler) TreasuryBalanceHandler(ctx context.Context, callerID string) (httptransport.TreasuryBalanceResponse, error) {
	balance, err := h.TreasuryBalance.Execute(ctx, callerID)
	if err != nil {
		return httptransport.TreasuryBalanceResponse{}, err
	}

	resp := httptransport.TreasuryBalanceResponse{Status: "success"}
	resp.Data.BalanceCents = balance
	return resp, nil
}

func (h Handler) GetModelHandler(ctx context.Context, modelID uint64) (httptransport.GetModelResponse, error) {
	snapshot, err := h.GetModel.Execute(ctx, modelID)
	if err != nil {
		return httptransport.GetModelResponse{}, err
	}

	resp := httptransport.GetModelResponse{Status: "success"}
	resp.Data.Model = toSnapshotDTO(snapshot)
	return resp, nil
}

func (h Handler) ListModelsHandler(ctx context.Context) (httptransport.ListModelsResponse, error) {
	snapshots, err := h.ListModels.Execute(ctx)
	if err != nil {
		return httptransport.ListModelsResponse{}, err
	}

	resp := httptransport.ListModelsResponse{Status: "success"}
	resp.Data.Models = make([]httptransport.ModelDTO, 0, len(snapshots))
	for _, snapshot := range snapshots {
		resp.Data.Models = append(resp.Data.Models, toSnapshotDTO(snapshot))
	}
	return resp, nil
}

func toModelDTO(model entities.Model) httptransport.ModelDTO {
	return httptransport.ModelDTO{
		ModelID:     model.ModelID,
		Name:        model.Name,
		Description: model.Description,
		PriceCents:  model.PriceCents,
		CreatorID:   model.CreatorID,
		BuyerID:     model.BuyerID,
		Sold:        model.Sold(),
		AvgRating:   model.AverageRating(),
		RatingCount: model.RatingCount,
		CreatedAt:   model.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   model.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSnapshotDTO(snapshot queries.ModelSnapshot) httptransport.ModelDTO {
	return httptransport.ModelDTO{
		ModelID:     snapshot.ModelID,
		Name:        snapshot.Name,
		Description: snapshot.Description,
		PriceCents:  snapshot.PriceCents,
		CreatorID:   snapshot.CreatorID,
		BuyerID:     snapshot.BuyerID,
		Sold:        snapshot.Sold,
		AvgRating:   snapshot.AvgRating,
		RatingCount: snapshot.RatingCount,
		CreatedAt:   snapshot.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   snapshot.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
