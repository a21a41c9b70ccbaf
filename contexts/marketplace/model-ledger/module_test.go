package modelledger_test

import (
	"context"
	"errors"
	"testing"

	modelledger "modelmarket/contexts/marketplace/model-ledger"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	httptransport "modelmarket/contexts/marketplace/model-ledger/transport/http"
)

func listTestModel(t *testing.T, module modelledger.Module, creatorID string, name string, priceCents int64) httptransport.ModelDTO {
	t.Helper()
	resp, err := module.Handler.ListModelHandler(context.Background(), creatorID, httptransport.ListModelRequest{
		Name:        name,
		Description: "test listing",
		PriceCents:  priceCents,
	})
	if err != nil {
		t.Fatalf("list model failed: %v", err)
	}
	return resp.Data.Model
}

func TestModelLedgerListAssignsDenseIDs(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)

	first := listTestModel(t, module, "creator_1", "Sentiment Classifier", 1000)
	second := listTestModel(t, module, "creator_2", "Image Tagger", 2500)
	third := listTestModel(t, module, "creator_1", "Translation Engine", 4000)

	if first.ModelID != 0 || second.ModelID != 1 || third.ModelID != 2 {
		t.Fatalf("expected dense ids 0,1,2, got %d,%d,%d", first.ModelID, second.ModelID, third.ModelID)
	}
	if first.CreatorID != "creator_1" || first.PriceCents != 1000 || first.Name != "Sentiment Classifier" {
		t.Fatalf("stored listing fields do not match input: %+v", first)
	}
	if first.Sold || first.AvgRating != 0 || first.RatingCount != 0 {
		t.Fatalf("new listing must start unsold and unrated: %+v", first)
	}

	all, err := module.Handler.ListModelsHandler(context.Background())
	if err != nil {
		t.Fatalf("list models failed: %v", err)
	}
	if len(all.Data.Models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(all.Data.Models))
	}
	for i, model := range all.Data.Models {
		if model.ModelID != uint64(i) {
			t.Fatalf("expected id order 0..2, got %d at index %d", model.ModelID, i)
		}
	}
}

func TestModelLedgerListValidation(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()

	_, err := module.Handler.ListModelHandler(ctx, "creator_1", httptransport.ListModelRequest{
		Name:       "",
		PriceCents: 1000,
	})
	if !errors.Is(err, domainerrors.ErrInvalidListing) {
		t.Fatalf("expected invalid listing for empty name, got %v", err)
	}

	_, err = module.Handler.ListModelHandler(ctx, "creator_1", httptransport.ListModelRequest{
		Name:       "Free Model",
		PriceCents: 0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}

	// A failed listing must not consume an id.
	next := listTestModel(t, module, "creator_1", "Real Model", 500)
	if next.ModelID != 0 {
		t.Fatalf("expected first successful listing to get id 0, got %d", next.ModelID)
	}
}

func TestModelLedgerPurchaseFlow(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()
	listed := listTestModel(t, module, "creator_1", "Sentiment Classifier", 1500)

	_, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1499,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientPayment) {
		t.Fatalf("expected insufficient payment, got %v", err)
	}

	snapshot, err := module.Handler.GetModelHandler(ctx, listed.ModelID)
	if err != nil {
		t.Fatalf("get model after rejected purchase failed: %v", err)
	}
	if snapshot.Data.Model.Sold || snapshot.Data.Model.BuyerID != "" {
		t.Fatalf("rejected purchase must leave buyer unset: %+v", snapshot.Data.Model)
	}
	balance, err := module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("rejected purchase must not move funds, custody=%d", balance)
	}

	// Overpayment is accepted and retained in full.
	purchased, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1800,
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if !purchased.Data.Model.Sold || purchased.Data.Model.BuyerID != "buyer_1" {
		t.Fatalf("purchase must set buyer: %+v", purchased.Data.Model)
	}
	balance, err = module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 1800 {
		t.Fatalf("expected custody 1800 after overpayment, got %d", balance)
	}

	_, err = module.Handler.PurchaseModelHandler(ctx, "buyer_2", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	})
	if !errors.Is(err, domainerrors.ErrModelAlreadySold) {
		t.Fatalf("expected already sold on second purchase, got %v", err)
	}

	_, err = module.Handler.PurchaseModelHandler(ctx, "buyer_1", 99, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	})
	if !errors.Is(err, domainerrors.ErrModelNotFound) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestModelLedgerPurchaseIdempotency(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()
	listed := listTestModel(t, module, "creator_1", "Sentiment Classifier", 1500)

	first, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "idem-purchase-1", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	})
	if err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first purchase must not be a replay")
	}

	second, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "idem-purchase-1", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	})
	if err != nil {
		t.Fatalf("replayed purchase failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replayed purchase")
	}
	if second.Data.Model.ModelID != first.Data.Model.ModelID {
		t.Fatalf("replay returned a different model: %d vs %d", second.Data.Model.ModelID, first.Data.Model.ModelID)
	}

	balance, err := module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("replay must not double-charge, custody=%d", balance)
	}

	_, err = module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "idem-purchase-1", httptransport.PurchaseModelRequest{
		PaymentCents: 2000,
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected idempotency conflict for changed payload, got %v", err)
	}
}

func TestModelLedgerRatingFlow(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()
	listed := listTestModel(t, module, "creator_1", "Sentiment Classifier", 1500)

	_, err := module.Handler.RateModelHandler(ctx, "buyer_1", listed.ModelID, httptransport.RateModelRequest{Score: 5})
	if !errors.Is(err, domainerrors.ErrOnlyBuyerCanRate) {
		t.Fatalf("expected only buyer can rate before sale, got %v", err)
	}

	if _, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	}); err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	_, err = module.Handler.RateModelHandler(ctx, "stranger_1", listed.ModelID, httptransport.RateModelRequest{Score: 4})
	if !errors.Is(err, domainerrors.ErrOnlyBuyerCanRate) {
		t.Fatalf("expected only buyer can rate for non-buyer, got %v", err)
	}
	_, err = module.Handler.RateModelHandler(ctx, "buyer_1", listed.ModelID, httptransport.RateModelRequest{Score: 0})
	if !errors.Is(err, domainerrors.ErrInvalidRating) {
		t.Fatalf("expected invalid rating for score 0, got %v", err)
	}
	_, err = module.Handler.RateModelHandler(ctx, "buyer_1", listed.ModelID, httptransport.RateModelRequest{Score: 6})
	if !errors.Is(err, domainerrors.ErrInvalidRating) {
		t.Fatalf("expected invalid rating for score 6, got %v", err)
	}

	rated, err := module.Handler.RateModelHandler(ctx, "buyer_1", listed.ModelID, httptransport.RateModelRequest{Score: 5})
	if err != nil {
		t.Fatalf("rating failed: %v", err)
	}
	if rated.Data.Model.AvgRating != 5 || rated.Data.Model.RatingCount != 1 {
		t.Fatalf("expected avg 5 with one rating, got avg=%d count=%d", rated.Data.Model.AvgRating, rated.Data.Model.RatingCount)
	}

	_, err = module.Handler.RateModelHandler(ctx, "buyer_1", listed.ModelID, httptransport.RateModelRequest{Score: 1})
	if !errors.Is(err, domainerrors.ErrModelAlreadyRated) {
		t.Fatalf("expected already rated on second rating, got %v", err)
	}

	snapshot, err := module.Handler.GetModelHandler(ctx, listed.ModelID)
	if err != nil {
		t.Fatalf("get model failed: %v", err)
	}
	if snapshot.Data.Model.AvgRating != 5 {
		t.Fatalf("rejected re-rating must not change avg, got %d", snapshot.Data.Model.AvgRating)
	}
}

func TestModelLedgerWithdrawFlow(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()
	listed := listTestModel(t, module, "creator_1", "Sentiment Classifier", 1500)
	if _, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 1500,
	}); err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	_, err := module.Handler.WithdrawFundsHandler(ctx, "creator_1")
	if !errors.Is(err, domainerrors.ErrNotOperator) {
		t.Fatalf("expected not operator, got %v", err)
	}
	balance, err := module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("rejected withdrawal must not move funds, custody=%d", balance)
	}

	withdrawn, err := module.Handler.WithdrawFundsHandler(ctx, "operator_1")
	if err != nil {
		t.Fatalf("withdrawal failed: %v", err)
	}
	if withdrawn.Data.AmountCents != 1500 || withdrawn.Data.OperatorID != "operator_1" {
		t.Fatalf("unexpected withdrawal result: %+v", withdrawn.Data)
	}
	balance, err = module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("withdrawal must empty custody, got %d", balance)
	}

	transfers := module.Payout.Transfers()
	if len(transfers) != 1 || transfers[0].AmountCents != 1500 || transfers[0].OperatorID != "operator_1" {
		t.Fatalf("unexpected payout transfers: %+v", transfers)
	}

	// Zero-balance withdrawal is a no-op payout, not an error.
	again, err := module.Handler.WithdrawFundsHandler(ctx, "operator_1")
	if err != nil {
		t.Fatalf("zero-balance withdrawal failed: %v", err)
	}
	if again.Data.AmountCents != 0 {
		t.Fatalf("expected zero amount, got %d", again.Data.AmountCents)
	}
}

func TestModelLedgerWithdrawPayoutFailureKeepsBalance(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()
	listed := listTestModel(t, module, "creator_1", "Sentiment Classifier", 2000)
	if _, err := module.Handler.PurchaseModelHandler(ctx, "buyer_1", listed.ModelID, "", httptransport.PurchaseModelRequest{
		PaymentCents: 2000,
	}); err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	module.Payout.FailWith = errors.New("settlement rail offline")
	_, err := module.Handler.WithdrawFundsHandler(ctx, "operator_1")
	if !errors.Is(err, domainerrors.ErrPayoutFailed) {
		t.Fatalf("expected payout failed, got %v", err)
	}

	balance, err := module.Store.CustodyBalance(ctx)
	if err != nil {
		t.Fatalf("custody balance failed: %v", err)
	}
	if balance != 2000 {
		t.Fatalf("failed payout must keep custody intact, got %d", balance)
	}

	module.Payout.FailWith = nil
	retried, err := module.Handler.WithdrawFundsHandler(ctx, "operator_1")
	if err != nil {
		t.Fatalf("retried withdrawal failed: %v", err)
	}
	if retried.Data.AmountCents != 2000 {
		t.Fatalf("expected retried withdrawal of 2000, got %d", retried.Data.AmountCents)
	}
}

func TestModelLedgerTreasuryBalanceIsOperatorOnly(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)
	ctx := context.Background()

	_, err := module.Handler.TreasuryBalanceHandler(ctx, "creator_1")
	if !errors.Is(err, domainerrors.ErrNotOperator) {
		t.Fatalf("expected not operator, got %v", err)
	}

	resp, err := module.Handler.TreasuryBalanceHandler(ctx, "operator_1")
	if err != nil {
		t.Fatalf("treasury balance failed: %v", err)
	}
	if resp.Data.BalanceCents != 0 {
		t.Fatalf("expected empty custody, got %d", resp.Data.BalanceCents)
	}
}

func TestModelLedgerGetModelNotFound(t *testing.T) {
	module := modelledger.NewInMemoryModule("operator_1", nil)

	_, err := module.Handler.GetModelHandler(context.Background(), 0)
	if !errors.Is(err, domainerrors.ErrModelNotFound) {
		t.Fatalf("expected model not found, got %v", err)
	}
}
