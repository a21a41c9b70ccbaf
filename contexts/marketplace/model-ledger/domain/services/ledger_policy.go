package services

import (
	"strings"

	"modelmarket/contexts/marketplace/model-ledger/domain/entities"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
)

// ValidateListing checks listing preconditions before any id is allocated.
// Description may be empty; a nameless listing is rejected.
func ValidateListing(creatorID string, name string, priceCents int64) error {
	if strings.TrimSpace(creatorID) == "" || strings.TrimSpace(name) == "" {
		return domainerrors.ErrInvalidListing
	}
	if priceCents <= 0 {
		return domainerrors.ErrInvalidPrice
	}
	return nil
}

// EvaluatePurchase checks whether buyerID may buy the model for paymentCents.
// Overpayment is accepted; the full amount is retained by the ledger.
func EvaluatePurchase(model entities.Model, buyerID string, paymentCents int64) error {
	if strings.TrimSpace(buyerID) == "" {
		return domainerrors.ErrInvalidListing
	}
	if model.Sold() {
		return domainerrors.ErrModelAlreadySold
	}
	if paymentCents < model.PriceCents {
		return domainerrors.ErrInsufficientPayment
	}
	return nil
}

// EvaluateRating checks rating preconditions. The score range is validated
// before the caller's role, so an out-of-range score fails the same way for
// everyone. A model accepts exactly one rating, from its recorded buyer.
func EvaluateRating(model entities.Model, callerID string, score int) error {
	if score < 1 || score > 5 {
		return domainerrors.ErrInvalidRating
	}
	if !model.Sold() || model.BuyerID != callerID {
		return domainerrors.ErrOnlyBuyerCanRate
	}
	if model.RatingCount > 0 {
		return domainerrors.ErrModelAlreadyRated
	}
	return nil
}
