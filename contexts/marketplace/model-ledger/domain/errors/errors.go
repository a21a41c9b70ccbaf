package errors

import "errors"

var (
	ErrModelNotFound       = errors.New("model not found")
	ErrInvalidListing      = errors.New("invalid listing request")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrModelAlreadySold    = errors.New("model already sold")
	ErrOnlyBuyerCanRate    = errors.New("only buyers can rate")
	ErrInvalidRating       = errors.New("invalid rating")
	ErrModelAlreadyRated   = errors.New("model already rated by its buyer")
	ErrNotOperator         = errors.New("caller is not the owner")
	ErrPayoutFailed        = errors.New("payout transfer failed")

	ErrIdempotencyKeyConflict   = errors.New("idempotency key reused with different request")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
