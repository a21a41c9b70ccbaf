package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "modelmarket/contexts/marketplace/model-ledger/application"
	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type WithdrawFundsCommand struct {
	CallerID string
}

type WithdrawFundsResult struct {
	OperatorID  string
	AmountCents int64
}

type WithdrawFundsUseCase struct {
	Treasury    ports.TreasuryRepository
	Payout      ports.PayoutGateway
	OperatorID  string
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute drains the custody balance to the operator. The balance reset, the
// payout transfer and the marketplace.funds_withdrawn outbox row are one
// atomic unit inside the repository: a failed transfer rolls the reset back,
// so funds can be neither lost nor double-withdrawn.
func (u WithdrawFundsUseCase) Execute(ctx context.Context, cmd WithdrawFundsCommand) (WithdrawFundsResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.CallerID) == "" || cmd.CallerID != u.OperatorID {
		logger.Warn("withdrawal rejected",
			"event", "withdraw_funds_rejected",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"caller_id", cmd.CallerID,
		)
		return WithdrawFundsResult{}, domainerrors.ErrNotOperator
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return WithdrawFundsResult{}, err
	}

	amount, err := u.Treasury.WithdrawWithOutbox(ctx, u.OperatorID,
		func(amountCents int64) error {
			return u.Payout.Transfer(ctx, u.OperatorID, amountCents)
		},
		ports.FundsWithdrawnEvent{
			EventID:    eventID,
			OperatorID: u.OperatorID,
			OccurredAt: u.now(),
		})
	if err != nil {
		logger.Error("withdrawal failed",
			"event", "withdraw_funds_failed",
			"module", "marketplace/model-ledger",
			"layer", "application",
			"operator_id", u.OperatorID,
			"error", err.Error(),
		)
		return WithdrawFundsResult{}, err
	}

	logger.Info("funds withdrawn",
		"event", "funds_withdrawn",
		"module", "marketplace/model-ledger",
		"layer", "application",
		"operator_id", u.OperatorID,
		"amount_cents", amount,
	)
	return WithdrawFundsResult{OperatorID: u.OperatorID, AmountCents: amount}, nil
}

func (u WithdrawFundsUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
