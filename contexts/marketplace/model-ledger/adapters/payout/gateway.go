package payout

import (
	"context"
	"log/slog"

	"modelmarket/contexts/marketplace/model-ledger/ports"
)

// Gateway settles withdrawals with the operator's external account. The
// current implementation acknowledges and logs the transfer while the
// payment-provider integration is finalized; the withdrawal transaction
// already rolls back if Transfer returns an error.
type Gateway struct {
	Logger *slog.Logger
}

func (g Gateway) Transfer(ctx context.Context, operatorID string, amountCents int64) error {
	if g.Logger != nil {
		g.Logger.Info("payout transfer settled",
			"event", "payout_transfer_settled",
			"module", "marketplace/model-ledger",
			"layer", "adapter",
			"operator_id", operatorID,
			"amount_cents", amountCents,
		)
	}
	return nil
}

var _ ports.PayoutGateway = Gateway{}
