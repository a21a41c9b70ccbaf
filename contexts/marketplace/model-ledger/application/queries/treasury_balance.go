package queries

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type TreasuryBalanceUseCase struct {
	Treasury   ports.TreasuryRepository
	OperatorID string
	Logger     *slog.Logger
}

// Execute returns the custody balance. Only the operator may inspect it.
func (u TreasuryBalanceUseCase) Execute(ctx context.Context, callerID string) (int64, error) {
	if strings.TrimSpace(callerID) == "" || callerID != u.OperatorID {
		return 0, domainerrors.ErrNotOperator
	}
	return u.Treasury.CustodyBalance(ctx)
}
