package memory

import (
	"context"
	"sync"

	"modelmarket/contexts/marketplace/model-ledger/ports"
)

type PayoutTransfer struct {
	OperatorID  string
	AmountCents int64
}

// PayoutRecorder is the in-memory payout gateway. Tests inject FailWith to
// exercise the withdrawal rollback path.
type PayoutRecorder struct {
	mu        sync.Mutex
	FailWith  error
	transfers []PayoutTransfer
}

func (p *PayoutRecorder) Transfer(ctx context.Context, operatorID string, amountCents int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailWith != nil {
		return p.FailWith
	}
	p.transfers = append(p.transfers, PayoutTransfer{
		OperatorID:  operatorID,
		AmountCents: amountCents,
	})
	return nil
}

// Transfers returns a copy of the completed transfer log.
func (p *PayoutRecorder) Transfers() []PayoutTransfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PayoutTransfer(nil), p.transfers...)
}

var _ ports.PayoutGateway = (*PayoutRecorder)(nil)
