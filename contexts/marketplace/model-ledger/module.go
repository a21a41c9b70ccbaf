package modelledger

import (
	"log/slog"
	"time"

	httpadapter "modelmarket/contexts/marketplace/model-ledger/adapters/http"
	"modelmarket/contexts/marketplace/model-ledger/adapters/memory"
	"modelmarket/contexts/marketplace/model-ledger/application/commands"
	"modelmarket/contexts/marketplace/model-ledger/application/queries"
	"modelmarket/contexts/marketplace/model-ledger/ports"
)

// Module is the composition surface of the marketplace ledger. Runtime
// wiring consumes Handler; Store and Payout are exposed for tests/inspection
// when the in-memory bootstrap path is used.
type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	Payout  *memory.PayoutRecorder
}

type Dependencies struct {
	Models         ports.ModelRepository
	Treasury       ports.TreasuryRepository
	Idempotency    ports.IdempotencyStore
	Payout         ports.PayoutGateway
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	OperatorID     string
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// NewModule wires the ledger use-cases against explicit ports.
func NewModule(deps Dependencies) Module {
	listModel := commands.ListModelUseCase{
		Models:      deps.Models,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	purchaseModel := commands.PurchaseModelUseCase{
		Models:         deps.Models,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	rateModel := commands.RateModelUseCase{
		Models:      deps.Models,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	withdrawFunds := commands.WithdrawFundsUseCase{
		Treasury:    deps.Treasury,
		Payout:      deps.Payout,
		OperatorID:  deps.OperatorID,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}

	handler := httpadapter.Handler{
		ListModel:     listModel,
		PurchaseModel: purchaseModel,
		RateModel:     rateModel,
		WithdrawFunds: withdrawFunds,
		GetModel: queries.GetModelUseCase{
			Models: deps.Models,
			Logger: deps.Logger,
		},
		ListModels: queries.ListModelsUseCase{
			Models: deps.Models,
			Logger: deps.Logger,
		},
		TreasuryBalance: queries.TreasuryBalanceUseCase{
			Treasury:   deps.Treasury,
			OperatorID: deps.OperatorID,
			Logger:     deps.Logger,
		},
		Logger: deps.Logger,
	}

	return Module{Handler: handler}
}

// NewInMemoryModule wires the ledger against in-memory adapters. This is the
// developer/test bootstrap path; production wiring uses the Postgres
// repository and payout gateway adapters.
func NewInMemoryModule(operatorID string, logger *slog.Logger) Module {
	store := memory.NewStore()
	recorder := &memory.PayoutRecorder{}
	module := NewModule(Dependencies{
		Models:         store,
		Treasury:       store,
		Idempotency:    store,
		Payout:         recorder,
		Clock:          store,
		IDGenerator:    store,
		OperatorID:     operatorID,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	module.Payout = recorder
	return module
}
