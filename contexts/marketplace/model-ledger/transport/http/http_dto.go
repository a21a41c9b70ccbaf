package http

// ModelDTO is the wire shape of a listing snapshot.
type ModelDTO struct {
	ModelID     uint64 `json:"model_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	CreatorID   string `json:"creator_id"`
	BuyerID     string `json:"buyer_id,omitempty"`
	Sold        bool   `json:"sold"`
	AvgRating   int64  `json:"avg_rating"`
	RatingCount int64  `json:"rating_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ListModelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

type ListModelResponse struct {
	Status string `json:"status"`
	Data   struct {
		Model ModelDTO `json:"model"`
	} `json:"data"`
}

type PurchaseModelRequest struct {
	PaymentCents int64 `json:"payment_cents"`
}

type PurchaseModelResponse struct {
	Status   string `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
	Data     struct {
		Model ModelDTO `json:"model"`
	} `json:"data"`
}

type RateModelRequest struct {
	Score int `json:"score"`
}

type RateModelResponse struct {
	Status string `json:"status"`
	Data   struct {
		Model ModelDTO `json:"model"`
	} `json:"data"`
}

type WithdrawFundsResponse struct {
	Status string `json:"status"`
	Data   struct {
		OperatorID  string `json:"operator_id"`
		AmountCents int64  `json:"amount_cents"`
	} `json:"data"`
}

type TreasuryBalanceResponse struct {
	Status string `json:"status"`
	Data   struct {
		BalanceCents int64 `json:"balance_cents"`
	} `json:"data"`
}

type GetModelResponse struct {
	Status string `json:"status"`
	Data   struct {
		Model ModelDTO `json:"model"`
	} `json:"data"`
}

type ListModelsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Models []ModelDTO `json:"models"`
	} `json:"data"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
