package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	httpSwagger "github.com/swaggo/http-swagger"

	modelledger "modelmarket/contexts/marketplace/model-ledger"
	ledgererrors "modelmarket/contexts/marketplace/model-ledger/domain/errors"
	ledgerhttp "modelmarket/contexts/marketplace/model-ledger/transport/http"
	_ "modelmarket/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ledger modelledger.Module
}

func New(ledger modelledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/market/v1/models", s.handleListModel)
	s.mux.HandleFunc("GET /api/market/v1/models", s.handleListModels)
	s.mux.HandleFunc("GET /api/market/v1/models/{model_id}", s.handleGetModel)
	s.mux.HandleFunc("POST /api/market/v1/models/{model_id}/purchase", s.handlePurchaseModel)
	s.mux.HandleFunc("POST /api/market/v1/models/{model_id}/rating", s.handleRateModel)
	s.mux.HandleFunc("GET /api/market/v1/treasury/balance", s.handleTreasuryBalance)
	s.mux.HandleFunc("POST /api/market/v1/treasury/withdraw", s.handleWithdrawFunds)
}

func (s *Server) handleListModel(w http.ResponseWriter, r *http.Request) {
	creatorID := r.Header.Get("X-User-Id")
	if creatorID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ledgerhttp.ListModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ledger.Handler.ListModelHandler(r.Context(), creatorID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListModelsHandler(r.Context())
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	resp, err := s.ledger.Handler.GetModelHandler(r.Context(), modelID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePurchaseModel(w http.ResponseWriter, r *http.Request) {
	buyerID := r.Header.Get("X-User-Id")
	if buyerID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	var req ledgerhttp.PurchaseModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ledger.Handler.PurchaseModelHandler(
		r.Context(),
		buyerID,
		modelID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRateModel(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	var req ledgerhttp.RateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ledger.Handler.RateModelHandler(r.Context(), callerID, modelID, req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.ledger.Handler.TreasuryBalanceHandler(r.Context(), callerID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawFunds(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get("X-User-Id")
	if callerID == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.ledger.Handler.WithdrawFundsHandler(r.Context(), callerID)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseModelID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("model_id")
	modelID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_model_id", "model_id must be a non-negative integer")
		return 0, false
	}
	return modelID, true
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrModelNotFound):
		writeLedgerError(w, http.StatusNotFound, "model_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrInsufficientPayment):
		writeLedgerError(w, http.StatusPaymentRequired, "insufficient_payment", err.Error())
	case errors.Is(err, ledgererrors.ErrModelAlreadySold):
		writeLedgerError(w, http.StatusConflict, "model_already_sold", err.Error())
	case errors.Is(err, ledgererrors.ErrModelAlreadyRated):
		writeLedgerError(w, http.StatusConflict, "model_already_rated", err.Error())
	case errors.Is(err, ledgererrors.ErrIdempotencyKeyConflict):
		writeLedgerError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, ledgererrors.ErrOnlyBuyerCanRate):
		writeLedgerError(w, http.StatusForbidden, "only_buyers_can_rate", err.Error())
	case errors.Is(err, ledgererrors.ErrNotOperator):
		writeLedgerError(w, http.StatusForbidden, "not_operator", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidRating):
		writeLedgerError(w, http.StatusUnprocessableEntity, "invalid_rating", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidPrice),
		errors.Is(err, ledgererrors.ErrInvalidListing):
		writeLedgerError(w, http.StatusBadRequest, "invalid_listing", err.Error())
	case errors.Is(err, ledgererrors.ErrPayoutFailed):
		writeLedgerError(w, http.StatusBadGateway, "payout_failed", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
