package trade

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/order"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/pricing"
)

// TradeRequest is the JSON body for POST /api/v1/trade.
type TradeRequest struct {
	UserID    string            `json:"user_id"`
	Symbol    string            `json:"symbol"`
	AssetType model.AssetType   `json:"asset_type"` // STOCK or CRYPTO
	Action    model.TradeAction `json:"action"`     // BUY or SELL
	Quantity  decimal.Decimal   `json:"quantity"`
}

// ExecuteRequest is the JSON body for POST /api/v1/advisor/execute.
type ExecuteRequest struct {
	UserID string        `json:"user_id"`
	Orders []order.Order `json:"orders"`
}

// HandleTrade handles POST /api/v1/trade: a single direct buy or sell.
func (s *Service) HandleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		writeError(w, "symbol is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	var record *model.TransactionRecord
	var err error
	switch req.Action {
	case model.ActionBuy:
		record, err = s.Buy(ctx, req.UserID, req.Symbol, req.AssetType, req.Quantity)
	case model.ActionSell:
		record, err = s.Sell(ctx, req.UserID, req.Symbol, req.AssetType, req.Quantity)
	default:
		writeError(w, "action must be BUY or SELL", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err.Error(), tradeStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// HandlePortfolio handles GET /api/v1/portfolio/{userID}.
func (s *Service) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	summary, err := s.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleTransactions handles GET /api/v1/transactions/{userID}?limit=N.
func (s *Service) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.TransactionRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleExecute handles POST /api/v1/advisor/execute: a confirmed
// proposal batch.
func (s *Service) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	result, err := s.ExecuteOrders(r.Context(), req.UserID, req.Orders)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// tradeStatus maps domain errors to HTTP status codes.
func tradeStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnsupportedAsset):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrInsufficientPosition):
		return http.StatusConflict
	case errors.Is(err, pricing.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
