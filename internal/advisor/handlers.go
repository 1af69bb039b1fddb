package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/contextcache"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// ProposeRequest is the JSON body for POST /api/v1/advisor/propose.
type ProposeRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ProposeResponse wraps the proposal; Actionable is false when the
// message produced no executable trade.
type ProposeResponse struct {
	Actionable bool      `json:"actionable"`
	Proposal   *Proposal `json:"proposal,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// HandlePropose handles POST /api/v1/advisor/propose: it assembles the
// user's cached context and a price context, then asks the model for a
// candidate order set.
func (s *Service) HandlePropose(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, "user_id and message are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	userContext, err := s.cache.Get(ctx, req.UserID)
	if err != nil {
		writeError(w, "failed to load user context", http.StatusInternalServerError)
		return
	}

	prices := s.priceContext(ctx, req.Message, userContext)

	proposal, err := s.DecideTrades(ctx, req.Message, userContext, prices)
	if err != nil {
		writeError(w, "advisor unavailable", http.StatusBadGateway)
		return
	}

	resp := ProposeResponse{}
	if proposal == nil {
		resp.Message = "no actionable trade in your request"
	} else {
		resp.Actionable = true
		resp.Proposal = proposal
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

var symbolTokenRe = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// priceContext collects current prices for the user's holdings plus up
// to a handful of ticker-looking tokens in the message itself, so the
// model can size buys and we can estimate sell proceeds.
func (s *Service) priceContext(ctx context.Context, message, userContext string) PriceContext {
	prices := make(PriceContext)

	if snapshot, err := contextcache.ParseSnapshot(userContext); err == nil {
		for _, h := range snapshot.Holdings {
			if price, err := s.oracle.GetPrice(ctx, h.Symbol, h.AssetType); err == nil {
				prices[prices.Key(h.Symbol, h.AssetType)] = price
			}
		}
	}

	const maxTokens = 5
	seen := 0
	for _, token := range symbolTokenRe.FindAllString(message, -1) {
		if seen >= maxTokens {
			break
		}
		seen++
		for _, asset := range []model.AssetType{model.AssetStock, model.AssetCrypto} {
			key := prices.Key(token, asset)
			if _, ok := prices[key]; ok {
				continue
			}
			if price, err := s.oracle.GetPrice(ctx, token, asset); err == nil {
				prices[key] = price
			}
		}
	}

	return prices
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
