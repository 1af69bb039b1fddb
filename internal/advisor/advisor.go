// Package advisor turns free-form natural-language trade requests into
// strictly validated, executable orders. A language model proposes the
// orders; everything it returns is normalized, backfilled from the
// user's actual holdings, rounded, and filtered through the canonical
// order validator before anything reaches the execution pipeline.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/contextcache"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/metrics"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/order"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/pricing"
)

// Proposal is a validated candidate set of orders awaiting user
// confirmation. Note carries the model's commentary plus an
// explanation for any request that had to be dropped.
type Proposal struct {
	Orders []order.Order `json:"orders"`
	Note   string        `json:"note,omitempty"`
}

// PriceContext maps "ASSET:SYMBOL" to a current unit price. It is both
// rendered into the model prompt and used to estimate the cash leg of
// backfilled sells.
type PriceContext map[string]decimal.Decimal

// Key builds a PriceContext key.
func (PriceContext) Key(symbol string, asset model.AssetType) string {
	return string(asset) + ":" + symbol
}

const systemInstruction = `You are a trading assistant for a paper trading platform. ` +
	`Convert the user's request into orders and respond with ONLY a JSON object, no other text:
{"orders": [{"side": "BUY"|"SELL", "from": {"type": "STOCK"|"CRYPTO"|"CASH", "symbol": "...", "amount": number}, "to": {...}}], "note": "optional short comment"}

Rules:
- Exactly one leg of every order is {"type": "CASH", "symbol": "USD"}.
- BUY: from is the CASH leg (USD to spend), to is the asset and quantity to receive.
- SELL: from is the asset and quantity to sell, to is the CASH leg (USD to receive).
- Never propose asset-to-asset or cash-to-cash orders; there are no direct swaps.
- Use the provided holdings and prices for quantities. If the user sells a holding without a number, set the asset amount to 0 and it will be filled from their position.
- If the request is not a trade, return {"orders": []} with a note explaining why.`

// Service generates trade proposals.
type Service struct {
	completer Completer
	cache     contextcache.Cache
	oracle    pricing.Oracle
}

// NewService creates an advisor backed by a completion service, the
// user-context cache, and the price oracle.
func NewService(completer Completer, cache contextcache.Cache, oracle pricing.Oracle) *Service {
	return &Service{completer: completer, cache: cache, oracle: oracle}
}

// llmResponse is the shape we attempt to parse from the model output.
type llmResponse struct {
	Orders []order.Order `json:"orders"`
	Note   string        `json:"note"`
}

// DecideTrades converts a user message into a validated proposal.
// Returns (nil, nil) when there is no actionable trade: an unparsable
// completion, an empty order list, or nothing surviving validation.
// The model's output is adversarial input; only orders that pass the
// canonical-shape validator make it into the proposal.
func (s *Service) DecideTrades(ctx context.Context, userMessage, userContext string, prices PriceContext) (*Proposal, error) {
	prompt := buildPrompt(userMessage, userContext, prices)

	raw, err := s.completer.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		metrics.ProposalsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("completion: %w", err)
	}

	parsed, ok := parseResponse(raw)
	if !ok {
		metrics.ProposalsTotal.WithLabelValues("malformed").Inc()
		slog.Warn("unparsable completion", "raw_len", len(raw))
		return nil, nil
	}

	snapshot, snapErr := contextcache.ParseSnapshot(userContext)
	if snapErr != nil {
		// Backfill is best-effort; orders with explicit amounts still work.
		slog.Warn("no structured holdings in context", "err", snapErr)
	}

	fraction := sellFraction(userMessage)

	var kept []order.Order
	dropped := 0
	for _, o := range parsed.Orders {
		o = order.Normalize(o)

		if o.Side == order.SideSell && snapshot != nil && !o.From.Amount.IsPositive() {
			o = backfillSell(o, snapshot, fraction, prices)
		}

		o = order.Round(o)
		if !order.IsValid(o) {
			metrics.OrdersRejected.Inc()
			dropped++
			continue
		}
		kept = append(kept, o)
	}

	note := parsed.Note
	if dropped > 0 {
		omitted := fmt.Sprintf("%d of your requests could not be converted into a supported trade and was omitted.", dropped)
		if dropped > 1 {
			omitted = fmt.Sprintf("%d of your requests could not be converted into supported trades and were omitted.", dropped)
		}
		if note != "" {
			note += " "
		}
		note += omitted
	}

	if len(kept) == 0 {
		metrics.ProposalsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	metrics.ProposalsTotal.WithLabelValues("proposed").Inc()
	return &Proposal{Orders: kept, Note: note}, nil
}

func buildPrompt(userMessage, userContext string, prices PriceContext) string {
	var b strings.Builder
	b.WriteString("Current portfolio:\n")
	b.WriteString(userContext)

	if len(prices) > 0 {
		b.WriteString("\nCurrent prices (USD):\n")
		data, _ := json.Marshal(prices)
		b.Write(data)
		b.WriteString("\n")
	}

	b.WriteString("\nUser request: ")
	b.WriteString(userMessage)
	return b.String()
}

// parseResponse extracts the first JSON object from the completion.
// Models habitually wrap JSON in markdown fences or prose, so we take
// the substring between the first '{' and the last '}'.
func parseResponse(raw string) (*llmResponse, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// backfillSell substitutes the held quantity (scaled by the fraction
// inferred from the message) for a sell order whose asset amount is
// missing or non-positive, and estimates the cash leg from the price
// context. Supports phrasing like "sell my NVDA" or "sell half my NVDA".
func backfillSell(o order.Order, snapshot *contextcache.Snapshot, fraction decimal.Decimal, prices PriceContext) order.Order {
	held := snapshot.HeldQuantity(o.From.Symbol, o.From.Type)
	if !held.IsPositive() {
		return o
	}

	o.From.Amount = held.Mul(fraction)

	if !o.To.Amount.IsPositive() {
		if price, ok := prices[prices.Key(o.From.Symbol, o.From.Type)]; ok {
			o.To.Amount = price.Mul(o.From.Amount)
		}
	}
	return o
}

var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// sellFraction infers what share of a holding the user wants to sell
// from the wording of the message. Defaults to the whole position.
func sellFraction(message string) decimal.Decimal {
	msg := strings.ToLower(message)

	if m := percentRe.FindStringSubmatch(msg); m != nil {
		if pct, err := decimal.NewFromString(m[1]); err == nil && pct.IsPositive() {
			frac := pct.Div(decimal.NewFromInt(100))
			if frac.LessThanOrEqual(decimal.NewFromInt(1)) {
				return frac
			}
		}
	}

	switch {
	case strings.Contains(msg, "half"):
		return decimal.NewFromFloat(0.5)
	case strings.Contains(msg, "third"):
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	case strings.Contains(msg, "quarter"):
		return decimal.NewFromFloat(0.25)
	default:
		return decimal.NewFromInt(1)
	}
}
