// Package contextcache maintains per-user portfolio snapshots consumed
// by the AI advisor. Each snapshot is a short textual summary with an
// embedded structured JSON block; the advisor parses the block for
// exact held quantities when it needs to backfill sell amounts.
package contextcache

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// Summarizer produces the portfolio view a snapshot is built from.
// Satisfied by *trade.Service.
type Summarizer interface {
	Summary(ctx context.Context, userID string) (*model.PortfolioSummary, error)
}

// Cache recomputes and serves user context snapshots.
type Cache interface {
	// Refresh recomputes and stores the snapshot for a user.
	Refresh(ctx context.Context, userID string) error

	// Get returns the latest snapshot, rebuilding it on a miss.
	Get(ctx context.Context, userID string) (string, error)
}

// SnapshotHolding is one holding inside the structured snapshot block.
type SnapshotHolding struct {
	Symbol    string          `json:"symbol"`
	AssetType model.AssetType `json:"asset_type"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
}

// Snapshot is the structured JSON block embedded in every user context.
type Snapshot struct {
	CashBalance decimal.Decimal   `json:"cash_balance"`
	Holdings    []SnapshotHolding `json:"holdings"`
}

var snapshotBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// BuildSnapshot renders a portfolio summary into the snapshot text.
func BuildSnapshot(s *model.PortfolioSummary) (string, error) {
	snap := Snapshot{
		CashBalance: s.CashBalance,
		Holdings:    make([]SnapshotHolding, 0, len(s.Holdings)),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cash balance: $%s\n", s.CashBalance.StringFixed(2))
	if len(s.Holdings) == 0 {
		b.WriteString("No open positions.\n")
	}
	for _, h := range s.Holdings {
		fmt.Fprintf(&b, "%s (%s): %s units, avg price $%s, current value $%s\n",
			h.Symbol, h.AssetType, h.Quantity, h.AvgPrice.StringFixed(2), h.CurrentValue.StringFixed(2))
		snap.Holdings = append(snap.Holdings, SnapshotHolding{
			Symbol:    h.Symbol,
			AssetType: h.AssetType,
			Quantity:  h.Quantity,
			AvgPrice:  h.AvgPrice,
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	fmt.Fprintf(&b, "\n```json\n%s\n```\n", data)

	return b.String(), nil
}

// ParseSnapshot extracts the structured block from a snapshot text.
func ParseSnapshot(text string) (*Snapshot, error) {
	m := snapshotBlockRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("no structured block in context")
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(m[1]), &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot block: %w", err)
	}
	return &snap, nil
}

// HeldQuantity returns the held quantity for a symbol/asset pair, or
// zero if the snapshot has no such holding.
func (s *Snapshot) HeldQuantity(symbol string, asset model.AssetType) decimal.Decimal {
	for _, h := range s.Holdings {
		if h.Symbol == symbol && h.AssetType == asset {
			return h.Quantity
		}
	}
	return decimal.Zero
}
