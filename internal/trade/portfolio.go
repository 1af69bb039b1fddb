package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/store"
)

// Summary revalues all of a user's positions at current oracle prices
// and returns the aggregate portfolio view. Read-only: a missing
// balance yields a full-endowment default without writing anything,
// and a symbol with no available price falls back to its stored
// average price instead of failing the whole summary.
func (s *Service) Summary(ctx context.Context, userID string) (*model.PortfolioSummary, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		balance = model.NewAccountBalance(userID)
	} else if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}

	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	summary := &model.PortfolioSummary{
		UserID:           userID,
		Holdings:         make([]model.Holding, 0, len(positions)),
		CashBalance:      balance.CashBalance,
		TotalTrades:      balance.TotalTrades,
		SuccessfulTrades: balance.SuccessfulTrades,
		WinRate:          balance.WinRate,
		RealizedPnL:      balance.TotalPnL,
	}

	for _, pos := range positions {
		price, err := s.oracle.GetPrice(ctx, pos.Symbol, pos.AssetType)
		if err != nil {
			// Partial degradation: value the holding at its own average
			// price rather than dropping the summary.
			slog.Warn("price unavailable, using avg price", "symbol", pos.Symbol, "err", err)
			price = pos.AvgPrice
		}
		pos.Revalue(price)

		summary.Holdings = append(summary.Holdings, model.Holding{
			Symbol:        pos.Symbol,
			AssetType:     pos.AssetType,
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			CurrentPrice:  price,
			CurrentValue:  pos.CurrentValue,
			TotalInvested: pos.TotalInvested,
			PnL:           pos.PnL,
			PnLPercentage: pos.PnLPercentage,
		})

		summary.TotalInvested = summary.TotalInvested.Add(pos.TotalInvested)
		summary.TotalPnL = summary.TotalPnL.Add(pos.PnL)
		summary.TotalValue = summary.TotalValue.Add(pos.CurrentValue)
	}

	summary.TotalValue = summary.TotalValue.Add(balance.CashBalance)
	if summary.TotalInvested.IsPositive() {
		summary.TotalPnLPercent = summary.TotalPnL.Div(summary.TotalInvested).
			Mul(decimal.NewFromInt(100)).Round(2)
	}

	return summary, nil
}
