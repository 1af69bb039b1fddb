package trade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/metrics"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/order"
)

// BatchResult reports the outcome of executing one proposal batch.
type BatchResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Executed int    `json:"executed"`
}

// ExecuteOrders re-validates and sequentially executes a batch of
// orders. Every order is checked against the canonical shape before
// anything runs: the proposal may have been tampered with or replayed
// since generation, so validation at this boundary is independent of
// whatever happened upstream. Execution stops at the first failing
// order; earlier fills are not rolled back, and the result names the
// failing order so the caller can reconcile.
func (s *Service) ExecuteOrders(ctx context.Context, userID string, orders []order.Order) (*BatchResult, error) {
	if len(orders) == 0 {
		return &BatchResult{Success: false, Message: "no orders to execute"}, nil
	}

	for i, o := range orders {
		if !order.IsValid(o) {
			metrics.OrdersRejected.Inc()
			metrics.BatchExecutions.WithLabelValues("rejected").Inc()
			return &BatchResult{
				Success: false,
				Message: fmt.Sprintf("order %d is not a valid trade", i+1),
			}, nil
		}
	}

	for i, o := range orders {
		asset := o.Asset()

		var err error
		switch o.Side {
		case order.SideBuy:
			_, err = s.Buy(ctx, userID, asset.Symbol, asset.Type, asset.Amount)
		case order.SideSell:
			_, err = s.Sell(ctx, userID, asset.Symbol, asset.Type, asset.Amount)
		}
		if err != nil {
			metrics.BatchExecutions.WithLabelValues("failed").Inc()
			slog.Warn("batch execution stopped",
				"user", userID, "order", i+1, "symbol", asset.Symbol, "err", err)
			return &BatchResult{
				Success:  false,
				Message:  fmt.Sprintf("order %d (%s %s) failed: %v", i+1, o.Side, asset.Symbol, err),
				Executed: i,
			}, nil
		}
	}

	// All fills landed; let the advisor's cached context catch up.
	if s.refresh != nil {
		if err := s.refresh(ctx, userID); err != nil {
			slog.Warn("context refresh failed", "user", userID, "err", err)
		}
	}

	metrics.BatchExecutions.WithLabelValues("completed").Inc()
	return &BatchResult{
		Success:  true,
		Message:  fmt.Sprintf("executed %d order(s)", len(orders)),
		Executed: len(orders),
	}, nil
}
