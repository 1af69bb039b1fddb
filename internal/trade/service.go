// Package trade implements the paper trading engine: buy/sell execution
// with cost-basis and fee accounting, portfolio aggregation, and batch
// order execution for AI-proposed trades.
//
// All monetary values use shopspring/decimal; never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/metrics"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/pricing"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/store"
)

var (
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("trade: quantity must be positive")

	// ErrInsufficientBalance is returned when cash cannot cover a buy's
	// fee-inclusive total cost. No mutation occurs.
	ErrInsufficientBalance = errors.New("trade: insufficient cash balance")

	// ErrInsufficientPosition is returned when a sell exceeds the held
	// quantity or no position exists. No mutation occurs.
	ErrInsufficientPosition = errors.New("trade: insufficient position")

	// ErrUnsupportedAsset is returned for asset classes that cannot be
	// traded directly (anything but STOCK and CRYPTO).
	ErrUnsupportedAsset = errors.New("trade: unsupported asset type")
)

// RefreshFunc is called after a fully successful order batch so the
// advisor's cached view of holdings is recomputed.
type RefreshFunc func(ctx context.Context, userID string) error

// Service executes paper trades against the ledger store. Trades for
// one user are serialized through a per-user mutex: a trade mutates
// both the position and the shared cash balance, so the whole
// read-modify-write must not interleave. Reads take no user lock.
type Service struct {
	store   store.Store
	oracle  pricing.Oracle
	wsHub   *WSHub      // optional, nil disables broadcasting
	refresh RefreshFunc // optional context-cache hook

	mu    sync.Mutex
	locks map[string]*sync.Mutex // userID → trade lock
}

// NewService creates a new trade service. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, oracle pricing.Oracle, hub *WSHub) *Service {
	return &Service{
		store:  st,
		oracle: oracle,
		wsHub:  hub,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetRefreshHook installs the context-cache refresh callback.
func (s *Service) SetRefreshHook(fn RefreshFunc) { s.refresh = fn }

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Buy purchases quantity units of symbol at the current oracle price.
// The fee-inclusive total cost is drawn from the cash balance and added
// to the position's cost basis. Fails with no mutation on an
// unavailable price or insufficient cash.
func (s *Service) Buy(ctx context.Context, userID, symbol string, asset model.AssetType, quantity decimal.Decimal) (*model.TransactionRecord, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if asset != model.AssetStock && asset != model.AssetCrypto {
		return nil, ErrUnsupportedAsset
	}

	start := time.Now()
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	price, err := s.oracle.GetPrice(ctx, symbol, asset)
	if err != nil {
		metrics.TradesTotal.WithLabelValues(string(model.ActionBuy), "rejected").Inc()
		return nil, fmt.Errorf("buy %s: %w", symbol, err)
	}

	balance, err := s.loadOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	cost := price.Mul(quantity)
	fee := cost.Mul(model.FeeRate(asset)).Round(2)
	totalCost := cost.Add(fee)

	if balance.CashBalance.LessThan(totalCost) {
		metrics.TradesTotal.WithLabelValues(string(model.ActionBuy), "rejected").Inc()
		return nil, fmt.Errorf("buy %s for %s: %w", symbol, totalCost, ErrInsufficientBalance)
	}

	now := time.Now().UTC()

	pos, err := s.store.GetPosition(ctx, userID, symbol, asset)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Cost basis is fee-inclusive, so the entry average sits slightly
		// above the fill price.
		pos = &model.Position{
			UserID:        userID,
			Symbol:        symbol,
			AssetType:     asset,
			Quantity:      quantity,
			AvgPrice:      totalCost.Div(quantity),
			TotalInvested: totalCost,
		}
	case err != nil:
		return nil, fmt.Errorf("load position: %w", err)
	default:
		newQuantity := pos.Quantity.Add(quantity)
		newInvested := pos.TotalInvested.Add(totalCost)
		pos.Quantity = newQuantity
		pos.TotalInvested = newInvested
		pos.AvgPrice = newInvested.Div(newQuantity)
	}
	pos.Revalue(price)
	pos.LastUpdated = now

	balance.CashBalance = balance.CashBalance.Sub(totalCost)
	balance.TotalTrades++
	balance.RecomputeWinRate()
	balance.LastTradeDate = now

	record := &model.TransactionRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		AssetType: asset,
		Action:    model.ActionBuy,
		Quantity:  quantity,
		Price:     price,
		Total:     totalCost,
		Fee:       fee,
		Timestamp: now,
		Status:    model.StatusCompleted,
	}

	if err := s.persistTrade(ctx, pos, false, balance, record); err != nil {
		metrics.TradesTotal.WithLabelValues(string(model.ActionBuy), "error").Inc()
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(string(model.ActionBuy), "completed").Inc()
	metrics.TradeLatency.WithLabelValues(string(model.ActionBuy)).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"user", userID,
		"action", "BUY",
		"symbol", symbol,
		"asset", asset,
		"qty", quantity.String(),
		"price", price.String(),
		"total", totalCost.String(),
		"fee", fee.String(),
	)

	s.broadcast(record)
	return record, nil
}

// Sell liquidates quantity units of an existing position at the current
// oracle price. Proceeds are fee-net; realized profit compares proceeds
// against the pre-fee average cost. A full liquidation deletes the
// position; a partial sale reduces the cost basis pro-rata so the
// average price is unchanged.
func (s *Service) Sell(ctx context.Context, userID, symbol string, asset model.AssetType, quantity decimal.Decimal) (*model.TransactionRecord, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if asset != model.AssetStock && asset != model.AssetCrypto {
		return nil, ErrUnsupportedAsset
	}

	start := time.Now()
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	pos, err := s.store.GetPosition(ctx, userID, symbol, asset)
	if errors.Is(err, store.ErrNotFound) {
		metrics.TradesTotal.WithLabelValues(string(model.ActionSell), "rejected").Inc()
		return nil, fmt.Errorf("sell %s: no position: %w", symbol, ErrInsufficientPosition)
	}
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	if quantity.GreaterThan(pos.Quantity) {
		metrics.TradesTotal.WithLabelValues(string(model.ActionSell), "rejected").Inc()
		return nil, fmt.Errorf("sell %s of %s held: %w", quantity, pos.Quantity, ErrInsufficientPosition)
	}

	price, err := s.oracle.GetPrice(ctx, symbol, asset)
	if err != nil {
		metrics.TradesTotal.WithLabelValues(string(model.ActionSell), "rejected").Inc()
		return nil, fmt.Errorf("sell %s: %w", symbol, err)
	}

	balance, err := s.loadOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalValue := price.Mul(quantity)
	fee := totalValue.Mul(model.FeeRate(asset)).Round(2)
	proceeds := totalValue.Sub(fee)

	// Realized profit compares against the pre-fee average price; the
	// buy-side fee already inflated the basis. Observed product
	// behavior, kept as is.
	profit := proceeds.Sub(pos.AvgPrice.Mul(quantity))

	now := time.Now().UTC()

	balance.CashBalance = balance.CashBalance.Add(proceeds)
	balance.TotalTrades++
	if profit.IsPositive() {
		balance.SuccessfulTrades++
	}
	balance.RecomputeWinRate()
	balance.TotalPnL = balance.TotalPnL.Add(profit)
	balance.LastTradeDate = now

	liquidated := quantity.Equal(pos.Quantity)
	if liquidated {
		pos.Quantity = decimal.Zero
	} else {
		remainingQty := pos.Quantity.Sub(quantity)
		// Pro-rata reduction preserves the average price across
		// partial sells.
		pos.TotalInvested = pos.TotalInvested.Mul(remainingQty).Div(pos.Quantity)
		pos.Quantity = remainingQty
		pos.Revalue(price)
		pos.LastUpdated = now
	}

	record := &model.TransactionRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		AssetType: asset,
		Action:    model.ActionSell,
		Quantity:  quantity,
		Price:     price,
		Total:     proceeds,
		Fee:       fee,
		Timestamp: now,
		Status:    model.StatusCompleted,
	}

	if err := s.persistTrade(ctx, pos, liquidated, balance, record); err != nil {
		metrics.TradesTotal.WithLabelValues(string(model.ActionSell), "error").Inc()
		return nil, err
	}

	metrics.TradesTotal.WithLabelValues(string(model.ActionSell), "completed").Inc()
	metrics.TradeLatency.WithLabelValues(string(model.ActionSell)).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"user", userID,
		"action", "SELL",
		"symbol", symbol,
		"asset", asset,
		"qty", quantity.String(),
		"price", price.String(),
		"proceeds", proceeds.String(),
		"fee", fee.String(),
		"profit", profit.String(),
	)

	s.broadcast(record)
	return record, nil
}

// loadOrCreateBalance fetches the user's balance, seeding a fresh
// account with the default endowment before the first trade.
func (s *Service) loadOrCreateBalance(ctx context.Context, userID string) (*model.AccountBalance, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		balance = model.NewAccountBalance(userID)
		if err := s.store.UpsertBalance(ctx, balance); err != nil {
			return nil, fmt.Errorf("seed balance: %w", err)
		}
		return balance, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return balance, nil
}

// persistTrade writes the position, balance, and transaction record.
// The store gives no cross-entity transaction, so a failure partway
// can leave the entities inconsistent; the transaction record is still
// appended (with FAILED status) so the attempt is auditable.
func (s *Service) persistTrade(ctx context.Context, pos *model.Position, deletePos bool, balance *model.AccountBalance, record *model.TransactionRecord) error {
	var posErr error
	if deletePos {
		posErr = s.store.DeletePosition(ctx, pos.UserID, pos.Symbol, pos.AssetType)
	} else {
		posErr = s.store.UpsertPosition(ctx, pos)
	}

	var balErr error
	if posErr == nil {
		balErr = s.store.UpsertBalance(ctx, balance)
	}

	if posErr != nil || balErr != nil {
		record.Status = model.StatusFailed
		if txErr := s.store.InsertTransaction(ctx, record); txErr != nil {
			slog.Error("failed to record failed trade", "user", record.UserID, "err", txErr)
		}
		err := posErr
		if err == nil {
			err = balErr
		}
		slog.Error("trade persistence failed", "user", record.UserID, "symbol", record.Symbol, "err", err)
		return fmt.Errorf("persist trade: %w", err)
	}

	if err := s.store.InsertTransaction(ctx, record); err != nil {
		// Position and balance already moved; the ledger entry is the
		// only missing piece. Surface it, the caller must reconcile.
		slog.Error("transaction record write failed", "user", record.UserID, "err", err)
		return fmt.Errorf("record trade: %w", err)
	}
	return nil
}

func (s *Service) broadcast(r *model.TransactionRecord) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Broadcast(WSMessage{
		Type:      "trade_executed",
		UserID:    r.UserID,
		Symbol:    r.Symbol,
		AssetType: string(r.AssetType),
		Action:    string(r.Action),
		Quantity:  r.Quantity.String(),
		Price:     r.Price.String(),
		Total:     r.Total.String(),
	})
}
