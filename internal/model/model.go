// Package model defines the core domain types shared across the paper
// trading ledger. All monetary values use shopspring/decimal; never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType tags every tradeable leg. CASH is never traded directly;
// it only ever appears as the funding or settlement leg of an order.
type AssetType string

const (
	AssetStock  AssetType = "STOCK"
	AssetCrypto AssetType = "CRYPTO"
	AssetCash   AssetType = "CASH"
)

// TradeAction is the direction of an executed trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// Transaction statuses. Records are written once and never mutated.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// DefaultEndowment is the virtual cash every account starts with.
var DefaultEndowment = decimal.NewFromInt(100000)

// feeRates maps asset class to its trading fee. Crypto settlement is
// modeled as costlier than equities. Adding a new asset class is a
// table update, not a conditional rewrite.
var feeRates = map[AssetType]decimal.Decimal{
	AssetStock:  decimal.NewFromFloat(0.001), // 0.1%
	AssetCrypto: decimal.NewFromFloat(0.003), // 0.3%
}

// FeeRate returns the trading fee rate for an asset class.
// Unknown classes (including CASH) carry no fee.
func FeeRate(asset AssetType) decimal.Decimal {
	return feeRates[asset]
}

// Position is a user's current holding of one symbol/asset-class pair.
// TotalInvested is the cumulative fee-inclusive cost basis, so
// AvgPrice == TotalInvested / Quantity whenever Quantity > 0.
// The record is deleted when Quantity reaches exactly zero.
type Position struct {
	UserID        string          `json:"user_id" db:"user_id"`
	Symbol        string          `json:"symbol" db:"symbol"`
	AssetType     AssetType       `json:"asset_type" db:"asset_type"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price" db:"avg_price"`
	TotalInvested decimal.Decimal `json:"total_invested" db:"total_invested"`
	CurrentValue  decimal.Decimal `json:"current_value" db:"current_value"` // revalued on read
	PnL           decimal.Decimal `json:"pnl" db:"pnl"`
	PnLPercentage decimal.Decimal `json:"pnl_percentage" db:"pnl_percentage"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
}

// Revalue recomputes CurrentValue, PnL, and PnLPercentage against a unit
// price without touching quantity or cost basis.
func (p *Position) Revalue(price decimal.Decimal) {
	p.CurrentValue = price.Mul(p.Quantity)
	p.PnL = p.CurrentValue.Sub(p.TotalInvested)
	if p.TotalInvested.IsPositive() {
		p.PnLPercentage = p.PnL.Div(p.TotalInvested).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		p.PnLPercentage = decimal.Zero
	}
}

// AccountBalance tracks a user's virtual cash and lifetime trade stats.
// CashBalance is only decreased by a buy's fee-inclusive total cost and
// only increased by a sell's fee-net proceeds.
type AccountBalance struct {
	UserID           string          `json:"user_id" db:"user_id"`
	CashBalance      decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	TotalTrades      int             `json:"total_trades" db:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades" db:"successful_trades"`
	WinRate          decimal.Decimal `json:"win_rate" db:"win_rate"` // successful/total * 100
	TotalPnL         decimal.Decimal `json:"total_pnl" db:"total_pnl"`
	LastTradeDate    time.Time       `json:"last_trade_date" db:"last_trade_date"`
}

// NewAccountBalance returns a fresh account with the default endowment
// and zero trade history.
func NewAccountBalance(userID string) *AccountBalance {
	return &AccountBalance{
		UserID:      userID,
		CashBalance: DefaultEndowment,
	}
}

// RecomputeWinRate refreshes WinRate from the trade counters.
func (b *AccountBalance) RecomputeWinRate() {
	if b.TotalTrades == 0 {
		b.WinRate = decimal.Zero
		return
	}
	b.WinRate = decimal.NewFromInt(int64(b.SuccessfulTrades)).
		Div(decimal.NewFromInt(int64(b.TotalTrades))).
		Mul(decimal.NewFromInt(100)).Round(2)
}

// TransactionRecord is an immutable record of one executed trade.
// Once created, these are never modified or deleted.
// Total is fee-inclusive for buys and fee-net for sells.
type TransactionRecord struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	AssetType AssetType       `json:"asset_type" db:"asset_type"`
	Action    TradeAction     `json:"action" db:"action"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"` // unit price at fill
	Total     decimal.Decimal `json:"total" db:"total"`
	Fee       decimal.Decimal `json:"fee" db:"fee"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Status    string          `json:"status" db:"status"`
}

// Holding is one revalued position inside a portfolio summary.
type Holding struct {
	Symbol        string          `json:"symbol"`
	AssetType     AssetType       `json:"asset_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	PnL           decimal.Decimal `json:"pnl"`
	PnLPercentage decimal.Decimal `json:"pnl_percentage"`
}

// PortfolioSummary aggregates all of a user's holdings revalued at
// current prices, plus cash and lifetime trade stats.
type PortfolioSummary struct {
	UserID           string          `json:"user_id"`
	Holdings         []Holding       `json:"holdings"`
	TotalValue       decimal.Decimal `json:"total_value"` // positions + cash
	TotalInvested    decimal.Decimal `json:"total_invested"`
	TotalPnL         decimal.Decimal `json:"total_pnl"` // unrealized, across holdings
	TotalPnLPercent  decimal.Decimal `json:"total_pnl_percent"`
	CashBalance      decimal.Decimal `json:"cash_balance"`
	TotalTrades      int             `json:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades"`
	WinRate          decimal.Decimal `json:"win_rate"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
}
