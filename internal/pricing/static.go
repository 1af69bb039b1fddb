package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// StaticOracle serves fixed prices from a map. Used in tests and
// development; symbols without an entry report ErrUnavailable.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticOracle creates an empty static oracle.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[string]decimal.Decimal)}
}

// Set pins the price for a symbol.
func (o *StaticOracle) Set(symbol string, asset model.AssetType, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[priceKey(symbol, asset)] = price
}

// Unset removes a symbol so lookups report ErrUnavailable.
func (o *StaticOracle) Unset(symbol string, asset model.AssetType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, priceKey(symbol, asset))
}

func (o *StaticOracle) GetPrice(_ context.Context, symbol string, asset model.AssetType) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.prices[priceKey(symbol, asset)]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}
	return price, nil
}

func priceKey(symbol string, asset model.AssetType) string {
	return string(asset) + ":" + symbol
}
