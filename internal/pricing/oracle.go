// Package pricing provides the reference-price oracle used to fill
// paper trades and revalue positions.
package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// ErrUnavailable is returned when no current price exists for a symbol.
// Trades abort before any mutation when they hit this.
var ErrUnavailable = errors.New("pricing: price unavailable")

// Oracle returns a current unit price for a symbol, or ErrUnavailable.
type Oracle interface {
	GetPrice(ctx context.Context, symbol string, asset model.AssetType) (decimal.Decimal, error)
}
