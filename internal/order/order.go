// Package order defines the canonical order shape produced by the AI
// advisor and consumed by the execution pipeline, together with the pure
// validation and rounding rules applied on both sides of that boundary.
//
// Every valid order has exactly one CASH/USD leg and one asset leg:
// cash funds a BUY (from) and settles a SELL (to). There is no supported
// direct asset swap in this engine.
package order

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// CashSymbol is the only symbol permitted on a CASH leg.
const CashSymbol = "USD"

// Decimal places retained per leg kind after validation.
const (
	cashPlaces   = 2
	cryptoPlaces = 8
	stockPlaces  = 4
)

// Leg is one side of an order: an asset class, a symbol, and an amount.
// For CASH legs the amount is in USD; for asset legs it is a quantity.
type Leg struct {
	Type   model.AssetType `json:"type"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// Order is an ephemeral, not-persisted instruction to trade. It is valid
// only in the canonical shape enforced by IsValid.
type Order struct {
	Side Side `json:"side"`
	From Leg  `json:"from"`
	To   Leg  `json:"to"`
}

// Asset returns the non-cash leg of the order. Only meaningful for
// orders that passed IsValid.
func (o Order) Asset() Leg {
	if o.Side == SideBuy {
		return o.To
	}
	return o.From
}

// IsValid reports whether the order has the canonical shape. It is a
// pure function applied identically at proposal-generation time and
// again at execution time; upstream producers are never trusted past
// this boundary.
func IsValid(o Order) bool {
	switch o.Side {
	case SideBuy:
		return isCashLeg(o.From) && isAssetLeg(o.To)
	case SideSell:
		return isAssetLeg(o.From) && isCashLeg(o.To)
	default:
		return false
	}
}

func isCashLeg(l Leg) bool {
	return l.Type == model.AssetCash && l.Symbol == CashSymbol
}

func isAssetLeg(l Leg) bool {
	if l.Type != model.AssetStock && l.Type != model.AssetCrypto {
		return false
	}
	if l.Symbol == "" || l.Symbol == CashSymbol {
		return false
	}
	return l.Amount.IsPositive()
}

// Normalize uppercases symbols and forces every CASH leg's symbol to
// USD. Applied before validation so that casing or a blank cash symbol
// from the proposal generator does not reject an otherwise sound order.
func Normalize(o Order) Order {
	o.Side = Side(strings.ToUpper(string(o.Side)))
	o.From = normalizeLeg(o.From)
	o.To = normalizeLeg(o.To)
	return o
}

func normalizeLeg(l Leg) Leg {
	l.Type = model.AssetType(strings.ToUpper(string(l.Type)))
	l.Symbol = strings.ToUpper(strings.TrimSpace(l.Symbol))
	if l.Type == model.AssetCash {
		l.Symbol = CashSymbol
	}
	return l
}

// Round applies the engine-wide rounding policy: cash amounts to 2
// decimals, crypto quantities to 8, stock quantities to 4.
func Round(o Order) Order {
	o.From = roundLeg(o.From)
	o.To = roundLeg(o.To)
	return o
}

func roundLeg(l Leg) Leg {
	switch l.Type {
	case model.AssetCash:
		l.Amount = l.Amount.Round(cashPlaces)
	case model.AssetCrypto:
		l.Amount = l.Amount.Round(cryptoPlaces)
	case model.AssetStock:
		l.Amount = l.Amount.Round(stockPlaces)
	}
	return l
}
