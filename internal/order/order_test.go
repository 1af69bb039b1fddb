package order_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/order"
)

func leg(t model.AssetType, symbol string, amount float64) order.Leg {
	return order.Leg{Type: t, Symbol: symbol, Amount: decimal.NewFromFloat(amount)}
}

func TestIsValid_CanonicalShapes(t *testing.T) {
	validBuy := order.Order{
		Side: order.SideBuy,
		From: leg(model.AssetCash, "USD", 1000),
		To:   leg(model.AssetStock, "AAPL", 10),
	}
	require.True(t, order.IsValid(validBuy))

	validSell := order.Order{
		Side: order.SideSell,
		From: leg(model.AssetCrypto, "BTC", 0.5),
		To:   leg(model.AssetCash, "USD", 30000),
	}
	require.True(t, order.IsValid(validSell))
}

func TestIsValid_RejectsNonCanonicalShapes(t *testing.T) {
	cases := map[string]order.Order{
		"asset to asset swap": {
			Side: order.SideBuy,
			From: leg(model.AssetCrypto, "BTC", 1),
			To:   leg(model.AssetCrypto, "ETH", 10),
		},
		"stock to crypto swap": {
			Side: order.SideSell,
			From: leg(model.AssetStock, "AAPL", 5),
			To:   leg(model.AssetCrypto, "BTC", 0.1),
		},
		"cash to cash": {
			Side: order.SideBuy,
			From: leg(model.AssetCash, "USD", 100),
			To:   leg(model.AssetCash, "USD", 100),
		},
		"buy with reversed legs": {
			Side: order.SideBuy,
			From: leg(model.AssetStock, "AAPL", 10),
			To:   leg(model.AssetCash, "USD", 1000),
		},
		"sell with reversed legs": {
			Side: order.SideSell,
			From: leg(model.AssetCash, "USD", 1000),
			To:   leg(model.AssetStock, "AAPL", 10),
		},
		"buy zero quantity": {
			Side: order.SideBuy,
			From: leg(model.AssetCash, "USD", 1000),
			To:   leg(model.AssetStock, "AAPL", 0),
		},
		"sell negative quantity": {
			Side: order.SideSell,
			From: leg(model.AssetStock, "AAPL", -3),
			To:   leg(model.AssetCash, "USD", 300),
		},
		"cash leg with wrong symbol": {
			Side: order.SideBuy,
			From: leg(model.AssetCash, "EUR", 1000),
			To:   leg(model.AssetStock, "AAPL", 10),
		},
		"asset leg claiming USD": {
			Side: order.SideBuy,
			From: leg(model.AssetCash, "USD", 1000),
			To:   leg(model.AssetStock, "USD", 10),
		},
		"asset leg with empty symbol": {
			Side: order.SideSell,
			From: leg(model.AssetCrypto, "", 1),
			To:   leg(model.AssetCash, "USD", 100),
		},
		"unknown side": {
			Side: "SWAP",
			From: leg(model.AssetCash, "USD", 1000),
			To:   leg(model.AssetStock, "AAPL", 10),
		},
	}

	for name, o := range cases {
		require.False(t, order.IsValid(o), "case %q must be rejected", name)
	}
}

func TestNormalize(t *testing.T) {
	o := order.Order{
		Side: "buy",
		From: order.Leg{Type: "cash", Symbol: "", Amount: decimal.NewFromInt(100)},
		To:   order.Leg{Type: "stock", Symbol: " aapl ", Amount: decimal.NewFromInt(1)},
	}

	n := order.Normalize(o)
	require.Equal(t, order.SideBuy, n.Side)
	require.Equal(t, model.AssetCash, n.From.Type)
	require.Equal(t, "USD", n.From.Symbol, "cash legs are forced to USD")
	require.Equal(t, "AAPL", n.To.Symbol)
	require.True(t, order.IsValid(n))
}

func TestRound_PolicyPerLegKind(t *testing.T) {
	o := order.Order{
		Side: order.SideBuy,
		From: order.Leg{Type: model.AssetCash, Symbol: "USD", Amount: decimal.RequireFromString("1000.129")},
		To:   order.Leg{Type: model.AssetCrypto, Symbol: "BTC", Amount: decimal.RequireFromString("0.123456789123")},
	}
	r := order.Round(o)
	require.True(t, r.From.Amount.Equal(decimal.RequireFromString("1000.13")), "cash rounds to 2dp, got %s", r.From.Amount)
	require.True(t, r.To.Amount.Equal(decimal.RequireFromString("0.12345679")), "crypto rounds to 8dp, got %s", r.To.Amount)

	s := order.Round(order.Order{
		Side: order.SideSell,
		From: order.Leg{Type: model.AssetStock, Symbol: "AAPL", Amount: decimal.RequireFromString("3.14159")},
		To:   order.Leg{Type: model.AssetCash, Symbol: "USD", Amount: decimal.RequireFromString("314.155")},
	})
	require.True(t, s.From.Amount.Equal(decimal.RequireFromString("3.1416")), "stock rounds to 4dp, got %s", s.From.Amount)
	require.True(t, s.To.Amount.Equal(decimal.RequireFromString("314.16")), "cash rounds to 2dp, got %s", s.To.Amount)
}

func TestAsset_ReturnsNonCashLeg(t *testing.T) {
	buy := order.Order{
		Side: order.SideBuy,
		From: leg(model.AssetCash, "USD", 1000),
		To:   leg(model.AssetStock, "AAPL", 10),
	}
	require.Equal(t, "AAPL", buy.Asset().Symbol)

	sell := order.Order{
		Side: order.SideSell,
		From: leg(model.AssetCrypto, "BTC", 1),
		To:   leg(model.AssetCash, "USD", 60000),
	}
	require.Equal(t, "BTC", sell.Asset().Symbol)
}
