package advisor_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/advisor"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/contextcache"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/order"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/pricing"
)

// fakeCompleter returns a canned completion and records the prompt.
type fakeCompleter struct {
	response string
	err      error
	prompt   string
	system   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompt = prompt
	return f.response, f.err
}

// nvdaContext is a snapshot holding 20 NVDA shares.
func nvdaContext(t *testing.T) string {
	t.Helper()
	text, err := contextcache.BuildSnapshot(&model.PortfolioSummary{
		UserID:      "user1",
		CashBalance: decimal.NewFromInt(50000),
		Holdings: []model.Holding{{
			Symbol:    "NVDA",
			AssetType: model.AssetStock,
			Quantity:  decimal.NewFromInt(20),
			AvgPrice:  decimal.NewFromFloat(120.5),
		}},
	})
	require.NoError(t, err)
	return text
}

func newAdvisor(completer advisor.Completer) *advisor.Service {
	oracle := pricing.NewStaticOracle()
	// cache is unused by DecideTrades; a memory cache with no
	// summarizer is fine here.
	return advisor.NewService(completer, contextcache.NewMemoryCache(nil), oracle)
}

func TestDecideTrades_SellHalfBackfill(t *testing.T) {
	// The model leaves the sell amount at 0; the advisor fills it from
	// the held 20 NVDA scaled by "half" and prices the cash leg.
	fake := &fakeCompleter{response: `{"orders": [
		{"side": "SELL",
		 "from": {"type": "STOCK", "symbol": "NVDA", "amount": 0},
		 "to": {"type": "CASH", "symbol": "USD", "amount": 0}}
	]}`}
	svc := newAdvisor(fake)

	prices := advisor.PriceContext{}
	prices[prices.Key("NVDA", model.AssetStock)] = decimal.NewFromInt(130)

	proposal, err := svc.DecideTrades(context.Background(), "sell half my NVDA", nvdaContext(t), prices)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.Len(t, proposal.Orders, 1)

	o := proposal.Orders[0]
	require.Equal(t, order.SideSell, o.Side)
	require.Equal(t, "NVDA", o.From.Symbol)
	require.Equal(t, model.AssetStock, o.From.Type)
	require.True(t, o.From.Amount.Equal(decimal.NewFromInt(10)), "expected 10, got %s", o.From.Amount)
	require.Equal(t, "USD", o.To.Symbol)
	require.True(t, o.To.Amount.Equal(decimal.NewFromInt(1300)), "expected 1300, got %s", o.To.Amount)
}

func TestDecideTrades_SellAllBackfill(t *testing.T) {
	fake := &fakeCompleter{response: `{"orders": [
		{"side": "SELL",
		 "from": {"type": "STOCK", "symbol": "NVDA", "amount": 0},
		 "to": {"type": "CASH", "symbol": "USD", "amount": 0}}
	]}`}
	svc := newAdvisor(fake)

	prices := advisor.PriceContext{}
	prices[prices.Key("NVDA", model.AssetStock)] = decimal.NewFromInt(130)

	proposal, err := svc.DecideTrades(context.Background(), "sell my NVDA", nvdaContext(t), prices)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.True(t, proposal.Orders[0].From.Amount.Equal(decimal.NewFromInt(20)))
}

func TestDecideTrades_PercentBackfill(t *testing.T) {
	fake := &fakeCompleter{response: `{"orders": [
		{"side": "SELL",
		 "from": {"type": "STOCK", "symbol": "NVDA", "amount": 0},
		 "to": {"type": "CASH", "symbol": "USD", "amount": 0}}
	]}`}
	svc := newAdvisor(fake)

	proposal, err := svc.DecideTrades(context.Background(), "sell 25% of my NVDA", nvdaContext(t), advisor.PriceContext{})
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.True(t, proposal.Orders[0].From.Amount.Equal(decimal.NewFromInt(5)),
		"expected 5, got %s", proposal.Orders[0].From.Amount)
}

func TestDecideTrades_DropsInvalidOrdersWithNote(t *testing.T) {
	// One unsupported BTC→ETH swap and one valid buy: only the buy
	// survives, and the note says a request was omitted.
	fake := &fakeCompleter{response: `{"orders": [
		{"side": "BUY",
		 "from": {"type": "CRYPTO", "symbol": "BTC", "amount": 1},
		 "to": {"type": "CRYPTO", "symbol": "ETH", "amount": 15}},
		{"side": "BUY",
		 "from": {"type": "CASH", "symbol": "USD", "amount": 1000},
		 "to": {"type": "STOCK", "symbol": "AAPL", "amount": 5}}
	]}`}
	svc := newAdvisor(fake)

	proposal, err := svc.DecideTrades(context.Background(), "swap my BTC to ETH and buy AAPL", nvdaContext(t), advisor.PriceContext{})
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.Len(t, proposal.Orders, 1)
	require.Equal(t, "AAPL", proposal.Orders[0].To.Symbol)
	require.Contains(t, proposal.Note, "omitted")
}

func TestDecideTrades_MalformedCompletion(t *testing.T) {
	fake := &fakeCompleter{response: "I cannot help with that."}
	svc := newAdvisor(fake)

	proposal, err := svc.DecideTrades(context.Background(), "buy AAPL", nvdaContext(t), advisor.PriceContext{})
	require.NoError(t, err)
	require.Nil(t, proposal, "unparsable completion yields no proposal")
}

func TestDecideTrades_EmptyOrderList(t *testing.T) {
	fake := &fakeCompleter{response: `{"orders": [], "note": "nothing to do"}`}
	svc := newAdvisor(fake)

	proposal, err := svc.DecideTrades(context.Background(), "what is the weather", nvdaContext(t), advisor.PriceContext{})
	require.NoError(t, err)
	require.Nil(t, proposal)
}

func TestDecideTrades_JSONInsideMarkdownFence(t *testing.T) {
	fake := &fakeCompleter{response: "Here you go:\n```json\n" +
		`{"orders": [{"side": "buy", "from": {"type": "cash", "symbol": "usd", "amount": 500}, "to": {"type": "stock", "symbol": "msft", "amount": 1.23456}}]}` +
		"\n```\n"}
	svc := newAdvisor(fake)

	proposal, err := svc.DecideTrades(context.Background(), "buy some MSFT", nvdaContext(t), advisor.PriceContext{})
	require.NoError(t, err)
	require.NotNil(t, proposal)

	o := proposal.Orders[0]
	require.Equal(t, order.SideBuy, o.Side)
	require.Equal(t, "MSFT", o.To.Symbol, "symbols are normalized to upper case")
	require.True(t, o.To.Amount.Equal(decimal.RequireFromString("1.2346")), "stock quantity rounds to 4dp, got %s", o.To.Amount)
}

func TestDecideTrades_CompleterFailure(t *testing.T) {
	fake := &fakeCompleter{err: context.DeadlineExceeded}
	svc := newAdvisor(fake)

	_, err := svc.DecideTrades(context.Background(), "buy AAPL", nvdaContext(t), advisor.PriceContext{})
	require.Error(t, err)
}

func TestDecideTrades_SystemInstructionMirrorsValidator(t *testing.T) {
	fake := &fakeCompleter{response: `{"orders": []}`}
	svc := newAdvisor(fake)

	svc.DecideTrades(context.Background(), "hello", nvdaContext(t), advisor.PriceContext{})
	require.Contains(t, fake.system, "CASH")
	require.Contains(t, fake.system, "asset-to-asset")
	require.Contains(t, fake.prompt, "NVDA", "holdings are surfaced to the model")
}
