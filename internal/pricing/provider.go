package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// HTTPProvider fetches reference prices over HTTP: Yahoo Finance for
// equities and CoinGecko for crypto. Fetched quotes are kept in an
// in-memory cache for a short TTL so that revaluing a whole portfolio
// does not hammer the upstream APIs.
type HTTPProvider struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// NewHTTPProvider creates a provider with the given cache TTL.
func NewHTTPProvider(ttl time.Duration) *HTTPProvider {
	return &HTTPProvider{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        ttl,
		cache:      make(map[string]cachedPrice),
	}
}

// GetPrice returns a current unit price, serving from cache when fresh.
// Any upstream failure surfaces as ErrUnavailable; callers decide how
// to degrade.
func (p *HTTPProvider) GetPrice(ctx context.Context, symbol string, asset model.AssetType) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := priceKey(symbol, asset)

	p.mu.RLock()
	entry, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < p.ttl {
		return entry.price, nil
	}

	var price decimal.Decimal
	var err error
	switch asset {
	case model.AssetStock:
		price, err = p.fetchYahooQuote(ctx, symbol)
	case model.AssetCrypto:
		price, err = p.fetchCoinGeckoPrice(ctx, symbol)
	default:
		return decimal.Zero, ErrUnavailable
	}
	if err != nil {
		slog.Warn("price fetch failed", "symbol", symbol, "asset", asset, "err", err)
		// Serve a stale quote over nothing at all.
		if ok {
			return entry.price, nil
		}
		return decimal.Zero, ErrUnavailable
	}

	p.mu.Lock()
	p.cache[key] = cachedPrice{price: price, fetchedAt: time.Now()}
	p.mu.Unlock()

	return price, nil
}

func (p *HTTPProvider) fetchYahooQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=1d", url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("yahoo status %d for %s", resp.StatusCode, symbol)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode yahoo quote: %w", err)
	}

	if len(payload.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	price := decimal.NewFromFloat(payload.Chart.Result[0].Meta.RegularMarketPrice)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive quote for %s", symbol)
	}
	return price, nil
}

func (p *HTTPProvider) fetchCoinGeckoPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown crypto symbol %s", symbol)
	}

	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", "usd")
	endpoint := "https://api.coingecko.com/api/v3/simple/price?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko status %d for %s", resp.StatusCode, symbol)
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode coingecko price: %w", err)
	}

	val, ok := payload[id]
	if !ok || val.USD <= 0 {
		return decimal.Zero, fmt.Errorf("no usable quote for %s", symbol)
	}
	return decimal.NewFromFloat(val.USD), nil
}

var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
}
