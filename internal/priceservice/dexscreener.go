package priceservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// DexScreenerAggregator implements Aggregator against the DexScreener pairs
// API (spec §6: "GET https://api.dexscreener.com/latest/dex/tokens/{address}
// ... the implementer treats this as opaque; any replacement with equivalent
// fields is acceptable"), grounded on the teacher's exchangerate client's
// plain net/http + encoding/json shape (internal/clients/exchangerate).
type DexScreenerAggregator struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewDexScreenerAggregator(log zerolog.Logger) *DexScreenerAggregator {
	return &DexScreenerAggregator{
		baseURL: "https://api.dexscreener.com/latest/dex/tokens",
		client:  &http.Client{Timeout: primaryTimeout},
		log:     log.With().Str("client", "dexscreener").Logger(),
	}
}

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	PriceNative string `json:"priceNative"`
	PriceUsd    string `json:"priceUsd"`
	Volume      struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Txns struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
		H1 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h1"`
	} `json:"txns"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	BaseToken struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"baseToken"`
}

// FetchPairs implements Aggregator.
func (d *DexScreenerAggregator) FetchPairs(ctx context.Context, tokenAddress string) ([]domain.PriceSample, error) {
	url := fmt.Sprintf("%s/%s", d.baseURL, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	var parsed dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("dexscreener decode: %w", err)
	}

	samples := make([]domain.PriceSample, 0, len(parsed.Pairs))
	for _, p := range parsed.Pairs {
		samples = append(samples, domain.PriceSample{
			PriceNative:  parseFloatOr(p.PriceNative, 0),
			PriceUsd:     parseFloatOr(p.PriceUsd, 0),
			Price:        parseFloatOr(p.PriceUsd, 0),
			TimestampMs:  time.Now().UnixMilli(),
			Volume24h:    p.Volume.H24,
			LiquidityUsd: p.Liquidity.Usd,
			MarketCap:    p.MarketCap,
			Buys24h:      p.Txns.H24.Buys,
			Sells24h:     p.Txns.H24.Sells,
			Buys1h:       p.Txns.H1.Buys,
			Sells1h:      p.Txns.H1.Sells,
			PriceChange: domain.PriceChange{
				M5:  p.PriceChange.M5,
				H1:  p.PriceChange.H1,
				H24: p.PriceChange.H24,
			},
			TokenSymbol:  p.BaseToken.Symbol,
			TokenName:    p.BaseToken.Name,
			TokenAddress: tokenAddress,
			Source:       domain.SourcePrimary,
		})
	}
	return samples, nil
}

func parseFloatOr(s string, fallback float64) float64 {
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return fallback
	}
	return v
}
