package priceservice

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

type fakeAggregator struct {
	calls  int32
	pairs  []domain.PriceSample
	err    error
	delay  time.Duration
}

func (f *fakeAggregator) FetchPairs(ctx context.Context, tokenAddress string) ([]domain.PriceSample, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.pairs, f.err
}

type fakeFallback struct {
	amountOut *big.Int
	err       error
}

func (f *fakeFallback) QuoteNativeToToken(ctx context.Context, tokenAddress string, oneNative *big.Int) (*big.Int, error) {
	return f.amountOut, f.err
}

func TestFetchPricePrefersHighestLiquidity(t *testing.T) {
	agg := &fakeAggregator{pairs: []domain.PriceSample{
		{PriceNative: 1, LiquidityUsd: 100},
		{PriceNative: 2, LiquidityUsd: 500},
	}}
	svc := New(agg, nil, "0xFOCAL", zerolog.Nop())

	sample := svc.FetchPrice(context.Background(), "0xfocal")
	require.NotNil(t, sample)
	assert.Equal(t, 2.0, sample.PriceNative)
	assert.Equal(t, domain.SourcePrimary, sample.Source)
}

func TestFetchPriceCacheHitMarksSource(t *testing.T) {
	agg := &fakeAggregator{pairs: []domain.PriceSample{{PriceNative: 1, LiquidityUsd: 1}}}
	svc := New(agg, nil, "0xfocal", zerolog.Nop())

	first := svc.FetchPrice(context.Background(), "0xfocal")
	require.NotNil(t, first)
	second := svc.FetchPrice(context.Background(), "0xfocal")
	require.NotNil(t, second)

	assert.Equal(t, domain.SourceCache, second.Source)
	assert.EqualValues(t, 1, agg.calls)
}

func TestFetchPriceFallsBackOnAnomalousQuote(t *testing.T) {
	agg := &fakeAggregator{err: assertErr("primary down")}
	oneNative := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	// amountOut tiny => price = 1/tiny = huge, which is > 1e3 anomaly ceiling.
	tiny := new(big.Int).Div(oneNative, big.NewInt(1_000_000_000))
	fb := &fakeFallback{amountOut: tiny}

	svc := New(agg, fb, "0xfocal", zerolog.Nop())
	sample := svc.FetchPrice(context.Background(), "0xfocal")
	assert.Nil(t, sample)
}

func TestFetchPriceReturnsStaleCacheWhenSourcesFail(t *testing.T) {
	good := &fakeAggregator{pairs: []domain.PriceSample{{PriceNative: 5, LiquidityUsd: 1}}}
	svc := New(good, nil, "0xfocal", zerolog.Nop())
	first := svc.FetchPrice(context.Background(), "0xfocal")
	require.NotNil(t, first)

	stale := *first
	stale.Source = domain.SourcePrimary
	svc.cache["0xfocal"] = cacheEntry{sample: stale, at: time.Now().Add(-1 * time.Hour)}
	svc.primary = &fakeAggregator{err: assertErr("down")}

	sample := svc.FetchPrice(context.Background(), "0xfocal")
	require.NotNil(t, sample)
	assert.Equal(t, domain.SourceCache, sample.Source)
}

func TestBuildHistorySkipsFailedSamplesButAdvances(t *testing.T) {
	agg := &fakeAggregator{pairs: nil, err: assertErr("always fails")}
	svc := New(agg, nil, "0xfocal", zerolog.Nop())

	hist := svc.BuildHistory(context.Background(), "0xfocal", 3, time.Millisecond)
	assert.Len(t, hist, 0)
	assert.EqualValues(t, 3, agg.calls)
}

type assertErrType string

func (e assertErrType) Error() string { return string(e) }
func assertErr(s string) error        { return assertErrType(s) }
