// Package priceservice fetches token market data with a short TTL cache,
// multi-source fallback, and per-key request coalescing (spec §4.2). One
// Service instance is shared by every agent in a process; two agent
// processes for the same token do not share a cache (spec §4.2, accepted).
package priceservice

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

const (
	cacheTTL           = 5 * time.Second
	primaryTimeout     = 10 * time.Second
	anomalyFloor       = 1e-7
	anomalyCeiling     = 1e3
)

// Aggregator is the primary HTTP price source (e.g. a DEX-pair aggregator).
// Implementations return every pair they know about for tokenAddress; the
// service itself picks the highest-liquidity one (spec §4.2 step 1).
type Aggregator interface {
	FetchPairs(ctx context.Context, tokenAddress string) ([]domain.PriceSample, error)
}

// FallbackQuoter is the on-chain swap-quote fallback (spec §4.2 step 2):
// given one unit of native currency, it returns how many base units of
// tokenAddress a swap would yield.
type FallbackQuoter interface {
	QuoteNativeToToken(ctx context.Context, tokenAddress string, oneNative *big.Int) (*big.Int, error)
}

type cacheEntry struct {
	sample domain.PriceSample
	at     time.Time
}

// Service is the process-wide price cache + fallback chain.
type Service struct {
	primary  Aggregator
	fallback FallbackQuoter
	focal    string // lowercased focal token address; only this token uses the fallback source
	log      zerolog.Logger

	mu             sync.RWMutex
	cache          map[string]cacheEntry
	lastKnownPrice map[string]float64

	group singleflight.Group
}

// New constructs a Service. fallback may be nil when no on-chain quote
// source is configured; the fallback path is then simply skipped.
func New(primary Aggregator, fallback FallbackQuoter, focalTokenAddress string, log zerolog.Logger) *Service {
	return &Service{
		primary:        primary,
		fallback:       fallback,
		focal:          strings.ToLower(strings.TrimSpace(focalTokenAddress)),
		log:            log.With().Str("component", "priceservice").Logger(),
		cache:          make(map[string]cacheEntry),
		lastKnownPrice: make(map[string]float64),
	}
}

// FetchPrice returns the latest sample for tokenAddress, or nil when no
// sample — fresh, stale-cached, or freshly fetched — could be produced.
// Concurrent callers for the same key share one in-flight upstream call
// (request coalescing, spec §4.2).
func (s *Service) FetchPrice(ctx context.Context, tokenAddress string) *domain.PriceSample {
	key := strings.ToLower(strings.TrimSpace(tokenAddress))

	if hit, ok := s.freshCache(key); ok {
		cp := hit
		cp.Source = domain.SourceCache
		return &cp
	}

	result, _, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetchUncached(ctx, key), nil
	})
	sample, _ := result.(*domain.PriceSample)
	return sample
}

func (s *Service) fetchUncached(ctx context.Context, key string) *domain.PriceSample {
	if hit, ok := s.freshCache(key); ok {
		cp := hit
		cp.Source = domain.SourceCache
		return &cp
	}

	if sample, ok := s.tryPrimary(ctx, key); ok {
		s.store(key, sample)
		if key == s.focal {
			s.setLastKnown(key, sample.Price)
		}
		return &sample
	}

	if key == s.focal && s.fallback != nil {
		if sample, ok := s.tryFallback(ctx, key); ok {
			s.store(key, sample)
			s.setLastKnown(key, sample.Price)
			return &sample
		}
	}

	return s.staleCacheOrNil(key)
}

func (s *Service) tryPrimary(ctx context.Context, key string) (domain.PriceSample, bool) {
	if s.primary == nil {
		return domain.PriceSample{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, primaryTimeout)
	defer cancel()

	pairs, err := s.primary.FetchPairs(ctx, key)
	if err != nil || len(pairs) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("token", key).Msg("primary price source failed")
		}
		return domain.PriceSample{}, false
	}

	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.LiquidityUsd > best.LiquidityUsd {
			best = p
		}
	}
	if best.PriceNative <= 0 {
		return domain.PriceSample{}, false
	}
	best.Source = domain.SourcePrimary
	best.TimestampMs = nowMs()
	return best, true
}

func (s *Service) tryFallback(ctx context.Context, key string) (domain.PriceSample, bool) {
	oneNative := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	out, err := s.fallback.QuoteNativeToToken(ctx, key, oneNative)
	if err != nil || out == nil || out.Sign() <= 0 {
		if err != nil {
			s.log.Warn().Err(err).Str("token", key).Msg("fallback quote failed")
		}
		return domain.PriceSample{}, false
	}

	amountOut := new(big.Float).SetInt(out)
	amountOut.Quo(amountOut, new(big.Float).SetInt(oneNative))
	outF, _ := amountOut.Float64()
	if outF <= 0 {
		return domain.PriceSample{}, false
	}
	price := 1 / outF

	if price <= anomalyFloor || price > anomalyCeiling {
		s.log.Warn().Float64("price", price).Str("token", key).Msg("fallback price rejected as anomalous")
		return domain.PriceSample{}, false
	}

	return domain.PriceSample{
		Price:        price,
		PriceNative:  price,
		TimestampMs:  nowMs(),
		Source:       domain.SourceFallback,
		TokenAddress: key,
	}, true
}

func (s *Service) freshCache(key string) (domain.PriceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Since(entry.at) >= cacheTTL {
		return domain.PriceSample{}, false
	}
	return entry.sample, true
}

func (s *Service) staleCacheOrNil(key string) *domain.PriceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil
	}
	cp := entry.sample
	cp.Source = domain.SourceCache
	return &cp
}

func (s *Service) store(key string, sample domain.PriceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{sample: sample, at: time.Now()}
}

func (s *Service) setLastKnown(key string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownPrice[key] = price
}

// LastKnownPrice returns the most recent focal-token price the service has
// ever successfully observed, or (0, false) if none yet.
func (s *Service) LastKnownPrice(tokenAddress string) (float64, bool) {
	key := strings.ToLower(strings.TrimSpace(tokenAddress))
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.lastKnownPrice[key]
	return p, ok
}

// BuildHistory seeds a ring by sampling FetchPrice `count` times, sleeping
// intervalMs between samples. Failed samples are skipped but the loop still
// advances one slot, so the returned slice may be shorter than count
// (spec §4.2 — the only temporal-spacing mechanism in the system).
func (s *Service) BuildHistory(ctx context.Context, tokenAddress string, count int, interval time.Duration) []domain.PriceSample {
	out := make([]domain.PriceSample, 0, count)
	for i := 0; i < count; i++ {
		if sample := s.FetchPrice(ctx, tokenAddress); sample != nil {
			out = append(out, *sample)
		}
		if i == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return out
		case <-time.After(interval):
		}
	}
	return out
}

func nowMs() int64 { return time.Now().UnixMilli() }
