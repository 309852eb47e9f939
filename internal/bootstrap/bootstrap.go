// Package bootstrap holds the wiring every agent binary repeats: dial the
// chain client, build the price service with its on-chain fallback, and
// open the Hub client. Each cmd/agent-* main stays a thin variant-specific
// shim over this (spec §4.5A: "one cmd/agent-<name>/main.go per variant").
package bootstrap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/yeddevall/duckmon-agents-ai/internal/chain"
	"github.com/yeddevall/duckmon-agents-ai/internal/config"
	"github.com/yeddevall/duckmon-agents-ai/internal/hubclient"
	"github.com/yeddevall/duckmon-agents-ai/internal/priceservice"
)

// Infra bundles the shared clients a running agent needs.
type Infra struct {
	Chain *chain.Client
	Price *priceservice.Service
	Hub   *hubclient.Client
}

// Dial builds every shared client from cfg. Chain dial failure is non-fatal:
// agents degrade to read-only/no-chain operation the same way Agent.Run does
// when its chain client is read-only (spec §4.5 fault handling).
func Dial(ctx context.Context, cfg *config.Config, log zerolog.Logger) *Infra {
	infra := &Infra{
		Hub: hubclient.New(cfg.HubURL, log),
	}

	client, err := chain.Dial(ctx, cfg.RPCURL, cfg.PrivateKeyHex, cfg.SignalsAddress, log)
	if err != nil {
		log.Error().Err(err).Msg("chain dial failed, agent runs without on-chain read/write")
	} else {
		infra.Chain = client
	}

	var fallback priceservice.FallbackQuoter
	if infra.Chain != nil && cfg.RouterAddress != "" && cfg.WrappedNativeAddr != "" {
		fallback = chain.NewSwapQuoter(infra.Chain, common.HexToAddress(cfg.RouterAddress), common.HexToAddress(cfg.WrappedNativeAddr))
	}
	infra.Price = priceservice.New(priceservice.NewDexScreenerAggregator(log), fallback, cfg.TokenAddress, log)

	return infra
}

// BondingReader builds the Liquidity variant's bonding-curve reader, or a
// nil interface value if either the chain client or the curve address is
// unavailable. Returning the interface type (rather than *chain.BondingReader)
// matters here: a nil *chain.BondingReader boxed into priceservice.BondingReader
// would compare non-nil, defeating Liquidity.Analyze's "reader != nil" check.
func (i *Infra) BondingReader(cfg *config.Config) priceservice.BondingReader {
	if i.Chain == nil || cfg.BondingCurveAddress == "" {
		return nil
	}
	return chain.NewBondingReader(i.Chain, common.HexToAddress(cfg.BondingCurveAddress))
}
