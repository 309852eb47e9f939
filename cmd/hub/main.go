// Command hub runs the central aggregation service the agent fleet reports
// into: a REST ingress, a websocket fan-out, a weighted consensus engine,
// and a self-driven per-token analysis loop (spec §4.7).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yeddevall/duckmon-agents-ai/internal/advisor"
	"github.com/yeddevall/duckmon-agents-ai/internal/chain"
	"github.com/yeddevall/duckmon-agents-ai/internal/config"
	"github.com/yeddevall/duckmon-agents-ai/internal/hub"
	"github.com/yeddevall/duckmon-agents-ai/internal/priceservice"
	"github.com/yeddevall/duckmon-agents-ai/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty}).With().Str("component", "hub").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := hub.NewState()
	socketHub := hub.NewSocketHub(log)

	var fallback priceservice.FallbackQuoter
	if cfg.RouterAddress != "" && cfg.WrappedNativeAddr != "" {
		client, err := chain.Dial(ctx, cfg.RPCURL, cfg.PrivateKeyHex, "", log)
		if err != nil {
			log.Warn().Err(err).Msg("hub: on-chain fallback quoter unavailable, dexscreener is the only price source")
		} else {
			fallback = chain.NewSwapQuoter(client, common.HexToAddress(cfg.RouterAddress), common.HexToAddress(cfg.WrappedNativeAddr))
		}
	}
	price := priceservice.New(priceservice.NewDexScreenerAggregator(log), fallback, cfg.TokenAddress, log)

	analyzer := hub.NewAnalyzer(state, price, socketHub, log)
	if cfg.AdvisorAPIKey != "" {
		analyzer = analyzer.WithAdvisor(advisor.New(cfg.AdvisorEndpoint, cfg.AdvisorAPIKey, log))
	}

	loop := hub.NewAnalysisLoop(analyzer, 0, log)
	socketHub.SetOnAnalyze(func(tokenAddress string) {
		loop.Start(ctx, tokenAddress)
	})

	if cfg.TokenAddress != "" {
		state.SetCurrentToken(cfg.TokenAddress)
		loop.Start(ctx, cfg.TokenAddress)
	}

	server := hub.NewServer(state, socketHub, log, cfg.LogPretty)
	port := cfg.Port
	if port <= 0 {
		port = 8080
	}
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", port).Msg("hub listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("hub http server failed")
		}
	}()

	<-ctx.Done()
	loop.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("hub http server shutdown did not complete cleanly")
	}
	log.Info().Msg("hub stopped")
}
