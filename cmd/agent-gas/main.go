// Command agent-gas runs the Gas variant as its own OS process
// (spec §4.5A).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/agents"
	"github.com/yeddevall/duckmon-agents-ai/internal/bootstrap"
	"github.com/yeddevall/duckmon-agents-ai/internal/config"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty}).With().Str("component", "agent-gas").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra := bootstrap.Dial(ctx, cfg, log)

	a := agent.New(agent.Config{
		Name:                        "gas",
		Category:                    domain.CategoryGas,
		TokenAddress:                cfg.TokenAddress,
		Interval:                    30 * time.Second,
		HistorySize:                 30,
		MinConfidenceForOnChainPost: 50,
		HeartbeatInterval:           30 * time.Second,
	}, agents.Gas{}, infra.Chain, infra.Price, infra.Hub, log)

	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("agent exited with error")
	}
}
