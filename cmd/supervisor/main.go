// Command supervisor launches the eight agent binaries as child OS
// processes on a staggered schedule and restarts each on failure (spec
// §4.8). Run with no arguments to supervise the full fleet, or with a
// single agent binary path to supervise just that one child (spec §6 CLI:
// "supervise <agentPath>").
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yeddevall/duckmon-agents-ai/internal/config"
	"github.com/yeddevall/duckmon-agents-ai/internal/supervisor"
	"github.com/yeddevall/duckmon-agents-ai/pkg/logger"
)

// staggerStep spaces each child's first launch so the fleet doesn't open
// eight chain dials and eight Hub registrations in the same instant
// (spec §4.8: "staggered launch schedule").
const staggerStep = 3 * time.Second

var agentNames = []string{
	"agent-trading",
	"agent-prediction",
	"agent-market",
	"agent-whale",
	"agent-liquidity",
	"agent-sentiment",
	"agent-onchain",
	"agent-gas",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty}).With().Str("component", "supervisor").Logger()

	exe, err := os.Executable()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve own executable path")
	}
	dir := filepath.Dir(exe)

	specs := make([]supervisor.ChildSpec, len(agentNames))
	for i, name := range agentNames {
		specs[i] = supervisor.ChildSpec{
			Name:  name,
			Path:  filepath.Join(dir, name),
			Delay: time.Duration(i) * staggerStep,
		}
	}

	var single string
	if len(os.Args) > 1 {
		single = os.Args[1]
	}

	sup, err := supervisor.New(specs, single, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build supervisor")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("supervisor exited with error")
	}
}
