package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// defaultAnalysisInterval is ANALYSIS_INTERVAL's fallback (spec §4.7 step: 15
// minutes between cron-driven passes once a focal token is selected).
const defaultAnalysisInterval = 15 * time.Minute

// AnalysisLoop runs at most one cron-scheduled self-analysis pass at a time,
// grounded on the teacher's robfig/cron scheduler wrapper (trader-go's
// internal/scheduler/scheduler.go) but scoped down to this single recurring
// job rather than a general job registry, since only one loop is ever active.
type AnalysisLoop struct {
	mu       sync.Mutex
	analyzer *Analyzer
	interval time.Duration
	log      zerolog.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewAnalysisLoop(analyzer *Analyzer, interval time.Duration, log zerolog.Logger) *AnalysisLoop {
	if interval <= 0 {
		interval = defaultAnalysisInterval
	}
	return &AnalysisLoop{analyzer: analyzer, interval: interval, log: log}
}

// Start switches the focal token to addr, cancelling any previously running
// loop (even one for the same token), runs one pass immediately, then schedules
// recurring passes every interval (spec §4.7: "at most one outstanding
// loop").
func (l *AnalysisLoop) Start(parent context.Context, addr string) {
	l.mu.Lock()
	if l.cron != nil {
		l.cron.Stop()
		l.cron = nil
	}
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.mu.Unlock()

	l.analyzer.state.SetCurrentToken(addr)

	go l.analyzer.AnalyzeToken(ctx, addr)

	c := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", l.interval)
	_, err := c.AddFunc(spec, func() {
		l.analyzer.AnalyzeToken(ctx, addr)
	})
	if err != nil {
		l.log.Error().Err(err).Str("token", addr).Msg("failed to schedule self-analysis loop")
		return
	}
	c.Start()

	l.mu.Lock()
	l.cron = c
	l.mu.Unlock()

	l.log.Info().Str("token", addr).Dur("interval", l.interval).Msg("self-analysis loop started")
}

// Stop cancels any running loop. Safe to call when none is running.
func (l *AnalysisLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		l.cron.Stop()
		l.cron = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
