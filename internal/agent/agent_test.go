package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

type fakeAnalyzer struct {
	calls   int32
	panics  bool
	failing bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, s *State) (Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.panics {
		panic("boom")
	}
	if f.failing {
		return Result{}, assertErr("analyze failed")
	}
	return Result{
		Signal: &domain.Signal{
			AgentName:  "test-agent",
			Type:       domain.SignalBuy,
			Confidence: 80,
			Price:      1.23,
			Category:   domain.CategoryTechnical,
		},
		OnChainConfidence: 80,
	}, nil
}

type assertErrType string

func (e assertErrType) Error() string { return string(e) }
func assertErr(s string) error        { return assertErrType(s) }

func TestAgentTickSurvivesPanic(t *testing.T) {
	az := &fakeAnalyzer{panics: true}
	a := New(Config{
		Name:        "t1",
		Category:    domain.CategoryTechnical,
		Interval:    5 * time.Millisecond,
		HistorySize: 10,
	}, az, nil, nil, nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		a.tick(context.Background())
	})
	assert.EqualValues(t, 1, az.calls)
}

func TestAgentTickSurvivesAnalyzeError(t *testing.T) {
	az := &fakeAnalyzer{failing: true}
	a := New(Config{
		Name:        "t2",
		Category:    domain.CategoryTechnical,
		Interval:    5 * time.Millisecond,
		HistorySize: 10,
	}, az, nil, nil, nil, zerolog.Nop())

	a.tick(context.Background())
	assert.EqualValues(t, 1, az.calls)
}

func TestAgentRunStopsOnCancel(t *testing.T) {
	az := &fakeAnalyzer{}
	a := New(Config{
		Name:        "t3",
		Category:    domain.CategoryTechnical,
		Interval:    2 * time.Millisecond,
		HistorySize: 5,
	}, az, nil, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := a.Run(ctx)
	assert.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&az.calls), int32(0))
}
