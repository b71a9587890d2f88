package bot

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/internal/fusion"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/signals"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

func newTestBot(t *testing.T, source signals.Source) (*Bot, *venue.PaperVenue) {
	t.Helper()

	fuser, err := fusion.NewFuser(fusion.DefaultWeights())
	require.NoError(t, err)

	gate := risk.NewGate(risk.DefaultPolicy(), risk.NewState(100_000), zerolog.Nop())
	paper := venue.NewPaperVenue()
	paper.SetPrice("BTCUSDT", 50_000)

	coord := execution.NewCoordinator(gate, paper, execution.Options{
		Retry: venue.RetryPolicy{
			MaxRetries:    1,
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: 1,
			CallTimeout:   time.Second,
		},
		Logger: zerolog.Nop(),
	})

	b, err := New(Options{
		Fuser:       fuser,
		Gate:        gate,
		Coordinator: coord,
		Source:      source,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return b, paper
}

func TestSubmitDecision_HoldProducesNoTrade(t *testing.T) {
	b, _ := newTestBot(t, nil)

	resp, err := b.SubmitDecision(context.Background(), DecisionRequest{
		Symbol:    "BTCUSDT",
		Signal:    types.Signal{Predictive: 0.05, RL: types.RLHold, Sentiment: 0},
		Quantity:  0.1,
		PriceHint: 50_000,
	})
	require.NoError(t, err)
	assert.Equal(t, types.ActionHold, resp.Decision.Action)
	assert.Nil(t, resp.Trade)
	assert.Empty(t, b.Trades())
}

func TestSubmitDecision_BuyFillsOnPaperVenue(t *testing.T) {
	b, _ := newTestBot(t, nil)

	resp, err := b.SubmitDecision(context.Background(), DecisionRequest{
		Symbol:    "BTCUSDT",
		Signal:    types.Signal{Predictive: 0.2, RL: types.RLBuy, Sentiment: 0},
		Quantity:  0.1,
		PriceHint: 50_000,
	})
	require.NoError(t, err)
	assert.Equal(t, types.ActionBuy, resp.Decision.Action)
	require.NotNil(t, resp.Trade)
	assert.Equal(t, execution.StatusFilled, resp.Trade.Status)

	portfolio := b.Portfolio()
	assert.InDelta(t, 5_000, portfolio.OpenPositions["BTCUSDT"], 1e-6)

	got, ok := b.Trade(resp.Trade.ID)
	require.True(t, ok)
	assert.Equal(t, resp.Trade.ID, got.ID)
}

func TestSubmitDecision_ValidatesInput(t *testing.T) {
	b, _ := newTestBot(t, nil)

	_, err := b.SubmitDecision(context.Background(), DecisionRequest{
		Symbol: "", Quantity: 0.1, PriceHint: 50_000,
	})
	assert.Error(t, err)

	_, err = b.SubmitDecision(context.Background(), DecisionRequest{
		Symbol: "BTCUSDT", Quantity: 0, PriceHint: 50_000,
	})
	assert.Error(t, err)

	_, err = b.SubmitDecision(context.Background(), DecisionRequest{
		Symbol: "BTCUSDT", Quantity: 0.1, PriceHint: 0,
	})
	assert.Error(t, err)
}

func TestUpdateEquity_FeedsGate(t *testing.T) {
	b, _ := newTestBot(t, nil)

	b.UpdateEquity(120_000)
	snap := b.Portfolio()
	assert.Equal(t, 120_000.0, snap.Equity)
	assert.Equal(t, 120_000.0, snap.PeakEquity)

	b.UpdateEquity(110_000)
	snap = b.Portfolio()
	assert.Equal(t, 120_000.0, snap.PeakEquity)
	assert.InDelta(t, 1.0/12.0, snap.Drawdown, 1e-9)
}

func TestRunLoop_DrivesDecisionsFromSource(t *testing.T) {
	source := signals.NewStaticSource(types.Signal{
		Predictive: 0.5, RL: types.RLBuy, Sentiment: 0.5,
	})
	b, _ := newTestBot(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.RunLoop(ctx, 5*time.Millisecond, []string{"BTCUSDT"}, 0.01,
			map[string]float64{"BTCUSDT": 50_000})
	}()

	require.Eventually(t, func() bool {
		return len(b.Trades()) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
