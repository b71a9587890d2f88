package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

func TestStaticSource(t *testing.T) {
	sig := types.Signal{Predictive: 0.2, RL: types.RLBuy, Sentiment: -0.1}
	src := NewStaticSource(sig)

	for i := 0; i < 3; i++ {
		got, err := src.Next(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		assert.Equal(t, sig, got)
	}
}

func TestRandomSource_BoundedAndDeterministic(t *testing.T) {
	a := NewRandomSource(42)
	b := NewRandomSource(42)

	for i := 0; i < 100; i++ {
		sigA, err := a.Next(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		sigB, err := b.Next(context.Background(), "BTCUSDT")
		require.NoError(t, err)

		assert.Equal(t, sigA, sigB)
		assert.GreaterOrEqual(t, sigA.Predictive, -1.0)
		assert.LessOrEqual(t, sigA.Predictive, 1.0)
		assert.GreaterOrEqual(t, sigA.Sentiment, -1.0)
		assert.LessOrEqual(t, sigA.Sentiment, 1.0)
		assert.Contains(t, []types.RLAction{types.RLSell, types.RLHold, types.RLBuy}, sigA.RL)
	}
}
