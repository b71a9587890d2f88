package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// TestNewFuser_ValidWeights tests construction with weights summing to 1.0
func TestNewFuser_ValidWeights(t *testing.T) {
	f, err := NewFuser(Weights{Predictive: 0.4, RL: 0.4, Sentiment: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.4, f.Weights().Predictive)
}

// TestNewFuser_BadWeights tests that weights not summing to 1.0 are rejected
func TestNewFuser_BadWeights(t *testing.T) {
	_, err := NewFuser(Weights{Predictive: 0.5, RL: 0.5, Sentiment: 0.2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

// TestFuse_BullishCombination reproduces the reference scenario:
// predictive 0.2, RL buy, neutral sentiment => combined 0.48 => BUY
func TestFuse_BullishCombination(t *testing.T) {
	f, err := NewFuser(DefaultWeights())
	require.NoError(t, err)

	decision := f.Fuse(types.Signal{Predictive: 0.2, RL: types.RLBuy, Sentiment: 0.0})
	assert.Equal(t, types.ActionBuy, decision.Action)
	assert.InDelta(t, 0.48, decision.CombinedSignal, 1e-9)
}

// TestFuse_BearishCombination tests a clearly bearish mix of signals
func TestFuse_BearishCombination(t *testing.T) {
	f, err := NewFuser(DefaultWeights())
	require.NoError(t, err)

	decision := f.Fuse(types.Signal{Predictive: -0.3, RL: types.RLSell, Sentiment: -0.5})
	assert.Equal(t, types.ActionSell, decision.Action)
	assert.Less(t, decision.CombinedSignal, 0.0)
}

// TestFuse_HoldInsideDeadBand tests that weak combined signals produce HOLD
func TestFuse_HoldInsideDeadBand(t *testing.T) {
	f, err := NewFuser(DefaultWeights())
	require.NoError(t, err)

	decision := f.Fuse(types.Signal{Predictive: 0.1, RL: types.RLHold, Sentiment: 0.1})
	// combined = 0.4*0.1 + 0 + 0.2*0.1 = 0.06, inside the dead band
	assert.Equal(t, types.ActionHold, decision.Action)
}

// TestFuse_ThresholdBoundary tests that exactly 0.1 is still a hold
func TestFuse_ThresholdBoundary(t *testing.T) {
	f, err := NewFuser(Weights{Predictive: 1.0, RL: 0.0, Sentiment: 0.0})
	require.NoError(t, err)

	decision := f.Fuse(types.Signal{Predictive: 0.1, RL: types.RLHold})
	assert.Equal(t, types.ActionHold, decision.Action)

	decision = f.Fuse(types.Signal{Predictive: -0.1, RL: types.RLHold})
	assert.Equal(t, types.ActionHold, decision.Action)
}

// TestFuse_Deterministic tests that repeated calls with identical inputs
// produce identical decisions
func TestFuse_Deterministic(t *testing.T) {
	f, err := NewFuser(DefaultWeights())
	require.NoError(t, err)

	sig := types.Signal{Predictive: -0.25, RL: types.RLBuy, Sentiment: 0.7}
	first := f.Fuse(sig)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, f.Fuse(sig))
	}
}

// TestFuse_InputsEchoed tests that the decision echoes its inputs
func TestFuse_InputsEchoed(t *testing.T) {
	f, err := NewFuser(DefaultWeights())
	require.NoError(t, err)

	sig := types.Signal{Predictive: 0.9, RL: types.RLSell, Sentiment: -0.2}
	decision := f.Fuse(sig)
	assert.Equal(t, sig, decision.Inputs)
}
