package fusion

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

const (
	// Thresholds applied to the combined score before classifying
	// the decision as a buy or a sell.
	buyThreshold  = 0.1
	sellThreshold = -0.1

	weightSumTolerance = 1e-6
)

// Weights are the fusion coefficients for the three upstream signals.
// They must sum to 1.0.
type Weights struct {
	Predictive float64 `json:"predictive"`
	RL         float64 `json:"rl"`
	Sentiment  float64 `json:"sentiment"`
}

// DefaultWeights returns the standard 40/40/20 split.
func DefaultWeights() Weights {
	return Weights{Predictive: 0.4, RL: 0.4, Sentiment: 0.2}
}

// Fuser combines predictive, reinforcement and sentiment signals into a
// directional decision. Fuse is a pure function of its inputs; weights are
// validated once at construction.
type Fuser struct {
	weights Weights
}

// NewFuser validates the weights and returns a Fuser. Weights that do not
// sum to 1.0 are a configuration error and refuse construction.
func NewFuser(w Weights) (*Fuser, error) {
	sum := w.Predictive + w.RL + w.Sentiment
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("fusion weights must sum to 1.0, got %.6f", sum)
	}
	return &Fuser{weights: w}, nil
}

// Weights returns the configured fusion weights.
func (f *Fuser) Weights() Weights {
	return f.weights
}

// Fuse combines the three signals into a final decision.
// The RL action maps to +1 for buy, -1 for sell and 0 for hold.
func (f *Fuser) Fuse(sig types.Signal) types.FusedDecision {
	rlNumeric := 0.0
	switch sig.RL {
	case types.RLBuy:
		rlNumeric = 1.0
	case types.RLSell:
		rlNumeric = -1.0
	}

	combined := f.weights.Predictive*sig.Predictive +
		f.weights.RL*rlNumeric +
		f.weights.Sentiment*sig.Sentiment

	action := types.ActionHold
	if combined > buyThreshold {
		action = types.ActionBuy
	} else if combined < sellThreshold {
		action = types.ActionSell
	}

	return types.FusedDecision{
		Action:         action,
		CombinedSignal: combined,
		Inputs:         sig,
	}
}
