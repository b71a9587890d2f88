package risk

import "fmt"

// Policy holds the immutable risk limits for one trading account.
// It is loaded once at startup and never mutated afterwards.
type Policy struct {
	// MaxPositionSizeFraction caps a single order at this fraction of
	// current equity.
	MaxPositionSizeFraction float64 `json:"max_position_size_fraction"`

	// MaxDrawdown halts new trades once equity has fallen this far
	// below its peak.
	MaxDrawdown float64 `json:"max_drawdown"`

	// StopLossPct and TakeProfitPct are per-trade protective distances
	// from the entry price.
	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`

	// MaxConcentration caps the fraction of total portfolio value held
	// in a single symbol.
	MaxConcentration float64 `json:"max_concentration"`
}

// DefaultPolicy returns conservative limits suitable for demo trading.
func DefaultPolicy() Policy {
	return Policy{
		MaxPositionSizeFraction: 0.10,
		MaxDrawdown:             0.10,
		StopLossPct:             0.01,
		TakeProfitPct:           0.03,
		MaxConcentration:        0.20,
	}
}

// Validate checks the policy bounds. A bad policy is a configuration
// error: the process should refuse to start.
func (p Policy) Validate() error {
	if p.MaxPositionSizeFraction <= 0 || p.MaxPositionSizeFraction > 1 {
		return fmt.Errorf("max_position_size_fraction must be in (0, 1], got %v", p.MaxPositionSizeFraction)
	}
	if p.MaxDrawdown <= 0 || p.MaxDrawdown >= 1 {
		return fmt.Errorf("max_drawdown must be in (0, 1), got %v", p.MaxDrawdown)
	}
	if p.StopLossPct <= 0 || p.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in (0, 1), got %v", p.StopLossPct)
	}
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("take_profit_pct must be positive, got %v", p.TakeProfitPct)
	}
	if p.MaxConcentration <= 0 || p.MaxConcentration > 1 {
		return fmt.Errorf("max_concentration must be in (0, 1], got %v", p.MaxConcentration)
	}
	return nil
}
