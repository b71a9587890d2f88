package risk

// State is the live account picture for one trading account: equity
// tracking plus per-symbol exposure. There is exactly one State per
// account, constructed at startup and owned by the Gate; all mutation
// goes through Gate methods.
type State struct {
	peakEquity    float64
	currentEquity float64

	// positions maps symbol to filled exposure value (quantity * price).
	positions map[string]float64

	// reserved maps symbol to exposure value approved by the gate but
	// not yet filled. Reservations keep concurrent approvals from
	// stacking past the concentration limit and are released when the
	// trade reaches a terminal state.
	reserved map[string]float64
}

// NewState creates account state with the given starting equity, which
// also seeds the peak.
func NewState(initialEquity float64) *State {
	return &State{
		peakEquity:    initialEquity,
		currentEquity: initialEquity,
		positions:     make(map[string]float64),
		reserved:      make(map[string]float64),
	}
}

// drawdown is the fractional decline from peak equity, never negative.
func (s *State) drawdown() float64 {
	if s.peakEquity <= 0 {
		return 0
	}
	dd := (s.peakEquity - s.currentEquity) / s.peakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// exposure is the committed plus reserved value for one symbol.
func (s *State) exposure(symbol string) float64 {
	return s.positions[symbol] + s.reserved[symbol]
}

// portfolioValue is the total committed plus reserved value across all
// symbols.
func (s *State) portfolioValue() float64 {
	total := 0.0
	for _, v := range s.positions {
		total += v
	}
	for _, v := range s.reserved {
		total += v
	}
	return total
}
