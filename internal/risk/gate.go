package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// RejectReason identifies which risk rule turned a trade down.
type RejectReason string

const (
	ReasonDrawdownExceeded      RejectReason = "DRAWDOWN_EXCEEDED"
	ReasonConcentrationExceeded RejectReason = "CONCENTRATION_EXCEEDED"
)

// Rejection is a business rejection, not an error: it is returned as a
// value and surfaced to callers as a REJECTED trade state.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Gate is the synchronized risk core. It approves, shrinks or rejects
// proposed trade sizes against the policy and the account State it
// exclusively owns.
//
// Locking: mu guards all State fields and is a leaf lock, never held
// while waiting on anything else. Per-symbol locks serialize the
// size/concentration read-modify-write for one symbol so that two
// concurrent evaluations cannot both claim the same headroom;
// evaluations for distinct symbols proceed in parallel.
type Gate struct {
	policy Policy
	log    zerolog.Logger

	mu    sync.Mutex
	state *State

	symMu    sync.Mutex
	symLocks map[string]*sync.Mutex
}

// NewGate wires the policy to the account state it will guard.
func NewGate(policy Policy, state *State, log zerolog.Logger) *Gate {
	return &Gate{
		policy:   policy,
		state:    state,
		log:      log.With().Str("component", "risk_gate").Logger(),
		symLocks: make(map[string]*sync.Mutex),
	}
}

// Policy returns the immutable policy this gate enforces.
func (g *Gate) Policy() Policy {
	return g.policy
}

func (g *Gate) symbolLock(symbol string) *sync.Mutex {
	g.symMu.Lock()
	defer g.symMu.Unlock()
	l, ok := g.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		g.symLocks[symbol] = l
	}
	return l
}

// Evaluate runs the ordered risk gates for a proposed trade and returns
// the approved quantity, possibly smaller than requested. Callers must
// use the returned quantity, never the requested one. A non-nil
// Rejection means no quantity was approved.
//
// An approved quantity reserves symbol exposure at the hint price;
// the caller must settle the reservation with RecordFill or release it
// with ReleaseHold once the trade reaches a terminal state.
func (g *Gate) Evaluate(symbol string, desiredQty, priceHint float64) (float64, *Rejection) {
	if desiredQty <= 0 || priceHint <= 0 {
		return 0, &Rejection{
			Reason: ReasonConcentrationExceeded,
			Detail: fmt.Sprintf("non-positive quantity %v or price %v", desiredQty, priceHint),
		}
	}

	// Gate 1: drawdown, checked under the global lock only.
	g.mu.Lock()
	dd := g.state.drawdown()
	equity := g.state.currentEquity
	g.mu.Unlock()

	if dd > g.policy.MaxDrawdown {
		return 0, &Rejection{
			Reason: ReasonDrawdownExceeded,
			Detail: fmt.Sprintf("drawdown %.4f exceeds limit %.4f", dd, g.policy.MaxDrawdown),
		}
	}

	// Gates 2 and 3 are a read-modify-write over this symbol's
	// exposure; serialize them per symbol.
	symLock := g.symbolLock(symbol)
	symLock.Lock()
	defer symLock.Unlock()

	// Gate 2: position size cap.
	maxAllowed := equity * g.policy.MaxPositionSizeFraction / priceHint
	approved := math.Min(desiredQty, maxAllowed)

	// Gate 3: post-trade concentration, shrinking linearly to the
	// largest quantity that still satisfies the limit.
	g.mu.Lock()
	current := g.state.exposure(symbol)
	portfolio := g.state.portfolioValue()
	g.mu.Unlock()

	if portfolio > 0 && g.policy.MaxConcentration < 1 {
		c := g.policy.MaxConcentration
		// (current + a) / (portfolio + a) <= c  =>  a <= (c*portfolio - current) / (1 - c)
		maxAdditional := (c*portfolio - current) / (1 - c)
		if approved*priceHint > maxAdditional {
			approved = maxAdditional / priceHint
		}
	}

	if approved <= 0 {
		return 0, &Rejection{
			Reason: ReasonConcentrationExceeded,
			Detail: fmt.Sprintf("symbol %s already at %.4f of portfolio, limit %.4f",
				symbol, safeRatio(current, portfolio), g.policy.MaxConcentration),
		}
	}

	g.mu.Lock()
	g.state.reserved[symbol] += approved * priceHint
	g.mu.Unlock()

	g.log.Debug().
		Str("symbol", symbol).
		Float64("desired", desiredQty).
		Float64("approved", approved).
		Msg("trade size approved")

	return approved, nil
}

// ReleaseHold returns reserved exposure for a trade that ended without a
// fill (rejected downstream, failed or canceled).
func (g *Gate) ReleaseHold(symbol string, quantity, priceHint float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.reserved[symbol] -= quantity * priceHint
	if g.state.reserved[symbol] <= 1e-9 {
		delete(g.state.reserved, symbol)
	}
}

// RecordFill converts a reservation into committed exposure at the real
// fill price. It must be called exactly once per filled trade; the
// caller tracks the idempotency key (trade id).
func (g *Gate) RecordFill(symbol string, side types.Side, quantity, price, priceHint float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.reserved[symbol] -= quantity * priceHint
	if g.state.reserved[symbol] <= 1e-9 {
		delete(g.state.reserved, symbol)
	}

	value := quantity * price
	if side == types.SideSell {
		value = -value
	}
	g.state.positions[symbol] += value
	if g.state.positions[symbol] <= 1e-9 {
		delete(g.state.positions, symbol)
	}
}

// UpdateEquity records a fresh equity reading. The peak only ever moves
// up; drawdown is derived from it on every read. Calling twice with the
// same value is a no-op.
func (g *Gate) UpdateEquity(newEquity float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.currentEquity = newEquity
	if newEquity > g.state.peakEquity {
		g.state.peakEquity = newEquity
	}
}

// ShouldStopLoss reports whether the price has fallen far enough below
// the entry to trip the stop.
func (g *Gate) ShouldStopLoss(entryPrice, currentPrice float64) bool {
	if entryPrice <= 0 {
		return false
	}
	return (entryPrice-currentPrice)/entryPrice >= g.policy.StopLossPct
}

// ShouldTakeProfit reports whether the price has risen far enough above
// the entry to take profit.
func (g *Gate) ShouldTakeProfit(entryPrice, currentPrice float64) bool {
	if entryPrice <= 0 {
		return false
	}
	return (currentPrice-entryPrice)/entryPrice >= g.policy.TakeProfitPct
}

// ProtectiveLevels computes the stop-loss and take-profit prices for an
// entry, from the policy percents.
func (g *Gate) ProtectiveLevels(entryPrice float64) (stopLoss, takeProfit float64) {
	return entryPrice * (1 - g.policy.StopLossPct), entryPrice * (1 + g.policy.TakeProfitPct)
}

// Snapshot returns a read-only portfolio view over the account state.
func (g *Gate) Snapshot() types.PortfolioSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	positions := make(map[string]float64, len(g.state.positions))
	for sym, v := range g.state.positions {
		positions[sym] = v
	}
	return types.PortfolioSnapshot{
		Equity:        g.state.currentEquity,
		PeakEquity:    g.state.peakEquity,
		Drawdown:      g.state.drawdown(),
		OpenPositions: positions,
	}
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
