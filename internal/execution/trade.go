package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// Status is the lifecycle state of a Trade.
type Status string

const (
	StatusPendingRiskCheck Status = "PENDING_RISK_CHECK"
	StatusRejected         Status = "REJECTED"
	StatusRiskApproved     Status = "RISK_APPROVED"
	StatusSubmitting       Status = "SUBMITTING"
	StatusSubmitted        Status = "SUBMITTED"
	StatusSubmitFailed     Status = "SUBMIT_FAILED"
	StatusFilled           Status = "FILLED"
	StatusCanceled         Status = "CANCELED"
	StatusFailed           Status = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusFilled, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

// validTransitions is the trade lifecycle state machine. A cancel
// request during SUBMITTING or retry backoff aborts before the next
// attempt, which is why those states may move straight to CANCELED.
var validTransitions = map[Status][]Status{
	StatusPendingRiskCheck: {StatusRejected, StatusRiskApproved},
	StatusRiskApproved:     {StatusSubmitting, StatusCanceled},
	StatusSubmitting:       {StatusSubmitted, StatusSubmitFailed, StatusFailed, StatusCanceled},
	StatusSubmitFailed:     {StatusSubmitting, StatusFailed, StatusCanceled},
	StatusSubmitted:        {StatusFilled, StatusCanceled, StatusFailed},
}

// Trade tracks one order through its lifecycle. A trade is written by
// the single coordinator goroutine that owns it at any moment; the
// internal mutex exists for status transitions racing with cancel
// requests and for read-only snapshots taken by other goroutines.
type Trade struct {
	mu sync.Mutex

	ID           string
	Symbol       string
	Side         types.Side
	RequestedQty float64
	ApprovedQty  float64
	PriceHint    float64
	OrderType    types.OrderType
	LimitPrice   float64
	StopLoss     float64
	TakeProfit   float64

	Status       Status
	VenueOrderID string
	FilledQty    float64
	AvgFillPrice float64
	Reason       string
	RetryCount   int
	CreatedAt    time.Time
	ClosedAt     time.Time

	// fillRecorded guards exactly-once exposure recording: the trade id
	// is the idempotency key and the flag lives with the trade, not the
	// risk gate.
	fillRecorded bool

	// cancelRequested aborts the next retry attempt for trades that are
	// cancelled while submitting or backing off.
	cancelRequested bool
}

// transition moves the trade to the next status, enforcing the state
// machine. Caller must hold t.mu.
func (t *Trade) transition(to Status) error {
	for _, allowed := range validTransitions[t.Status] {
		if allowed == to {
			t.Status = to
			if to.Terminal() {
				t.ClosedAt = time.Now()
			}
			return nil
		}
	}
	return fmt.Errorf("invalid trade transition %s -> %s", t.Status, to)
}

// setStatus is the locked variant of transition.
func (t *Trade) setStatus(to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(to)
}

// CurrentStatus reads the status under the lock.
func (t *Trade) CurrentStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Status
}

// requestCancel marks the trade so the next retry attempt aborts.
func (t *Trade) requestCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelRequested = true
}

func (t *Trade) cancelPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}

// Result builds the caller-facing view of the trade.
func (t *Trade) Result() types.TradeResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.TradeResult{
		TradeID:  t.ID,
		Symbol:   t.Symbol,
		Side:     t.Side,
		Status:   string(t.Status),
		Approved: t.ApprovedQty,
		Reason:   t.Reason,
	}
}

// Snapshot returns a copy of the trade safe to hand to readers.
type TradeSnapshot struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Side         types.Side      `json:"side"`
	RequestedQty float64         `json:"requested_quantity"`
	ApprovedQty  float64         `json:"approved_quantity"`
	OrderType    types.OrderType `json:"order_type"`
	LimitPrice   float64         `json:"limit_price,omitempty"`
	Status       Status          `json:"status"`
	VenueOrderID string          `json:"venue_order_id,omitempty"`
	FilledQty    float64         `json:"filled_quantity"`
	AvgFillPrice float64         `json:"avg_fill_price"`
	Reason       string          `json:"reason,omitempty"`
	RetryCount   int             `json:"retry_count"`
	CreatedAt    time.Time       `json:"created_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

func (t *Trade) Snapshot() TradeSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := TradeSnapshot{
		ID:           t.ID,
		Symbol:       t.Symbol,
		Side:         t.Side,
		RequestedQty: t.RequestedQty,
		ApprovedQty:  t.ApprovedQty,
		OrderType:    t.OrderType,
		LimitPrice:   t.LimitPrice,
		Status:       t.Status,
		VenueOrderID: t.VenueOrderID,
		FilledQty:    t.FilledQty,
		AvgFillPrice: t.AvgFillPrice,
		Reason:       t.Reason,
		RetryCount:   t.RetryCount,
		CreatedAt:    t.CreatedAt,
	}
	if !t.ClosedAt.IsZero() {
		closed := t.ClosedAt
		snap.ClosedAt = &closed
	}
	return snap
}
