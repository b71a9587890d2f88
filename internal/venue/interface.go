package venue

import (
	"context"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// OrderState is the venue-side status of an order, normalized across
// adapters.
type OrderState string

const (
	OrderStateNew             OrderState = "NEW"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCanceled        OrderState = "CANCELED"
	OrderStateRejected        OrderState = "REJECTED"
)

// OrderRequest is everything an adapter needs to place one order.
type OrderRequest struct {
	Symbol     string
	Side       types.Side
	Quantity   float64
	OrderType  types.OrderType
	LimitPrice float64 // required for limit orders
	StopLoss   float64 // optional, 0 = unset
	TakeProfit float64 // optional, 0 = unset
}

// StatusReport is the answer to an order status query.
type StatusReport struct {
	State        OrderState
	FilledQty    float64
	AvgFillPrice float64
}

// Adapter is the capability a venue (exchange or broker) must provide.
// Implementations wrap concrete broker APIs and must be safe to call
// from multiple goroutines concurrently with distinct arguments.
type Adapter interface {
	// Name identifies the venue in logs and metrics.
	Name() string

	// SendOrder submits an order and returns the venue's order id.
	SendOrder(ctx context.Context, req OrderRequest) (string, error)

	// CancelOrder cancels an open order by venue order id.
	CancelOrder(ctx context.Context, venueOrderID string) error

	// OrderStatus queries the current state of an order.
	OrderStatus(ctx context.Context, venueOrderID string) (StatusReport, error)
}
