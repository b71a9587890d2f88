package venue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// PaperVenue is an in-memory venue that fills every market order at the
// configured fill price. It backs demo runs and lets the whole pipeline
// run without touching a real exchange.
type PaperVenue struct {
	name string

	mu     sync.Mutex
	orders map[string]*paperOrder
	prices map[string]float64
}

type paperOrder struct {
	req   OrderRequest
	state OrderState
	price float64
}

// NewPaperVenue creates an empty paper venue.
func NewPaperVenue() *PaperVenue {
	return &PaperVenue{
		name:   "paper",
		orders: make(map[string]*paperOrder),
		prices: make(map[string]float64),
	}
}

// SetPrice sets the fill price used for a symbol's market orders.
func (p *PaperVenue) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

func (p *PaperVenue) Name() string {
	return p.name
}

// SendOrder accepts the order and fills market orders immediately.
// Limit orders rest as NEW until canceled.
func (p *PaperVenue) SendOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Quantity <= 0 {
		return "", NewPermanentError(p.name, "send_order", "quantity must be positive", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	order := &paperOrder{req: req, state: OrderStateNew}

	switch req.OrderType {
	case "", "Market":
		price, ok := p.prices[req.Symbol]
		if !ok {
			price = req.LimitPrice
		}
		order.state = OrderStateFilled
		order.price = price
	case "Limit":
		if req.LimitPrice <= 0 {
			return "", NewPermanentError(p.name, "send_order", "limit order without price", nil)
		}
	default:
		return "", NewPermanentError(p.name, "send_order", "unsupported order type "+string(req.OrderType), nil)
	}

	p.orders[id] = order
	return id, nil
}

func (p *PaperVenue) CancelOrder(ctx context.Context, venueOrderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[venueOrderID]
	if !ok {
		return NewPermanentError(p.name, "cancel_order", "unknown order "+venueOrderID, nil)
	}
	if order.state == OrderStateFilled {
		return NewPermanentError(p.name, "cancel_order", "order already filled", nil)
	}
	order.state = OrderStateCanceled
	return nil
}

func (p *PaperVenue) OrderStatus(ctx context.Context, venueOrderID string) (StatusReport, error) {
	if err := ctx.Err(); err != nil {
		return StatusReport{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[venueOrderID]
	if !ok {
		return StatusReport{}, NewPermanentError(p.name, "order_status", "unknown order "+venueOrderID, nil)
	}

	report := StatusReport{State: order.state}
	if order.state == OrderStateFilled {
		report.FilledQty = order.req.Quantity
		report.AvgFillPrice = order.price
	}
	return report, nil
}
