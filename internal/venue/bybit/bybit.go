// Package bybit adapts the Bybit v5 unified trading API to the venue
// adapter capability.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

const venueName = "bybit"

// Bybit retCodes that are worth retrying; everything else coming back
// with a non-zero retCode is treated as a permanent rejection.
var retryableRetCodes = map[int]bool{
	10006: true, // rate limit exceeded
	10016: true, // service error
	500:   true,
	502:   true,
	503:   true,
	504:   true,
}

// Venue implements venue.Adapter over the Bybit SDK.
type Venue struct {
	client   *bybit_api.Client
	category string
}

// New creates a Bybit venue adapter. Demo mode targets the paper-trading
// environment, testnet the public testnet, otherwise mainnet.
func New(cfg *venue.BybitConfig) (venue.Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bybit config is required")
	}

	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = "https://api-demo.bybit.com"
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	category := cfg.Category
	if category == "" {
		category = "spot"
	}

	client := bybit_api.NewBybitHttpClient(cfg.APIKey, cfg.APISecret, bybit_api.WithBaseURL(baseURL))
	return &Venue{client: client, category: category}, nil
}

func (v *Venue) Name() string {
	return venueName
}

// SendOrder places the order and returns Bybit's order id.
func (v *Venue) SendOrder(ctx context.Context, req venue.OrderRequest) (string, error) {
	params := map[string]interface{}{
		"category":  v.category,
		"symbol":    req.Symbol,
		"side":      string(req.Side),
		"orderType": string(req.OrderType),
		"qty":       formatQty(req.Quantity),
	}
	if req.OrderType == types.OrderTypeLimit {
		if req.LimitPrice <= 0 {
			return "", venue.NewPermanentError(venueName, "send_order", "limit order without price", nil)
		}
		params["price"] = formatQty(req.LimitPrice)
		params["timeInForce"] = "GTC"
	}
	if req.StopLoss > 0 {
		params["stopLoss"] = formatQty(req.StopLoss)
	}
	if req.TakeProfit > 0 {
		params["takeProfit"] = formatQty(req.TakeProfit)
	}

	result, err := v.client.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return "", venue.NewTransientError(venueName, "send_order", "transport failure", err)
	}

	payload, err := v.checkResponse(result, "send_order")
	if err != nil {
		return "", err
	}

	var placed struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(payload, &placed); err != nil {
		return "", venue.NewPermanentError(venueName, "send_order", "unparseable order response", err)
	}
	if placed.OrderID == "" {
		return "", venue.NewPermanentError(venueName, "send_order", "response without order id", nil)
	}
	return placed.OrderID, nil
}

// CancelOrder cancels an open order. Symbol is required by the API but
// the adapter keys only on the order id, so it is resolved first.
func (v *Venue) CancelOrder(ctx context.Context, venueOrderID string) error {
	order, err := v.findOrder(ctx, venueOrderID)
	if err != nil {
		return err
	}

	params := map[string]interface{}{
		"category": v.category,
		"symbol":   order.Symbol,
		"orderId":  venueOrderID,
	}
	result, err := v.client.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return venue.NewTransientError(venueName, "cancel_order", "transport failure", err)
	}
	_, err = v.checkResponse(result, "cancel_order")
	return err
}

// OrderStatus looks the order up among open orders first, then in the
// recent order history once it has left the open set.
func (v *Venue) OrderStatus(ctx context.Context, venueOrderID string) (venue.StatusReport, error) {
	order, err := v.findOrder(ctx, venueOrderID)
	if err != nil {
		return venue.StatusReport{}, err
	}

	report := venue.StatusReport{State: mapOrderStatus(order.OrderStatus)}
	if qty, err := strconv.ParseFloat(order.CumExecQty, 64); err == nil {
		report.FilledQty = qty
	}
	if price, err := strconv.ParseFloat(order.AvgPrice, 64); err == nil {
		report.AvgFillPrice = price
	}
	return report, nil
}

type apiOrder struct {
	OrderID     string `json:"orderId"`
	Symbol      string `json:"symbol"`
	OrderStatus string `json:"orderStatus"`
	CumExecQty  string `json:"cumExecQty"`
	AvgPrice    string `json:"avgPrice"`
}

func (v *Venue) findOrder(ctx context.Context, orderID string) (*apiOrder, error) {
	if order, err := v.queryOrders(ctx, orderID, false); err != nil || order != nil {
		return order, err
	}
	order, err := v.queryOrders(ctx, orderID, true)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, venue.NewPermanentError(venueName, "order_status", "order "+orderID+" not found", nil)
	}
	return order, nil
}

func (v *Venue) queryOrders(ctx context.Context, orderID string, history bool) (*apiOrder, error) {
	params := map[string]interface{}{
		"category": v.category,
		"orderId":  orderID,
	}

	svc := v.client.NewUtaBybitServiceWithParams(params)
	var (
		result interface{}
		err    error
	)
	if history {
		result, err = svc.GetOrderHistory(ctx)
	} else {
		result, err = svc.GetOpenOrders(ctx)
	}
	if err != nil {
		return nil, venue.NewTransientError(venueName, "order_status", "transport failure", err)
	}

	payload, err := v.checkResponse(result, "order_status")
	if err != nil {
		return nil, err
	}

	var listing struct {
		List []apiOrder `json:"list"`
	}
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, venue.NewPermanentError(venueName, "order_status", "unparseable order listing", err)
	}
	for i := range listing.List {
		if listing.List[i].OrderID == orderID {
			return &listing.List[i], nil
		}
	}
	return nil, nil
}

// checkResponse validates the API envelope and returns the raw result
// payload for further decoding.
func (v *Venue) checkResponse(response interface{}, op string) ([]byte, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, venue.NewPermanentError(venueName, op, "unexpected response type", nil)
	}
	if serverResp.RetCode != 0 {
		msg := fmt.Sprintf("API error %d: %s", serverResp.RetCode, serverResp.RetMsg)
		if retryableRetCodes[serverResp.RetCode] {
			return nil, venue.NewTransientError(venueName, op, msg, nil)
		}
		return nil, venue.NewPermanentError(venueName, op, msg, nil)
	}
	payload, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, venue.NewPermanentError(venueName, op, "unmarshalable result", err)
	}
	return payload, nil
}

func mapOrderStatus(status string) venue.OrderState {
	switch status {
	case "Filled":
		return venue.OrderStateFilled
	case "PartiallyFilled":
		return venue.OrderStatePartiallyFilled
	case "Cancelled", "Deactivated":
		return venue.OrderStateCanceled
	case "Rejected":
		return venue.OrderStateRejected
	default:
		return venue.OrderStateNew
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
