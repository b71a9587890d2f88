package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// TestPaperVenue_MarketOrderFills tests that market orders fill at the
// configured price
func TestPaperVenue_MarketOrderFills(t *testing.T) {
	p := NewPaperVenue()
	p.SetPrice("BTCUSDT", 50_000)

	id, err := p.SendOrder(context.Background(), OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      types.SideBuy,
		Quantity:  0.2,
		OrderType: types.OrderTypeMarket,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	report, err := p.OrderStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, OrderStateFilled, report.State)
	assert.Equal(t, 0.2, report.FilledQty)
	assert.Equal(t, 50_000.0, report.AvgFillPrice)
}

// TestPaperVenue_LimitOrderRestsAndCancels tests the limit order
// lifecycle: rests as NEW, then cancels
func TestPaperVenue_LimitOrderRestsAndCancels(t *testing.T) {
	p := NewPaperVenue()

	id, err := p.SendOrder(context.Background(), OrderRequest{
		Symbol:     "ETHUSDT",
		Side:       types.SideSell,
		Quantity:   1.5,
		OrderType:  types.OrderTypeLimit,
		LimitPrice: 2_500,
	})
	require.NoError(t, err)

	report, err := p.OrderStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, OrderStateNew, report.State)

	require.NoError(t, p.CancelOrder(context.Background(), id))
	report, err = p.OrderStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, OrderStateCanceled, report.State)
}

// TestPaperVenue_CancelFilledOrderFails tests that a filled order cannot
// be canceled
func TestPaperVenue_CancelFilledOrderFails(t *testing.T) {
	p := NewPaperVenue()
	p.SetPrice("BTCUSDT", 50_000)

	id, err := p.SendOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: types.SideBuy, Quantity: 0.1, OrderType: types.OrderTypeMarket,
	})
	require.NoError(t, err)

	err = p.CancelOrder(context.Background(), id)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

// TestPaperVenue_RejectsBadOrders tests validation rejections
func TestPaperVenue_RejectsBadOrders(t *testing.T) {
	p := NewPaperVenue()

	_, err := p.SendOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: types.SideBuy, Quantity: 0, OrderType: types.OrderTypeMarket,
	})
	require.Error(t, err)

	_, err = p.SendOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT", Side: types.SideBuy, Quantity: 1, OrderType: types.OrderTypeLimit,
	})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

// TestIsTransient tests error classification across error shapes
func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError("paper", "send_order", "timeout", nil)))
	assert.False(t, IsTransient(NewPermanentError("paper", "send_order", "validation", nil)))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.False(t, IsTransient(nil))

	// Wrapped venue errors keep their class.
	wrapped := NewTransientError("bybit", "order_status", "rate limited", nil)
	assert.True(t, IsTransient(wrapped))
}

// TestRetryPolicy_Delay tests the exponential schedule without jitter
func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	// Capped at MaxDelay.
	assert.Equal(t, 10*time.Second, p.Delay(6))
}

// TestRetryPolicy_DelayJitterBounded tests that jitter keeps the delay
// within 10% of the base schedule
func TestRetryPolicy_DelayJitterBounded(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	for i := 0; i < 50; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
		assert.LessOrEqual(t, d, 2200*time.Millisecond)
	}
}

// TestFactory_CreatesPaperVenue tests the name-keyed factory
func TestFactory_CreatesPaperVenue(t *testing.T) {
	f := NewFactory(nil)

	adapter, err := f.Create(Config{Name: "paper"})
	require.NoError(t, err)
	assert.Equal(t, "paper", adapter.Name())

	_, err = f.Create(Config{Name: "nasdaq"})
	assert.Error(t, err)

	// Bybit without a registered factory is an explicit error.
	_, err = f.Create(Config{Name: "bybit", Bybit: &BybitConfig{APIKey: "k", APISecret: "s"}})
	assert.Error(t, err)
}
