package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/fusion-trading-bot/internal/journal"
	"github.com/ducminhle1904/fusion-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/fusion-trading-bot/internal/notifications"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// DefaultConcurrency is the worker count for concurrent execution.
const DefaultConcurrency = 5

// Options tunes a Coordinator. Zero values fall back to defaults; the
// Sleeper and Notifier are injectable for tests.
type Options struct {
	Concurrency int
	Retry       venue.RetryPolicy
	Sleeper     venue.Sleeper
	Notifier    notifications.Notifier
	Journal     *journal.Journal
	Logger      zerolog.Logger
}

// Coordinator owns the trade lifecycle: it gates every request through
// the risk gate, dispatches approved orders to the venue adapter,
// retries transient failures and tracks each trade to a terminal state.
type Coordinator struct {
	gate     *risk.Gate
	adapter  venue.Adapter
	retry    venue.RetryPolicy
	sleeper  venue.Sleeper
	notifier notifications.Notifier
	journal  *journal.Journal
	log      zerolog.Logger

	concurrency int

	mu     sync.RWMutex
	trades map[string]*Trade
}

// NewCoordinator wires the risk gate and venue adapter together.
func NewCoordinator(gate *risk.Gate, adapter venue.Adapter, opts Options) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialDelay == 0 {
		opts.Retry = venue.DefaultRetryPolicy()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = venue.NewRealSleeper()
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.Noop{}
	}

	return &Coordinator{
		gate:        gate,
		adapter:     adapter,
		retry:       opts.Retry,
		sleeper:     opts.Sleeper,
		notifier:    opts.Notifier,
		journal:     opts.Journal,
		log:         opts.Logger.With().Str("component", "coordinator").Logger(),
		concurrency: opts.Concurrency,
		trades:      make(map[string]*Trade),
	}
}

// Execute runs one trade request through risk evaluation, submission
// and an immediate status poll. It returns once the trade is terminal
// or resting SUBMITTED on the venue; venue failures never propagate as
// errors, they end up in the trade's state and reason.
func (c *Coordinator) Execute(ctx context.Context, req types.TradeRequest) *Trade {
	trade := &Trade{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		Side:         req.Side,
		RequestedQty: req.Quantity,
		PriceHint:    req.PriceHint,
		OrderType:    req.OrderType,
		LimitPrice:   req.LimitPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Status:       StatusPendingRiskCheck,
		CreatedAt:    time.Now(),
	}
	if trade.OrderType == "" {
		trade.OrderType = types.OrderTypeMarket
	}

	c.mu.Lock()
	c.trades[trade.ID] = trade
	c.mu.Unlock()

	approved, rejection := c.gate.Evaluate(req.Symbol, req.Quantity, req.PriceHint)
	if rejection != nil {
		c.reject(trade, rejection)
		return trade
	}

	trade.mu.Lock()
	trade.ApprovedQty = approved
	_ = trade.transition(StatusRiskApproved)
	trade.mu.Unlock()
	monitoring.ObserveApprovedQuantity(trade.Symbol, approved)

	c.submit(ctx, trade)

	if trade.CurrentStatus() == StatusSubmitted {
		// Market orders often fill immediately; catch that without
		// waiting for the background poller.
		if err := c.PollStatus(ctx, trade); err != nil {
			c.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("initial status poll failed")
		}
	}
	return trade
}

// ExecuteConcurrently fans requests out over a bounded worker pool and
// collects one result per request, in request order. Risk evaluation
// stays serialized per symbol inside the gate.
func (c *Coordinator) ExecuteConcurrently(ctx context.Context, reqs []types.TradeRequest) []types.TradeResult {
	results := make([]types.TradeResult, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < c.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trade := c.Execute(ctx, reqs[i])
				results[i] = trade.Result()
			}
		}()
	}

	for i := range reqs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// submit drives the SUBMITTING/SUBMIT_FAILED retry loop until the order
// rests on the venue or the trade fails. A cancel request set during
// backoff aborts before the next attempt.
func (c *Coordinator) submit(ctx context.Context, trade *Trade) {
	orderReq := venue.OrderRequest{
		Symbol:     trade.Symbol,
		Side:       trade.Side,
		Quantity:   trade.ApprovedQty,
		OrderType:  trade.OrderType,
		LimitPrice: trade.LimitPrice,
		StopLoss:   trade.StopLoss,
		TakeProfit: trade.TakeProfit,
	}

	for attempt := 0; ; attempt++ {
		if trade.cancelPending() {
			c.abort(trade, "canceled before submission attempt")
			return
		}

		_ = trade.setStatus(StatusSubmitting)

		venueOrderID, err := c.sendOrder(ctx, orderReq)
		if err == nil {
			trade.mu.Lock()
			trade.VenueOrderID = venueOrderID
			_ = trade.transition(StatusSubmitted)
			trade.mu.Unlock()
			c.journalLifecycle(trade, "venue order "+venueOrderID)
			return
		}

		transient := venue.IsTransient(err)
		monitoring.RecordVenueError(c.adapter.Name(), errClass(transient))
		if !transient {
			c.fail(trade, fmt.Sprintf("venue rejected order: %v", err))
			return
		}

		_ = trade.setStatus(StatusSubmitFailed)
		if attempt >= c.retry.MaxRetries {
			c.fail(trade, fmt.Sprintf("submit retries exhausted after %d attempts: %v", attempt+1, err))
			return
		}

		trade.mu.Lock()
		trade.RetryCount++
		retries := trade.RetryCount
		trade.mu.Unlock()
		monitoring.RecordRetry("send_order")
		c.log.Warn().Err(err).
			Str("trade_id", trade.ID).
			Int("retry", retries).
			Msg("transient submit failure, backing off")

		if err := c.sleeper.Sleep(ctx, c.retry.Delay(attempt+1)); err != nil {
			c.fail(trade, fmt.Sprintf("aborted during retry backoff: %v", err))
			return
		}
	}
}

// PollStatus refreshes a SUBMITTED trade from the venue and applies the
// resulting state. Fill side effects are recorded exactly once per
// trade regardless of how often a FILLED status is observed.
func (c *Coordinator) PollStatus(ctx context.Context, trade *Trade) error {
	if trade.CurrentStatus() != StatusSubmitted {
		return nil
	}

	report, err := c.orderStatus(ctx, trade.VenueOrderID)
	if err != nil {
		transient := venue.IsTransient(err)
		monitoring.RecordVenueError(c.adapter.Name(), errClass(transient))
		if !transient {
			c.fail(trade, fmt.Sprintf("status query rejected: %v", err))
			return err
		}

		trade.mu.Lock()
		trade.RetryCount++
		exhausted := trade.RetryCount > c.retry.MaxRetries
		trade.mu.Unlock()
		monitoring.RecordRetry("order_status")
		if exhausted {
			// The order may still be live on the venue; the reason
			// records that so an operator can reconcile manually.
			c.fail(trade, fmt.Sprintf("status polling exhausted, venue order %s unreconciled: %v", trade.VenueOrderID, err))
		}
		return err
	}

	switch report.State {
	case venue.OrderStateFilled:
		c.recordFillOnce(trade, report)
	case venue.OrderStateCanceled:
		if trade.setStatus(StatusCanceled) == nil {
			c.settleUnfilled(trade)
			monitoring.RecordTrade(trade.Symbol, string(StatusCanceled))
			c.journalLifecycle(trade, "canceled on venue")
		}
	case venue.OrderStateRejected:
		c.fail(trade, "order rejected by venue")
	default:
		// NEW or PARTIALLY_FILLED with a live order: keep polling.
	}
	return nil
}

// PollOpen refreshes every SUBMITTED trade once.
func (c *Coordinator) PollOpen(ctx context.Context) {
	for _, trade := range c.openTrades() {
		if err := c.PollStatus(ctx, trade); err != nil {
			c.log.Warn().Err(err).Str("trade_id", trade.ID).Msg("status poll failed")
		}
	}
}

// PollLoop runs PollOpen on the given interval until ctx is done.
func (c *Coordinator) PollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PollOpen(ctx)
		}
	}
}

// Cancel requests cancellation of a trade. For SUBMITTED trades the
// venue is asked to cancel; for trades mid-submission or in retry
// backoff the next attempt is aborted instead and no venue call is
// made. Returns whether the cancellation took effect.
func (c *Coordinator) Cancel(ctx context.Context, tradeID string) (bool, error) {
	trade, ok := c.Trade(tradeID)
	if !ok {
		return false, fmt.Errorf("unknown trade %s", tradeID)
	}

	switch trade.CurrentStatus() {
	case StatusSubmitting, StatusSubmitFailed, StatusRiskApproved:
		trade.requestCancel()
		return true, nil

	case StatusSubmitted:
		if err := c.cancelOrder(ctx, trade.VenueOrderID); err != nil {
			monitoring.RecordVenueError(c.adapter.Name(), errClass(venue.IsTransient(err)))
			return false, fmt.Errorf("venue cancel failed: %w", err)
		}
		if trade.setStatus(StatusCanceled) != nil {
			// Lost the race against a fill; the poller owns the trade now.
			return false, nil
		}
		c.settleUnfilled(trade)
		monitoring.RecordTrade(trade.Symbol, string(StatusCanceled))
		c.journalLifecycle(trade, "canceled by request")
		return true, nil

	default:
		return false, fmt.Errorf("trade %s not cancellable in state %s", tradeID, trade.CurrentStatus())
	}
}

// Trade looks a trade up by id.
func (c *Coordinator) Trade(tradeID string) (*Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trades[tradeID]
	return t, ok
}

// Snapshots returns a point-in-time copy of every tracked trade.
func (c *Coordinator) Snapshots() []TradeSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TradeSnapshot, 0, len(c.trades))
	for _, t := range c.trades {
		out = append(out, t.Snapshot())
	}
	return out
}

// DrainCompleted returns snapshots of all terminal trades and evicts
// them from the open-trade index. Trades stay queryable until a
// monitoring consumer has drained them at least once.
func (c *Coordinator) DrainCompleted() []TradeSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drained []TradeSnapshot
	for id, t := range c.trades {
		if t.CurrentStatus().Terminal() {
			drained = append(drained, t.Snapshot())
			delete(c.trades, id)
		}
	}
	return drained
}

func (c *Coordinator) openTrades() []*Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var open []*Trade
	for _, t := range c.trades {
		if t.CurrentStatus() == StatusSubmitted {
			open = append(open, t)
		}
	}
	return open
}

// recordFillOnce applies fill side effects exactly once. A second
// attempt for the same trade is an invariant breach: it is counted and
// logged at error level, never silently ignored.
func (c *Coordinator) recordFillOnce(trade *Trade, report venue.StatusReport) {
	trade.mu.Lock()
	if trade.fillRecorded {
		trade.mu.Unlock()
		monitoring.RecordIdempotencyViolation()
		c.log.Error().
			Str("trade_id", trade.ID).
			Msg("idempotency violation: fill already recorded for trade")
		return
	}
	trade.fillRecorded = true

	filledQty := report.FilledQty
	if filledQty <= 0 || filledQty > trade.ApprovedQty {
		filledQty = trade.ApprovedQty
	}
	fillPrice := report.AvgFillPrice
	if fillPrice <= 0 {
		fillPrice = trade.PriceHint
	}
	trade.FilledQty = filledQty
	trade.AvgFillPrice = fillPrice
	_ = trade.transition(StatusFilled)
	approvedQty := trade.ApprovedQty
	trade.mu.Unlock()

	// Partial fills close at the filled quantity; the unfilled
	// remainder's reservation is returned to the pool.
	c.gate.RecordFill(trade.Symbol, trade.Side, filledQty, fillPrice, trade.PriceHint)
	if remainder := approvedQty - filledQty; remainder > 0 {
		c.gate.ReleaseHold(trade.Symbol, remainder, trade.PriceHint)
	}

	monitoring.RecordTrade(trade.Symbol, string(StatusFilled))
	c.journalLifecycle(trade, fmt.Sprintf("filled %.8f @ %.4f", filledQty, fillPrice))
	c.alert("success", fmt.Sprintf("%s %s filled: %.8f @ %.4f", trade.Side, trade.Symbol, filledQty, fillPrice))
}

func (c *Coordinator) reject(trade *Trade, rejection *risk.Rejection) {
	trade.mu.Lock()
	trade.Reason = rejection.String()
	_ = trade.transition(StatusRejected)
	trade.mu.Unlock()

	monitoring.RecordRiskRejection(string(rejection.Reason))
	monitoring.RecordTrade(trade.Symbol, string(StatusRejected))
	if c.journal != nil {
		c.journal.Rejection(trade.Symbol, rejection.String())
	}
	c.log.Info().
		Str("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("reason", string(rejection.Reason)).
		Msg("trade rejected by risk gate")
	if rejection.Reason == risk.ReasonDrawdownExceeded {
		c.alert("warning", fmt.Sprintf("trading halted by drawdown limit: %s", rejection.Detail))
	}
}

// fail moves a trade to FAILED, releasing any reserved exposure.
func (c *Coordinator) fail(trade *Trade, reason string) {
	trade.mu.Lock()
	trade.Reason = reason
	_ = trade.transition(StatusFailed)
	trade.mu.Unlock()

	c.settleUnfilled(trade)
	monitoring.RecordTrade(trade.Symbol, string(StatusFailed))
	c.journalLifecycle(trade, reason)
	c.log.Error().
		Str("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("reason", reason).
		Msg("trade failed")
	c.alert("error", fmt.Sprintf("%s %s failed: %s", trade.Side, trade.Symbol, reason))
}

// abort handles a cancel that landed before the order reached a venue.
func (c *Coordinator) abort(trade *Trade, reason string) {
	trade.mu.Lock()
	trade.Reason = reason
	_ = trade.transition(StatusCanceled)
	trade.mu.Unlock()

	c.settleUnfilled(trade)
	monitoring.RecordTrade(trade.Symbol, string(StatusCanceled))
	c.journalLifecycle(trade, reason)
}

// settleUnfilled releases the exposure reservation for a trade that
// ended without (full) execution.
func (c *Coordinator) settleUnfilled(trade *Trade) {
	trade.mu.Lock()
	qty := trade.ApprovedQty
	recorded := trade.fillRecorded
	trade.mu.Unlock()
	if qty > 0 && !recorded {
		c.gate.ReleaseHold(trade.Symbol, qty, trade.PriceHint)
	}
}

func (c *Coordinator) journalLifecycle(trade *Trade, detail string) {
	if c.journal == nil {
		return
	}
	snap := trade.Snapshot()
	c.journal.Lifecycle(snap.ID, snap.Symbol, string(snap.Side), string(snap.Status), detail)
}

func (c *Coordinator) alert(level, message string) {
	if err := c.notifier.SendAlert(level, message); err != nil {
		c.log.Warn().Err(err).Msg("notification delivery failed")
	}
}

// sendOrder calls the adapter with a bounded timeout, converting panics
// into permanent venue errors so a misbehaving adapter cannot take the
// worker pool down.
func (c *Coordinator) sendOrder(ctx context.Context, req venue.OrderRequest) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = venue.NewPermanentError(c.adapter.Name(), "send_order", fmt.Sprintf("adapter panic: %v", r), nil)
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, c.retry.CallTimeout)
	defer cancel()
	return c.adapter.SendOrder(callCtx, req)
}

func (c *Coordinator) orderStatus(ctx context.Context, venueOrderID string) (report venue.StatusReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = venue.NewPermanentError(c.adapter.Name(), "order_status", fmt.Sprintf("adapter panic: %v", r), nil)
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, c.retry.CallTimeout)
	defer cancel()
	return c.adapter.OrderStatus(callCtx, venueOrderID)
}

func (c *Coordinator) cancelOrder(ctx context.Context, venueOrderID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = venue.NewPermanentError(c.adapter.Name(), "cancel_order", fmt.Sprintf("adapter panic: %v", r), nil)
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, c.retry.CallTimeout)
	defer cancel()
	return c.adapter.CancelOrder(callCtx, venueOrderID)
}

func errClass(transient bool) string {
	if transient {
		return string(venue.ErrorClassTransient)
	}
	return string(venue.ErrorClassPermanent)
}
