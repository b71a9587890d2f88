package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/internal/fusion"
	"github.com/ducminhle1904/fusion-trading-bot/internal/monitoring"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/signals"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// DecisionRequest is one decision cycle's input: the upstream signal
// vector plus sizing for the order that results if fusion says trade.
type DecisionRequest struct {
	Symbol     string          `json:"symbol"`
	Signal     types.Signal    `json:"signal"`
	Quantity   float64         `json:"quantity"`
	PriceHint  float64         `json:"price_hint"`
	OrderType  types.OrderType `json:"order_type,omitempty"`
	LimitPrice float64         `json:"limit_price,omitempty"`
}

// DecisionResponse reports what fusion decided and, when the decision
// was actionable, the trade it produced.
type DecisionResponse struct {
	Decision types.FusedDecision      `json:"decision"`
	Trade    *execution.TradeSnapshot `json:"trade,omitempty"`
}

// Options collects the collaborators a Bot composes.
type Options struct {
	Fuser       *fusion.Fuser
	Gate        *risk.Gate
	Coordinator *execution.Coordinator
	Source      signals.Source
	Health      *monitoring.HealthChecker
	Logger      zerolog.Logger
}

// Bot is the facade the command surfaces drive: it turns signal vectors
// into fused decisions, routes actionable ones through the execution
// coordinator and answers lifecycle queries.
type Bot struct {
	fuser  *fusion.Fuser
	gate   *risk.Gate
	coord  *execution.Coordinator
	source signals.Source
	health *monitoring.HealthChecker
	log    zerolog.Logger
}

func New(opts Options) (*Bot, error) {
	if opts.Fuser == nil || opts.Gate == nil || opts.Coordinator == nil {
		return nil, fmt.Errorf("fuser, gate and coordinator are required")
	}
	return &Bot{
		fuser:  opts.Fuser,
		gate:   opts.Gate,
		coord:  opts.Coordinator,
		source: opts.Source,
		health: opts.Health,
		log:    opts.Logger.With().Str("component", "bot").Logger(),
	}, nil
}

// SubmitDecision runs one decision cycle. A HOLD returns the fused
// decision with no trade; BUY and SELL go through the coordinator and
// return the resulting trade in whatever state it reached.
func (b *Bot) SubmitDecision(ctx context.Context, req DecisionRequest) (DecisionResponse, error) {
	if req.Symbol == "" {
		return DecisionResponse{}, fmt.Errorf("symbol is required")
	}
	if req.Quantity <= 0 {
		return DecisionResponse{}, fmt.Errorf("quantity must be positive, got %v", req.Quantity)
	}
	if req.PriceHint <= 0 {
		return DecisionResponse{}, fmt.Errorf("price hint must be positive, got %v", req.PriceHint)
	}

	decision := b.fuser.Fuse(req.Signal)
	if b.health != nil {
		b.health.MarkDecision()
	}
	b.log.Info().
		Str("symbol", req.Symbol).
		Str("action", string(decision.Action)).
		Float64("combined", decision.CombinedSignal).
		Msg("decision fused")

	resp := DecisionResponse{Decision: decision}
	if decision.Action == types.ActionHold {
		return resp, nil
	}

	tradeReq := types.TradeRequest{
		Symbol:     req.Symbol,
		Quantity:   req.Quantity,
		PriceHint:  req.PriceHint,
		OrderType:  req.OrderType,
		LimitPrice: req.LimitPrice,
	}
	switch decision.Action {
	case types.ActionBuy:
		tradeReq.Side = types.SideBuy
		// Entries carry protective levels derived from the policy.
		tradeReq.StopLoss, tradeReq.TakeProfit = b.gate.ProtectiveLevels(req.PriceHint)
	case types.ActionSell:
		tradeReq.Side = types.SideSell
	}

	trade := b.coord.Execute(ctx, tradeReq)
	snap := trade.Snapshot()
	resp.Trade = &snap
	return resp, nil
}

// CancelTrade forwards a cancellation request to the coordinator.
func (b *Bot) CancelTrade(ctx context.Context, tradeID string) (bool, error) {
	return b.coord.Cancel(ctx, tradeID)
}

// Trade returns a snapshot of one tracked trade.
func (b *Bot) Trade(tradeID string) (execution.TradeSnapshot, bool) {
	trade, ok := b.coord.Trade(tradeID)
	if !ok {
		return execution.TradeSnapshot{}, false
	}
	return trade.Snapshot(), true
}

// Trades returns snapshots of every tracked trade.
func (b *Bot) Trades() []execution.TradeSnapshot {
	return b.coord.Snapshots()
}

// Portfolio returns the current account view from the risk gate.
func (b *Bot) Portfolio() types.PortfolioSnapshot {
	return b.gate.Snapshot()
}

// UpdateEquity feeds a fresh equity mark into the risk gate and the
// metrics gauges.
func (b *Bot) UpdateEquity(equity float64) {
	b.gate.UpdateEquity(equity)
	snap := b.gate.Snapshot()
	monitoring.UpdateEquity(snap.Equity, snap.Drawdown)
}

// DrainCompleted hands terminal trades to a reporting consumer.
func (b *Bot) DrainCompleted() []execution.TradeSnapshot {
	return b.coord.DrainCompleted()
}

// RunLoop drives decision cycles from the configured signal source on a
// fixed interval until ctx is done. Each tick pulls one signal per
// symbol; source failures are logged and skipped, not fatal.
func (b *Bot) RunLoop(ctx context.Context, interval time.Duration, symbols []string, quantity float64, priceHints map[string]float64) error {
	if b.source == nil {
		return fmt.Errorf("no signal source configured")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.log.Info().
		Strs("symbols", symbols).
		Dur("interval", interval).
		Str("source", b.source.Name()).
		Msg("decision loop started")

	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("decision loop stopped")
			return ctx.Err()
		case <-ticker.C:
			for _, symbol := range symbols {
				sig, err := b.source.Next(ctx, symbol)
				if err != nil {
					if b.health != nil {
						b.health.RecordError(err.Error())
					}
					b.log.Warn().Err(err).Str("symbol", symbol).Msg("signal source failed")
					continue
				}
				if _, err := b.SubmitDecision(ctx, DecisionRequest{
					Symbol:    symbol,
					Signal:    sig,
					Quantity:  quantity,
					PriceHint: priceHints[symbol],
				}); err != nil {
					b.log.Warn().Err(err).Str("symbol", symbol).Msg("decision cycle failed")
				}
			}
		}
	}
}
