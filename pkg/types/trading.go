package types

// Side is the direction of an order sent to a venue.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// OrderType describes how an order should be executed at the venue.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// RLAction is the discrete action recommended by the reinforcement agent.
type RLAction int

const (
	RLSell RLAction = iota
	RLHold
	RLBuy
)

func (a RLAction) String() string {
	switch a {
	case RLSell:
		return "SELL"
	case RLBuy:
		return "BUY"
	default:
		return "HOLD"
	}
}

// TradeAction is the direction decided by signal fusion.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// Signal carries the three upstream inputs consumed by one decision cycle.
type Signal struct {
	Predictive float64  // signed magnitude, positive = bullish
	RL         RLAction // recommended discrete action
	Sentiment  float64  // in [-1, 1]
}

// FusedDecision is the output of signal fusion: a direction plus the
// combined score and echoes of the inputs that produced it.
type FusedDecision struct {
	Action         TradeAction `json:"action"`
	CombinedSignal float64     `json:"combined_signal"`
	Inputs         Signal      `json:"inputs"`
}

// TradeRequest is one unit of work for the execution coordinator.
type TradeRequest struct {
	Symbol     string
	Side       Side
	Quantity   float64
	PriceHint  float64
	OrderType  OrderType
	LimitPrice float64 // used when OrderType is Limit
	StopLoss   float64 // optional protective levels, 0 = unset
	TakeProfit float64
}

// TradeResult is what callers of the command surface get back: an explicit
// status plus a human-readable reason when the trade was rejected or failed.
type TradeResult struct {
	TradeID  string  `json:"trade_id"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Status   string  `json:"status"`
	Approved float64 `json:"approved_quantity"`
	Reason   string  `json:"reason,omitempty"`
}

// PortfolioSnapshot is a read-only projection over risk state.
type PortfolioSnapshot struct {
	Equity        float64            `json:"equity"`
	PeakEquity    float64            `json:"peak_equity"`
	Drawdown      float64            `json:"drawdown"`
	OpenPositions map[string]float64 `json:"open_positions"`
}
