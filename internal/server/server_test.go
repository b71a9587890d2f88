package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/fusion-trading-bot/internal/bot"
	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/internal/fusion"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *venue.PaperVenue) {
	t.Helper()

	fuser, err := fusion.NewFuser(fusion.DefaultWeights())
	require.NoError(t, err)

	gate := risk.NewGate(risk.DefaultPolicy(), risk.NewState(100_000), zerolog.Nop())
	paper := venue.NewPaperVenue()
	paper.SetPrice("BTCUSDT", 50_000)

	coord := execution.NewCoordinator(gate, paper, execution.Options{
		Retry: venue.RetryPolicy{
			MaxRetries:    1,
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: 1,
			CallTimeout:   time.Second,
		},
		Logger: zerolog.Nop(),
	})

	b, err := bot.New(bot.Options{
		Fuser:       fuser,
		Gate:        gate,
		Coordinator: coord,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	return New(Options{Port: 0, Bot: b, Logger: zerolog.Nop()}), paper
}

func postDecision(t *testing.T, srv *Server, req bot.DecisionRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decisions", bytes.NewReader(body)))
	return rec
}

func buyRequest() bot.DecisionRequest {
	return bot.DecisionRequest{
		Symbol:    "BTCUSDT",
		Signal:    types.Signal{Predictive: 0.5, RL: types.RLBuy, Sentiment: 0.5},
		Quantity:  0.1,
		PriceHint: 50_000,
	}
}

func TestSubmitDecisionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postDecision(t, srv, buyRequest())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp bot.DecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.ActionBuy, resp.Decision.Action)
	require.NotNil(t, resp.Trade)
	assert.Equal(t, execution.StatusFilled, resp.Trade.Status)
	assert.NotEmpty(t, resp.Trade.ID)
}

func TestSubmitDecisionEndpoint_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decisions", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := buyRequest()
	req.Quantity = -1
	rec = postDecision(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")
}

func TestTradeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postDecision(t, srv, buyRequest())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp bot.DecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	tradeID := resp.Trade.ID

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Trades []execution.TradeSnapshot `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Trades, 1)
	assert.Equal(t, tradeID, list.Trades[0].ID)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trades/"+tradeID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap execution.TradeSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, execution.StatusFilled, snap.Status)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trades/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelTradeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	// A limit order below market rests on the paper venue, so it can be
	// canceled through the API.
	req := buyRequest()
	req.OrderType = types.OrderTypeLimit
	req.LimitPrice = 49_000
	rec := postDecision(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp bot.DecisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, execution.StatusSubmitted, resp.Trade.Status)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/trades/"+resp.Trade.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"canceled":true`)

	// Already terminal now.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/trades/"+resp.Trade.ID, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/trades/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortfolioEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postDecision(t, srv, buyRequest())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/portfolio", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap types.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 100_000.0, snap.Equity)
	assert.InDelta(t, 5_000, snap.OpenPositions["BTCUSDT"], 1e-6)
}
