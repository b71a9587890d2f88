package reporting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

func sampleTrades() []execution.TradeSnapshot {
	closed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return []execution.TradeSnapshot{
		{
			ID: "11111111-aaaa-bbbb-cccc-dddddddddddd", Symbol: "BTCUSDT",
			Side: types.SideBuy, Status: execution.StatusFilled,
			RequestedQty: 0.1, ApprovedQty: 0.1, FilledQty: 0.1, AvgFillPrice: 50_000,
			CreatedAt: closed.Add(-time.Minute), ClosedAt: &closed,
		},
		{
			ID: "22222222-aaaa-bbbb-cccc-dddddddddddd", Symbol: "ETHUSDT",
			Side: types.SideSell, Status: execution.StatusFailed,
			RequestedQty: 1, Reason: "venue rejected order",
			CreatedAt: closed.Add(-time.Minute), ClosedAt: &closed,
		},
	}
}

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.xlsx")
	require.NoError(t, WriteTradesXLSX(sampleTrades(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	rows, err := fx.GetRows("Trades")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Trade ID", rows[0][0])
	assert.Equal(t, "BTCUSDT", rows[1][1])
	assert.Equal(t, "FAILED", rows[2][3])
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "11111111", shortID("11111111-aaaa"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestPrintTradeSummary_DoesNotPanic(t *testing.T) {
	PrintTradeSummary(sampleTrades(), types.PortfolioSnapshot{
		Equity: 100_000, PeakEquity: 100_000,
		OpenPositions: map[string]float64{"BTCUSDT": 5_000},
	})
	PrintTradeSummary(nil, types.PortfolioSnapshot{})
}
