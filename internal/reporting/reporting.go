package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/fusion-trading-bot/internal/execution"
	"github.com/ducminhle1904/fusion-trading-bot/pkg/types"
)

// PrintStartup renders the startup banner table.
func PrintStartup(venueName string, symbols []string, equity float64, concurrency int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EXECUTION CORE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Venue", venueName},
		{"📊 Symbols", strings.Join(symbols, ", ")},
		{"💰 Initial Equity", fmt.Sprintf("$%.2f", equity)},
		{"⚙️ Workers", fmt.Sprintf("%d", concurrency)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintTradeSummary renders completed trades and the final portfolio
// as console tables on shutdown.
func PrintTradeSummary(trades []execution.TradeSnapshot, portfolio types.PortfolioSnapshot) {
	if len(trades) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("COMPLETED TRADES")
		t.SetStyle(table.StyleRounded)

		t.AppendHeader(table.Row{"Trade ID", "Symbol", "Side", "Status", "Filled Qty", "Avg Price", "Retries", "Reason"})
		for _, tr := range trades {
			t.AppendRow(table.Row{
				shortID(tr.ID), tr.Symbol, tr.Side, tr.Status,
				fmt.Sprintf("%.6f", tr.FilledQty),
				fmt.Sprintf("%.4f", tr.AvgFillPrice),
				tr.RetryCount,
				tr.Reason,
			})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 8, WidthMax: 48},
		})
		t.Render()
		fmt.Println()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"💰 Equity", fmt.Sprintf("$%.2f", portfolio.Equity)},
		{"📈 Peak Equity", fmt.Sprintf("$%.2f", portfolio.PeakEquity)},
		{"📉 Drawdown", fmt.Sprintf("%.2f%%", portfolio.Drawdown*100)},
		{"📊 Open Positions", fmt.Sprintf("%d", len(portfolio.OpenPositions))},
	})
	t.Render()
	fmt.Println()
}

// WriteTradesXLSX exports completed trades to an Excel workbook.
func WriteTradesXLSX(trades []execution.TradeSnapshot, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "Trades"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"Trade ID", "Symbol", "Side", "Status", "Requested Qty",
		"Approved Qty", "Filled Qty", "Avg Fill Price", "Retries", "Reason",
		"Created At", "Closed At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	fx.SetCellStyle(sheet, "A1", endHeader, headerStyle)

	for row, tr := range trades {
		closedAt := ""
		if tr.ClosedAt != nil {
			closedAt = tr.ClosedAt.Format("2006-01-02 15:04:05")
		}
		values := []interface{}{
			tr.ID, tr.Symbol, string(tr.Side), string(tr.Status),
			tr.RequestedQty, tr.ApprovedQty, tr.FilledQty, tr.AvgFillPrice,
			tr.RetryCount, tr.Reason,
			tr.CreatedAt.Format("2006-01-02 15:04:05"), closedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 38)
	fx.SetColWidth(sheet, "B", "L", 16)

	return fx.SaveAs(path)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
