package eod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/tradelog"
)

// eodSummarizer aggregates one UTC day of the trade log into a CSV.
// Crypto trades around the clock, so a day is closed once the next UTC day
// has started.
type eodSummarizer struct {
	dir string
	now func() time.Time
}

// SummarizeDay writes the summary for the UTC day containing t. It returns an
// empty path and no error when the day has no trades.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := tradelog.ReadDay(s.dir, t)
	if err != nil {
		return "", err
	}

	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol, Currency: e.Price.Currency()}
			aggs[e.Symbol] = row
		}
		value := e.Qty.Mul(e.Price.Amount())
		switch e.Side {
		case "BUY":
			row.BuyQty = row.BuyQty.Add(e.Qty)
			row.BuyValue = row.BuyValue.Add(value)
		case "SELL":
			row.SellQty = row.SellQty.Add(e.Qty)
			row.SellValue = row.SellValue.Add(value)
		}
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]*summaryRow, 0, len(keys)+1)
	var totalBuy, totalSell, totalPnL decimal.Decimal
	for _, k := range keys {
		r := aggs[k]
		buyAvg, sellAvg := avg(r.BuyValue, r.BuyQty), avg(r.SellValue, r.SellQty)
		// realized only on the matched quantity
		pnl := decimal.Min(r.BuyQty, r.SellQty).Mul(sellAvg.Sub(buyAvg))
		rows = append(rows, &summaryRow{
			Symbol:      r.Symbol,
			Currency:    r.Currency,
			BuyQty:      r.BuyQty.String(),
			BuyAvg:      buyAvg.StringFixed(4),
			SellQty:     r.SellQty.String(),
			SellAvg:     sellAvg.StringFixed(4),
			RealizedPnL: pnl.StringFixed(2),
			GrossBuy:    r.BuyValue.StringFixed(2),
			GrossSell:   r.SellValue.StringFixed(2),
		})
		totalBuy = totalBuy.Add(r.BuyValue)
		totalSell = totalSell.Add(r.SellValue)
		totalPnL = totalPnL.Add(pnl)
	}
	rows = append(rows, &summaryRow{
		Symbol:      "TOTAL",
		RealizedPnL: totalPnL.StringFixed(2),
		GrossBuy:    totalBuy.StringFixed(2),
		GrossSell:   totalSell.StringFixed(2),
	})

	outPath := eodCSVPath(s.dir, t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := gocsv.MarshalFile(&rows, out); err != nil {
		return "", fmt.Errorf("write eod csv: %w", err)
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// ShouldRunNow reports whether the previous UTC day has trades but no
// summary yet. The returned path is that day's CSV.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	day := previousDay(s.now())
	outPath := eodCSVPath(s.dir, day)
	if _, err := os.Stat(tradelog.DayFile(s.dir, day)); err != nil {
		return false, outPath
	}
	if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
		return true, outPath
	}
	return false, outPath
}

func avg(value, qty decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return decimal.Zero
	}
	return value.Div(qty)
}
