package eod

import "github.com/shopspring/decimal"

// aggRow represents aggregated trading statistics for a symbol.
type aggRow struct {
	Symbol    string
	Currency  string
	BuyQty    decimal.Decimal // Total quantity bought
	BuyValue  decimal.Decimal // Sum of qty * price over buys
	SellQty   decimal.Decimal
	SellValue decimal.Decimal
}

// summaryRow is one line of the EOD CSV.
type summaryRow struct {
	Symbol      string `csv:"symbol"`
	Currency    string `csv:"currency"`
	BuyQty      string `csv:"buy_qty"`
	BuyAvg      string `csv:"buy_avg"`
	SellQty     string `csv:"sell_qty"`
	SellAvg     string `csv:"sell_avg"`
	RealizedPnL string `csv:"realized_pnl"`
	GrossBuy    string `csv:"gross_buy_value"`
	GrossSell   string `csv:"gross_sell_value"`
}
