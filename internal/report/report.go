// Package report renders backtest results as plain-text tables.
package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"llm-crypto-trader/internal/backtest"
	"llm-crypto-trader/internal/storage"
)

const timeLayout = "2006-01-02 15:04"

// Backtest prints the summary of one run followed by its trades.
func Backtest(w io.Writer, r *backtest.Result) error {
	fmt.Fprintf(w, "Backtest %s  policy=%s  symbol=%s  %s .. %s  (%d candles)\n",
		r.RunID, r.Policy, r.Symbol, r.Start.Format(timeLayout), r.End.Format(timeLayout), r.Candles)

	summary := tablewriter.NewWriter(w)
	summary.Header("Trades", "Wins", "Losses", "Win %", "PnL", "Return %", "Max DD %", "Hidden stops")
	summary.Append(
		fmt.Sprintf("%d", len(r.Trades)),
		fmt.Sprintf("%d", r.Wins()),
		fmt.Sprintf("%d", r.Losses()),
		fmt.Sprintf("%.1f", r.WinRate),
		r.PnL.StringFixed(2),
		fmt.Sprintf("%.2f", r.ReturnPct),
		fmt.Sprintf("%.2f", r.MaxDrawdownPct),
		fmt.Sprintf("%d", r.HiddenStops),
	)
	if err := summary.Render(); err != nil {
		return err
	}

	if len(r.Trades) == 0 {
		fmt.Fprintln(w, "  no trades")
		return nil
	}
	return Trades(w, r.Trades)
}

// Trades prints one row per round trip.
func Trades(w io.Writer, trades []backtest.Trade) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Entry time", "Exit time", "Entry", "Exit", "Size", "Stop", "Target", "PnL", "Reason")
	for i, t := range trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.EntryTime.Format(timeLayout),
			t.ExitTime.Format(timeLayout),
			t.Entry.Amount().StringFixed(2),
			t.Exit.Amount().StringFixed(2),
			t.Size.String(),
			t.Stop.Amount().StringFixed(2),
			t.Target.Amount().StringFixed(2),
			t.PnL.Amount().StringFixed(2),
			t.ExitReason,
		)
	}
	return table.Render()
}

// Comparison prints both policies side by side and the hidden-risk verdict.
func Comparison(w io.Writer, c *backtest.Comparison) error {
	table := tablewriter.NewWriter(w)
	table.Header("Policy", "Trades", "Win %", "PnL", "Return %", "Max DD %", "Hidden stops")
	for _, r := range []*backtest.Result{c.CloseOnly, c.Intrabar} {
		table.Append(
			r.Policy,
			fmt.Sprintf("%d", len(r.Trades)),
			fmt.Sprintf("%.1f", r.WinRate),
			r.PnL.StringFixed(2),
			fmt.Sprintf("%.2f", r.ReturnPct),
			fmt.Sprintf("%.2f", r.MaxDrawdownPct),
			fmt.Sprintf("%d", r.HiddenStops),
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "  PnL delta (intrabar - close_only): %s\n", c.PnLDelta.StringFixed(2))
	switch {
	case c.HiddenStops == 0:
		fmt.Fprintln(w, "  No hidden stops: close-only and intrabar agree on every stop.")
	case c.PnLDelta.IsNegative():
		fmt.Fprintf(w, "  WARNING: %d stop touches invisible to close-only; it overstates PnL.\n", c.HiddenStops)
	default:
		fmt.Fprintf(w, "  %d stop touches invisible to close-only.\n", c.HiddenStops)
	}
	return nil
}

// Runs lists stored runs, newest first.
func Runs(w io.Writer, runs []storage.RunSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Run", "Policy", "Symbol", "Candles", "Trades", "PnL", "Win %", "Max DD %", "Created")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.Policy,
			r.Symbol,
			fmt.Sprintf("%d", r.Candles),
			fmt.Sprintf("%d", r.Trades),
			r.PnL.StringFixed(2),
			fmt.Sprintf("%.1f", r.WinRate),
			fmt.Sprintf("%.2f", r.MaxDrawdownPct),
			r.CreatedAt.Format(timeLayout),
		)
	}
	return table.Render()
}
