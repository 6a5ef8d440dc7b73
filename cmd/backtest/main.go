package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/backtest"
	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/execution/executionobs"
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/llm/noop"
	"llm-crypto-trader/internal/llm/rules"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/marketdata"
	"llm-crypto-trader/internal/report"
	"llm-crypto-trader/internal/risk"
	"llm-crypto-trader/internal/storage"
	"llm-crypto-trader/internal/store"
)

type options struct {
	config  string
	csv     string
	symbol  string
	policy  string
	compare bool
	db      string
	trades  bool
	runs    int
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "config.yaml", "path to config file")
	flag.StringVar(&opts.csv, "csv", "", "candle CSV (overrides backtest.csv)")
	flag.StringVar(&opts.symbol, "symbol", "", "symbol label (overrides backtest.symbol)")
	flag.StringVar(&opts.policy, "policy", "", "execution policy: intrabar or close_only")
	flag.BoolVar(&opts.compare, "compare", false, "replay under both policies and compare")
	flag.StringVar(&opts.db, "db", "", "SQLite file to persist runs (overrides backtest.db_path)")
	flag.BoolVar(&opts.trades, "trades", false, "print every trade")
	flag.IntVar(&opts.runs, "runs", 0, "list the N most recent stored runs and exit")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		logger.ErrorWithErr(ctx, "Backtest failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := store.LoadConfig(opts.config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	var db *storage.SQLite
	if cfg.Backtest.DBPath != "" {
		if db, err = storage.Open(cfg.Backtest.DBPath); err != nil {
			return err
		}
		defer db.Close()
	}

	if opts.runs > 0 {
		if db == nil {
			return fmt.Errorf("-runs needs a database (-db or backtest.db_path)")
		}
		runs, err := db.ListRuns(ctx, opts.runs)
		if err != nil {
			return err
		}
		return report.Runs(os.Stdout, runs)
	}

	if cfg.Backtest.CSV == "" {
		return fmt.Errorf("no candle CSV: pass -csv or set backtest.csv")
	}
	candles, err := marketdata.LoadCSV(cfg.Backtest.CSV, cfg.QuoteCurrency)
	if err != nil {
		return err
	}
	logger.Info(ctx, "Loaded candles", "path", cfg.Backtest.CSV, "count", len(candles))

	btCfg := backtestConfig(cfg)
	decider := pickDecider(cfg)

	if cfg.Backtest.ComparePolicies {
		cmp, err := backtest.Compare(ctx, btCfg, candles, decider, nil)
		if err != nil {
			return err
		}
		if err := report.Comparison(os.Stdout, cmp); err != nil {
			return err
		}
		return save(ctx, db, cfg.QuoteCurrency, cmp.CloseOnly, cmp.Intrabar)
	}

	sim, err := execution.New(cfg.Execution.Policy)
	if err != nil {
		return err
	}
	res, err := backtest.NewRunner(btCfg, executionobs.Wrap(ctx, sim, nil), decider, nil).Run(ctx, candles)
	if err != nil {
		return err
	}
	if err := report.Backtest(os.Stdout, res); err != nil {
		return err
	}
	if opts.trades {
		if err := report.Trades(os.Stdout, res.Trades); err != nil {
			return err
		}
	}
	return save(ctx, db, cfg.QuoteCurrency, res)
}

func applyOverrides(cfg *store.Config, opts options) {
	if opts.csv != "" {
		cfg.Backtest.CSV = opts.csv
	}
	if opts.symbol != "" {
		cfg.Backtest.Symbol = opts.symbol
	}
	if opts.policy != "" {
		cfg.Execution.Policy = opts.policy
	}
	if opts.compare {
		cfg.Backtest.ComparePolicies = true
	}
	if opts.db != "" {
		cfg.Backtest.DBPath = opts.db
	}
}

func backtestConfig(cfg *store.Config) backtest.Config {
	symbol := cfg.Backtest.Symbol
	if symbol == "" && len(cfg.Universe) > 0 {
		symbol = cfg.Universe[0]
	}
	return backtest.Config{
		Symbol:      symbol,
		Currency:    cfg.QuoteCurrency,
		Warmup:      cfg.Backtest.Warmup,
		InitialCash: decimal.NewFromFloat(cfg.Backtest.InitialCash),
		Slippage:    decimal.NewFromFloat(cfg.Execution.SlippagePct),
		Periods:     cfg.Periods(),
		Stops:       risk.NewStops(cfg.Stop.Mode, cfg.Stop.Pct, cfg.Stop.ATRMult, cfg.Stop.TakeProfitRR, cfg.Stop.MinTick),
		Window:      cfg.Indicators.Lookback,
	}
}

// pickDecider returns nil for the built-in scorer. Backtests never call a
// remote model.
func pickDecider(cfg *store.Config) interfaces.Decider {
	switch cfg.LLM.Provider {
	case "noop":
		return noop.New()
	case "rules":
		return rules.New()
	default:
		return nil
	}
}

func save(ctx context.Context, db *storage.SQLite, currency string, results ...*backtest.Result) error {
	if db == nil {
		return nil
	}
	for _, r := range results {
		if err := db.SaveRun(ctx, r, currency); err != nil {
			return err
		}
		logger.Info(ctx, "Run saved", "run_id", r.RunID, "policy", r.Policy)
	}
	return nil
}
