package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/engine"
	"llm-crypto-trader/internal/engine/engineobs"
	"llm-crypto-trader/internal/eod"
	"llm-crypto-trader/internal/eod/eodobs"
	"llm-crypto-trader/internal/exchange/exchangeobs"
	"llm-crypto-trader/internal/exchange/paper"
	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/execution/executionobs"
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/llm/llmobs"
	"llm-crypto-trader/internal/llm/noop"
	"llm-crypto-trader/internal/llm/openai"
	"llm-crypto-trader/internal/llm/rules"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/store"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/tradelog"
)

// initializeSystem loads .env and sets up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeMetrics registers the trader collectors and serves /metrics when
// enabled. The returned server is nil when metrics are off.
func initializeMetrics(ctx context.Context, cfg *store.Config) (*metrics.Metrics, *http.Server) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "Metrics server stopped", err, "addr", cfg.Metrics.Addr)
		}
	}()
	logger.Info(ctx, "Serving metrics", "addr", cfg.Metrics.Addr)
	return m, srv
}

func initializeSimulator(ctx context.Context, cfg *store.Config, m *metrics.Metrics) (interfaces.ExecutionSimulator, error) {
	sim, err := execution.New(cfg.Execution.Policy)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Execution policy selected", "policy", sim.Name(), "slippage_pct", cfg.Execution.SlippagePct)
	return executionobs.Wrap(ctx, sim, m), nil
}

// initializeExchange builds the paper exchange. Live order routing needs an
// exchange connector, which this binary does not ship.
func initializeExchange(ctx context.Context, cfg *store.Config, sim interfaces.ExecutionSimulator) (interfaces.Exchange, error) {
	if cfg.Mode != "DRY_RUN" {
		return nil, fmt.Errorf("mode %s requires an exchange connector; only DRY_RUN paper trading is available", cfg.Mode)
	}
	logger.Warn(ctx, "Running in DRY_RUN mode - orders are filled by the paper exchange")

	feeds := make(map[string]string, len(cfg.Universe))
	for _, sym := range cfg.Universe {
		path, ok := cfg.Paper.Feeds[sym]
		if !ok {
			path = cfg.Backtest.CSV
		}
		if path == "" {
			return nil, fmt.Errorf("no paper feed for %s", sym)
		}
		feeds[sym] = path
	}

	exch := paper.New(paper.Params{
		Currency: cfg.QuoteCurrency,
		CSV:      feeds,
		Warmup:   cfg.Paper.Warmup,
		Slippage: decimal.NewFromFloat(cfg.Execution.SlippagePct),
		Sim:      sim,
	})
	return exchangeobs.Wrap(exch), nil
}

func initializeDecider(ctx context.Context, cfg *store.Config, m *metrics.Metrics) interfaces.Decider {
	var decider interfaces.Decider

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		decider = openai.New(cfg)
	case "noop":
		decider = noop.New()
		logger.Warn(ctx, "Noop decider selected (always HOLD)")
	default:
		decider = rules.New()
		logger.Info(ctx, "Using rule-based decider", "provider", cfg.LLM.Provider)
	}

	return llmobs.Wrap(decider, m)
}

func initializeEngine(cfg *store.Config, exch interfaces.Exchange, decider interfaces.Decider, sim interfaces.ExecutionSimulator, log *tradelog.Log, m *metrics.Metrics) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, exch, decider, sim, log), m)
}

func initializeEOD(ctx context.Context, cfg *store.Config) interfaces.EodSummarizer {
	return eodobs.Wrap(ctx, eod.NewSummarizer(cfg.TradeLog.Dir, nil))
}

// compressOldLogs gzips trade logs older than the configured retention.
func compressOldLogs(ctx context.Context, cfg *store.Config, log *tradelog.Log) {
	if cfg.TradeLog.RetentionDays <= 0 {
		return
	}
	if err := log.CompressOlder(cfg.TradeLog.RetentionDays, time.Now()); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}
