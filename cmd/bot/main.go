package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llm-crypto-trader/internal/exchange/paper"
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/tradelog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = trace.Shutdown(shutdownCtx)
	}()

	if err := run(ctx, *configPath); err != nil {
		logger.ErrorWithErr(ctx, "Bot exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}

	m, srv := initializeMetrics(ctx, cfg)
	if srv != nil {
		defer srv.Close()
	}

	sim, err := initializeSimulator(ctx, cfg, m)
	if err != nil {
		return err
	}
	exch, err := initializeExchange(ctx, cfg, sim)
	if err != nil {
		return err
	}
	if err := exch.Start(ctx, cfg.Universe); err != nil {
		return err
	}
	defer exch.Stop(context.Background())

	log := tradelog.New(cfg.TradeLog.Dir)
	compressOldLogs(ctx, cfg, log)

	decider := initializeDecider(ctx, cfg, m)
	eng := initializeEngine(cfg, exch, decider, sim, log, m)
	summarizer := initializeEOD(ctx, cfg)

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()
	eodTick := time.NewTicker(time.Minute)
	defer eodTick.Stop()

	logger.Info(ctx, "Bot started", "mode", cfg.Mode, "universe", cfg.Universe, "policy", cfg.Execution.Policy)

	for {
		select {
		case <-tick.C:
			if stepAll(ctx, eng, cfg.Universe) == 0 {
				logger.Info(ctx, "All paper feeds exhausted")
				summarize(summarizer)
				return nil
			}
		case <-eodTick.C:
			if ok, _ := summarizer.ShouldRunNow(); ok {
				_, _ = summarizer.SummarizeDay(time.Now().UTC().AddDate(0, 0, -1))
			}
		case <-ctx.Done():
			logger.Info(ctx, "Shutting down")
			summarize(summarizer)
			return nil
		}
	}
}

// stepAll runs one cycle for every symbol and returns how many still have data.
func stepAll(ctx context.Context, eng interfaces.Engine, symbols []string) int {
	active := 0
	for _, sym := range symbols {
		st, err := eng.Step(ctx, sym)
		switch {
		case errors.Is(err, paper.ErrExhausted):
			continue
		case err != nil:
			logger.Warn(ctx, "Step failed", "symbol", sym, "error", err)
		default:
			b, _ := json.Marshal(st)
			fmt.Println(string(b))
		}
		active++
	}
	return active
}

func summarize(s interfaces.EodSummarizer) {
	_, _ = s.SummarizeToday()
}
