package eodobs

import (
	"context"
	"time"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/trace"
)

const dayLayout = "2006-01-02"

type observableEodSummarizer struct {
	ctx        context.Context
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

// Wrap adds spans and logs around summarizer. The summarizer contract has no
// context, so spans are children of ctx.
func Wrap(ctx context.Context, summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	if ctx == nil {
		ctx = context.Background()
	}
	return &observableEodSummarizer{
		ctx:        ctx,
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(oes.ctx, "eod.SummarizeDay")
	defer span.End()

	day := t.UTC().Format(dayLayout)
	csvPath, err := oes.summarizer.SummarizeDay(t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary failed", err, "day_utc", day)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No trades for EOD summary", "day_utc", day)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD summary written", "day_utc", day, "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(oes.ctx, "eod.SummarizeToday")
	defer span.End()

	csvPath, err := oes.summarizer.SummarizeToday()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Today's EOD summary failed", err)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Today's EOD summary done", "csv_path", csvPath, "empty", csvPath == "")
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(oes.ctx, "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()
	logger.DebugSkip(ctx, 1, "EOD check", "should_run", shouldRun, "csv_path", csvPath)
	return shouldRun, csvPath
}
