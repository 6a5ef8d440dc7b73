package eod

import (
	"time"

	"llm-crypto-trader/internal/interfaces"
)

// NewSummarizer summarizes the trade logs found in dir. now is the clock used
// by SummarizeToday and ShouldRunNow; nil means time.Now.
func NewSummarizer(dir string, now func() time.Time) interfaces.EodSummarizer {
	if now == nil {
		now = time.Now
	}
	if dir == "" {
		dir = "logs"
	}
	return &eodSummarizer{dir: dir, now: now}
}
