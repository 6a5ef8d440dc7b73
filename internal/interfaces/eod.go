package interfaces

import "time"

// EodSummarizer writes a per-day CSV of fills. Days are UTC.
type EodSummarizer interface {
	SummarizeDay(day time.Time) (csvPath string, err error)
	SummarizeToday() (csvPath string, err error)
	// ShouldRunNow reports whether the previous UTC day still lacks a summary.
	ShouldRunNow() (due bool, csvPath string)
}
