package eod

import (
	"path/filepath"
	"time"
)

func eodCSVPath(dir string, t time.Time) string {
	return filepath.Join(dir, "eod", t.UTC().Format("2006-01-02")+".csv")
}

// previousDay is the UTC day before t, at midnight.
func previousDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
