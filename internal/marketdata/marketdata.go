// Package marketdata loads historical OHLCV candles and rejects malformed
// ones before they reach the simulator.
package marketdata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/types"
)

var ErrMalformedCandle = errors.New("malformed candle")

// row is one CSV line. Time is RFC3339 or unix epoch milliseconds.
type row struct {
	Time   string `csv:"time"`
	Open   string `csv:"open"`
	High   string `csv:"high"`
	Low    string `csv:"low"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

func LoadCSV(path, currency string) ([]types.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, currency)
}

// ReadCSV parses and validates candles, returning them sorted by time.
func ReadCSV(r io.Reader, currency string) ([]types.Candle, error) {
	var rows []*row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse candles csv: %w", err)
	}

	candles := make([]types.Candle, 0, len(rows))
	for i, rw := range rows {
		c, err := rw.candle(currency)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := Validate(c); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	for i := 1; i < len(candles); i++ {
		if candles[i].Time.Equal(candles[i-1].Time) {
			return nil, fmt.Errorf("%w: duplicate timestamp %s", ErrMalformedCandle, candles[i].Time.Format(time.RFC3339))
		}
	}
	return candles, nil
}

func (r *row) candle(currency string) (types.Candle, error) {
	ts, err := parseTime(r.Time)
	if err != nil {
		return types.Candle{}, err
	}
	vals := make([]decimal.Decimal, 5)
	for i, s := range []string{r.Open, r.High, r.Low, r.Close, r.Volume} {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return types.Candle{}, fmt.Errorf("%w: bad number %q", ErrMalformedCandle, s)
		}
		vals[i] = d
	}
	return types.NewCandle(ts, vals[0], vals[1], vals[2], vals[3], vals[4], currency), nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", ErrMalformedCandle, s)
	}
	return t.UTC(), nil
}

// Validate checks OHLC sanity: low <= open, close <= high and a non-negative
// volume.
func Validate(c types.Candle) error {
	lo, hi := c.Low.Amount(), c.High.Amount()
	switch {
	case lo.GreaterThan(hi):
		return fmt.Errorf("%w: low %s above high %s", ErrMalformedCandle, lo, hi)
	case c.Open.Amount().LessThan(lo) || c.Open.Amount().GreaterThan(hi):
		return fmt.Errorf("%w: open %s outside [%s, %s]", ErrMalformedCandle, c.Open.Amount(), lo, hi)
	case c.Close.Amount().LessThan(lo) || c.Close.Amount().GreaterThan(hi):
		return fmt.Errorf("%w: close %s outside [%s, %s]", ErrMalformedCandle, c.Close.Amount(), lo, hi)
	case c.Volume.IsNegative():
		return fmt.Errorf("%w: negative volume %s", ErrMalformedCandle, c.Volume)
	}
	return nil
}
