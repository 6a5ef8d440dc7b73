package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

var ErrNoTime = errors.New("tradelog: entry has no time")

// Entry is one executed order. Time is the execution time reported by the
// exchange or the simulated candle, never the time of writing.
type Entry struct {
	Time       time.Time       `json:"time"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Qty        decimal.Decimal `json:"qty"`
	Price      money.Money     `json:"price"`
	OrderID    string          `json:"order_id"`
	Reason     string          `json:"reason"`
	Confidence float64         `json:"confidence"`
	Extra      map[string]any  `json:"extra,omitempty"`
}

type DecisionEntry struct {
	Time       time.Time          `json:"time"`
	Symbol     string             `json:"symbol"`
	Action     string             `json:"action"`
	Reason     string             `json:"reason"`
	Confidence float64            `json:"confidence"`
	Price      money.Money        `json:"price"`
	Indicators map[string]float64 `json:"indicators"`
	Extra      map[string]any     `json:"extra,omitempty"`
}

// Log appends JSON lines to one file per UTC day under dir.
type Log struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Log {
	if dir == "" {
		dir = "logs"
	}
	return &Log{dir: dir}
}

func (l *Log) Dir() string { return l.dir }

// DayFile is the trade file for the UTC day containing t.
func DayFile(dir string, t time.Time) string {
	return filepath.Join(dir, t.UTC().Format("2006-01-02")+".txt")
}

func decisionsFile(dir string, t time.Time) string {
	return filepath.Join(dir, "decisions", t.UTC().Format("2006-01-02")+".txt")
}

func (l *Log) Append(e Entry) error {
	if e.Time.IsZero() {
		return ErrNoTime
	}
	return l.appendLine(DayFile(l.dir, e.Time), e)
}

func (l *Log) AppendDecision(e DecisionEntry) error {
	if e.Time.IsZero() {
		return ErrNoTime
	}
	return l.appendLine(decisionsFile(l.dir, e.Time), e)
}

func (l *Log) appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tradelog marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the trades logged for the UTC day containing t. A missing
// file yields no entries and no error. Unparseable lines are skipped.
func ReadDay(dir string, t time.Time) ([]Entry, error) {
	f, err := os.Open(DayFile(dir, t))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips .txt logs whose modification time is more than
// retentionDays before now.
func (l *Log) CompressOlder(retentionDays int, now time.Time) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

// newCompressor wraps the archive file. Tests replace it to make Close fail.
var newCompressor = func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }

// gzipFile writes src compressed to dst. On any failure dst is removed so a
// truncated archive never shadows the original log.
func gzipFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	gw := newCompressor(out)
	if _, err = io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err = gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
