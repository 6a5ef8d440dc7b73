package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"llm-crypto-trader/internal/ta"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Mode          string   `yaml:"mode"`
	QuoteCurrency string   `yaml:"quote_currency"`
	PollSeconds   int      `yaml:"poll_seconds"`
	Universe      []string `yaml:"universe"`
	Qty           struct {
		DefaultBuy  string            `yaml:"default_buy"`
		DefaultSell string            `yaml:"default_sell"`
		PerSymbol   map[string]string `yaml:"per_symbol"`
	} `yaml:"qty"`
	Risk struct {
		MaxDailyDrawdownPct float64 `yaml:"max_daily_drawdown_pct"`
		PerTradeRiskPct     float64 `yaml:"per_trade_risk_pct"`
		AccountValue        float64 `yaml:"account_value"`
	} `yaml:"risk"`
	Stop struct {
		Mode         string  `yaml:"mode"`
		Pct          float64 `yaml:"pct"`
		ATRMult      float64 `yaml:"atr_mult"`
		TakeProfitRR float64 `yaml:"take_profit_rr"`
		MinTick      float64 `yaml:"min_tick"`
		Trailing     bool    `yaml:"trailing"`
	} `yaml:"stop"`
	Indicators struct {
		RSIPeriod   int     `yaml:"rsi_period"`
		ATRPeriod   int     `yaml:"atr_period"`
		ADXPeriod   int     `yaml:"adx_period"`
		BBWindow    int     `yaml:"bb_window"`
		BBStdDev    float64 `yaml:"bb_stddev"`
		MACDSignal  int     `yaml:"macd_signal"`
		StochK      int     `yaml:"stoch_k"`
		StochD      int     `yaml:"stoch_d"`
		MFIPeriod   int     `yaml:"mfi_period"`
		WilliamsR   int     `yaml:"williams_r_period"`
		CCIPeriod   int     `yaml:"cci_period"`
		OBVLookback int     `yaml:"obv_lookback"`
		Lookback    int     `yaml:"lookback"`
	} `yaml:"indicators"`
	Execution struct {
		Policy      string  `yaml:"policy"`
		SlippagePct float64 `yaml:"slippage_pct"`
	} `yaml:"execution"`
	Backtest struct {
		CSV             string  `yaml:"csv"`
		Symbol          string  `yaml:"symbol"`
		Warmup          int     `yaml:"warmup"`
		InitialCash     float64 `yaml:"initial_cash"`
		ComparePolicies bool    `yaml:"compare_policies"`
		DBPath          string  `yaml:"db_path"`
	} `yaml:"backtest"`
	LLM struct {
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		MaxTokens         int     `yaml:"max_tokens"`
		Temperature       float32 `yaml:"temperature"`
		System            string  `yaml:"system"`
		Schema            string  `yaml:"schema"`
		RequestsPerMinute int     `yaml:"requests_per_minute"`
	} `yaml:"llm"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	TradeLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"tradelog"`
	// Paper replays one CSV per symbol in DRY_RUN mode.
	Paper struct {
		Feeds  map[string]string `yaml:"feeds"`
		Warmup int               `yaml:"warmup"`
	} `yaml:"paper"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("%w: mode '%s' must be 'DRY_RUN' or 'LIVE'", ErrInvalidConfig, c.Mode)
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("%w: universe cannot be empty", ErrInvalidConfig)
	}
	for name, q := range c.qtyFields() {
		d, err := decimal.NewFromString(q)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%w: %s must be a non-negative decimal, got '%s'", ErrInvalidConfig, name, q)
		}
	}
	if c.Risk.PerTradeRiskPct < 0 || c.Risk.PerTradeRiskPct > 100 {
		return fmt.Errorf("%w: risk.per_trade_risk_pct must be between 0-100, got %.2f", ErrInvalidConfig, c.Risk.PerTradeRiskPct)
	}
	switch c.Stop.Mode {
	case "PCT":
		if c.Stop.Pct <= 0 || c.Stop.Pct >= 100 {
			return fmt.Errorf("%w: stop.pct must be between 0-100, got %.2f", ErrInvalidConfig, c.Stop.Pct)
		}
	case "ATR":
		if c.Stop.ATRMult <= 0 {
			return fmt.Errorf("%w: stop.atr_mult must be positive, got %.2f", ErrInvalidConfig, c.Stop.ATRMult)
		}
	default:
		return fmt.Errorf("%w: stop.mode must be 'PCT' or 'ATR', got '%s'", ErrInvalidConfig, c.Stop.Mode)
	}
	if c.Stop.TakeProfitRR <= 0 {
		return fmt.Errorf("%w: stop.take_profit_rr must be positive, got %.2f", ErrInvalidConfig, c.Stop.TakeProfitRR)
	}
	switch c.Execution.Policy {
	case "intrabar", "close_only":
	default:
		return fmt.Errorf("%w: execution.policy must be 'intrabar' or 'close_only', got '%s'", ErrInvalidConfig, c.Execution.Policy)
	}
	if c.Execution.SlippagePct < 0 || c.Execution.SlippagePct >= 1 {
		return fmt.Errorf("%w: execution.slippage_pct must be a fraction in [0, 1), got %v", ErrInvalidConfig, c.Execution.SlippagePct)
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("%w: backtest.initial_cash must be positive", ErrInvalidConfig)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm.requests_per_minute cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) qtyFields() map[string]string {
	out := map[string]string{
		"qty.default_buy":  c.Qty.DefaultBuy,
		"qty.default_sell": c.Qty.DefaultSell,
	}
	for sym, q := range c.Qty.PerSymbol {
		out["qty.per_symbol."+sym] = q
	}
	return out
}

// Periods maps the indicators section onto ta lookbacks. Zero values fall
// back to the ta defaults.
func (c *Config) Periods() ta.Periods {
	in := c.Indicators
	return ta.Periods{
		RSI:         in.RSIPeriod,
		ATR:         in.ATRPeriod,
		ADX:         in.ADXPeriod,
		BBWindow:    in.BBWindow,
		BBStdDev:    in.BBStdDev,
		MACDSignal:  in.MACDSignal,
		StochK:      in.StochK,
		StochD:      in.StochD,
		MFI:         in.MFIPeriod,
		WilliamsR:   in.WilliamsR,
		CCI:         in.CCIPeriod,
		OBVLookback: in.OBVLookback,
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, applies defaults and env overrides, then validates.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.QuoteCurrency == "" {
		c.QuoteCurrency = "USDT"
	}
	c.QuoteCurrency = strings.ToUpper(c.QuoteCurrency)
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.Qty.DefaultBuy == "" {
		c.Qty.DefaultBuy = "0.01"
	}
	if c.Qty.DefaultSell == "" {
		c.Qty.DefaultSell = c.Qty.DefaultBuy
	}
	if c.Stop.Mode == "" {
		c.Stop.Mode = "PCT"
	}
	if c.Stop.Pct == 0 {
		c.Stop.Pct = 2
	}
	if c.Stop.ATRMult == 0 {
		c.Stop.ATRMult = 2
	}
	if c.Stop.TakeProfitRR == 0 {
		c.Stop.TakeProfitRR = 2
	}
	if c.Indicators.Lookback == 0 {
		c.Indicators.Lookback = 100
	}
	if c.Execution.Policy == "" {
		c.Execution.Policy = "intrabar"
	}
	c.Execution.Policy = strings.ToLower(c.Execution.Policy)
	if c.Execution.SlippagePct == 0 {
		c.Execution.SlippagePct = 0.001
	}
	if c.Backtest.Warmup == 0 {
		c.Backtest.Warmup = 60
	}
	if c.Backtest.InitialCash == 0 {
		c.Backtest.InitialCash = 10000
	}
	if c.Risk.AccountValue == 0 {
		c.Risk.AccountValue = c.Backtest.InitialCash
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "rules"
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = 20
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.TradeLog.Dir == "" {
		c.TradeLog.Dir = "logs"
	}
	if c.Paper.Warmup == 0 {
		c.Paper.Warmup = c.Indicators.Lookback
	}
}

// applyEnv lets a few settings be overridden without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRADER_MODE"); v != "" {
		c.Mode = strings.ToUpper(v)
	}
	if v := os.Getenv("EXECUTION_POLICY"); v != "" {
		c.Execution.Policy = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("BACKTEST_CSV"); v != "" {
		c.Backtest.CSV = v
	}
	if v, err := strconv.Atoi(os.Getenv("TRADER_LOG_RETENTION_DAYS")); err == nil {
		c.TradeLog.RetentionDays = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SLIPPAGE_PCT"), 64); err == nil {
		c.Execution.SlippagePct = v
	}
}
