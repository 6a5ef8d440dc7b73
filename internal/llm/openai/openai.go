package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"llm-crypto-trader/internal/api"
	"llm-crypto-trader/internal/scoring"
	"llm-crypto-trader/internal/store"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/types"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY missing")

type Decider struct {
	cfg      *store.Config
	apiKey   string
	endpoint string
	httpc    *http.Client
	client   *api.Client
	limiter  *rate.Limiter
}

type Option func(*Decider)

// WithEndpoint points the decider at a compatible chat completions URL.
func WithEndpoint(url string) Option {
	return func(d *Decider) { d.endpoint = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(d *Decider) { d.httpc = c }
}

func WithAPIKey(key string) Option {
	return func(d *Decider) { d.apiKey = key }
}

// New builds a decider limited to cfg.LLM.RequestsPerMinute calls. The key
// defaults to OPENAI_API_KEY and the endpoint to OPENAI_API_ENDPOINT.
func New(cfg *store.Config, opts ...Option) *Decider {
	d := &Decider{
		cfg:      cfg,
		apiKey:   os.Getenv("OPENAI_API_KEY"),
		endpoint: defaultEndpoint,
	}
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		d.endpoint = ep
	}
	rpm := cfg.LLM.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	for _, o := range opts {
		o(d)
	}

	d.client = api.NewClient(api.WithHTTPClient(d.httpc), api.WithLogging(true))
	return d
}

// Decide sends the candle, indicators, scorer verdict and caller context to
// the model and parses its JSON answer. A reply that is not valid JSON yields
// HOLD rather than an error.
func (d *Decider) Decide(ctx context.Context, symbol string, latest types.Candle, inds types.Indicators, ctxmap map[string]any) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if d.apiKey == "" {
		return types.Decision{}, ErrMissingAPIKey
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return types.Decision{}, fmt.Errorf("openai rate limit: %w", err)
	}

	user := map[string]any{
		"symbol":     symbol,
		"latest":     latest,
		"indicators": inds,
		"score":      scoring.Score(inds, latest.Close.Float64()).ToMap(),
		"context":    ctxmap,
	}
	ub, err := json.Marshal(user)
	if err != nil {
		return types.Decision{}, fmt.Errorf("marshal state: %w", err)
	}
	prompt := fmt.Sprintf("You will receive state as JSON. Respond ONLY with compact JSON matching the schema.\nSchema:%s\nState:%s", d.cfg.LLM.Schema, string(ub))

	body := map[string]any{
		"model":       d.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "system", "content": d.cfg.LLM.System}, {"role": "user", "content": prompt}},
		"temperature": d.cfg.LLM.Temperature,
		"max_tokens":  d.cfg.LLM.MaxTokens,
	}
	resp, err := d.client.PostJSON(ctx, d.endpoint, body, map[string]string{"Authorization": "Bearer " + d.apiKey})
	if err != nil {
		return types.Decision{}, fmt.Errorf("openai: %w", err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return types.Decision{}, err
	}
	if len(r.Choices) == 0 {
		return types.Decision{}, errors.New("no choices")
	}

	return parseDecision(r.Choices[0].Message.Content), nil
}

func parseDecision(content string) types.Decision {
	out := strings.TrimSpace(content)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")

	var dres types.Decision
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &dres); err != nil {
		return types.Decision{Action: string(types.ActionHold), Reason: "invalid_json", Confidence: 0.0}
	}

	dres.Action = string(types.ParseAction(dres.Action))
	if dres.Confidence < 0 || dres.Confidence > 1 {
		dres.Confidence = 0.0
	}
	return dres
}
