package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/forPelevin/matchcut/internal/domain/classify"
	"github.com/forPelevin/matchcut/internal/types"
)

// Options configure the adapter. HTTPClient is optional.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	AllowedHosts []string
	Timeout      time.Duration
	MinScore     float64
	HTTPClient   *http.Client

	// RequestInterval spaces consecutive batch requests.
	RequestInterval time.Duration
}

// Adapter labels commentary windows with a chat completion model served
// through OpenRouter. Windows the model does not label, and whole batches
// whose reply cannot be decoded, are labeled by the lexical classifier.
type Adapter struct {
	client   *openai.Client
	key      string
	model    string
	timeout  time.Duration
	minScore float64
	limiter  *rate.Limiter
	lexical  *classify.Classifier
}

const (
	defaultModel   = "z-ai/glm-4.5-air:free"
	defaultTimeout = 90 * time.Second
	batchWindows   = 120
)

func New(opts Options, lexical *classify.Classifier) (*Adapter, error) {
	if lexical == nil {
		return nil, errors.New("openrouter: lexical classifier is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openrouter: OPENROUTER_API_KEY is not set")
	}
	if err := ValidateBaseURL(opts.BaseURL, opts.AllowedHosts); err != nil {
		return nil, err
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = normalizeBaseURL(opts.BaseURL) + "/api/v1"
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &Adapter{
		client:   openai.NewClientWithConfig(cfg),
		key:      opts.APIKey,
		model:    opts.Model,
		timeout:  opts.Timeout,
		minScore: opts.MinScore,
		limiter:  rate.NewLimiter(limit, 1),
		lexical:  lexical,
	}, nil
}

type promptWindow struct {
	Idx      int     `json:"idx"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

type labeled struct {
	Idx   int     `json:"idx"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify returns at most one moment per transcript window, in transcript
// order. Transport failures are returned; undecodable replies are not.
func (a *Adapter) Classify(ctx context.Context, tr types.Transcript) ([]types.AudioMoment, error) {
	windows := classify.BuildWindows(classify.Words(tr), a.lexical.Window())
	var out []types.AudioMoment
	for lo := 0; lo < len(windows); lo += batchWindows {
		hi := min(lo+batchWindows, len(windows))
		batch := windows[lo:hi]
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		got, err := a.classifyBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

func (a *Adapter) classifyBatch(ctx context.Context, windows []classify.Window) ([]types.AudioMoment, error) {
	arr := make([]promptWindow, 0, len(windows))
	for i, w := range windows {
		arr = append(arr, promptWindow{Idx: i, StartSec: w.Start, EndSec: w.End, Text: w.Text})
	}
	pb, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("marshal prompt: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Windows JSON:\n" + string(pb)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter timeout after %s (model=%s)", a.timeout, a.model)
		}
		return nil, fmt.Errorf("openrouter: %s", truncate(redactSecrets(err.Error(), a.key), 400))
	}
	if len(resp.Choices) == 0 {
		return a.lexical.ClassifyWindows(windows), nil
	}
	labels, err := decodeLabels(resp.Choices[0].Message.Content)
	if err != nil {
		return a.lexical.ClassifyWindows(windows), nil
	}
	return a.merge(windows, labels), nil
}

// merge keeps the best valid model label per window and lets the lexical
// classifier fill windows the model left unlabeled.
func (a *Adapter) merge(windows []classify.Window, labels []labeled) []types.AudioMoment {
	best := make(map[int]labeled, len(labels))
	for _, l := range labels {
		if l.Idx < 0 || l.Idx >= len(windows) {
			continue
		}
		l.Label = classify.Clean(l.Label)
		if !knownLabel(types.EventLabel(l.Label)) || math.IsNaN(l.Score) || l.Score <= a.minScore {
			continue
		}
		if cur, ok := best[l.Idx]; ok && cur.Score >= l.Score {
			continue
		}
		best[l.Idx] = l
	}

	var out []types.AudioMoment
	for i, w := range windows {
		if l, ok := best[i]; ok {
			out = append(out, types.AudioMoment{
				Start: w.Start,
				End:   w.End,
				Label: types.EventLabel(l.Label),
				Text:  w.Text,
				Score: math.Round(min(l.Score, 1)*100) / 100,
			})
			continue
		}
		out = append(out, a.lexical.ClassifyWindows([]classify.Window{w})...)
	}
	return out
}

func decodeLabels(content string) ([]labeled, error) {
	clean, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}
	var out struct {
		Moments []labeled `json:"moments"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("openrouter: decode moments: %w", err)
	}
	return out.Moments, nil
}

func knownLabel(l types.EventLabel) bool {
	switch l {
	case types.LabelGoal, types.LabelChance, types.LabelSave, types.LabelCard,
		types.LabelPenalty, types.LabelShot, types.LabelExcitement:
		return true
	}
	return false
}

const systemPrompt = "You label short windows of live football commentary. " +
	"For each window that describes a notable moment, return its idx, one label out of " +
	"goal, chance, save, card, penalty, shot, excitement, and a confidence score between 0 and 1. " +
	"Skip windows that describe nothing notable. " +
	`Return strictly valid JSON (no markdown, no code fences) shaped as {"moments":[{"idx":0,"label":"goal","score":0.9}]}.`

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
