package oracle

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/hours"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

const (
	// DefaultModel is used when the config leaves the model empty.
	DefaultModel = "claude-haiku-4-5-20251001"
	// DefaultMaxTokens bounds the size of the answer.
	DefaultMaxTokens = 2048
	// DefaultMaxInputChars bounds how much site text is sent.
	DefaultMaxInputChars = 24000
)

const systemPrompt = `You read the text of a small business website and return one JSON object, with no prose, of the form:
{"name": string, "address": string, "phone": string, "email": string,
 "openingHours": [{"weekday": 1-7 (Monday=1), "open": "HH:MM", "close": "HH:MM"}],
 "services": [{"name": string, "description": string, "durationMinutes": number|null,
               "priceFrom": number|null, "priceTo": number|null, "isCore": boolean}]}
Use empty strings, empty arrays, or null for anything the text does not state. Never invent values.`

// AnthropicConfig configures the Anthropic-backed oracle.
type AnthropicConfig struct {
	APIKey        string
	Model         string
	MaxTokens     int64
	MaxInputChars int
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
}

// Anthropic implements Oracle with the Messages API.
type Anthropic struct {
	client sdk.Client
	cfg    AnthropicConfig
	logger *zap.Logger
}

// NewAnthropic builds the oracle. Empty fields take the package defaults.
func NewAnthropic(cfg AnthropicConfig, logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{client: sdk.NewClient(opts...), cfg: cfg, logger: logger}
}

// Extract implements Oracle.
func (a *Anthropic) Extract(ctx context.Context, text string) (profile.Guess, error) {
	text = truncate(strings.TrimSpace(text), a.cfg.MaxInputChars)
	if text == "" {
		return profile.Guess{}, nil
	}

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.cfg.Model),
		MaxTokens: a.cfg.MaxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(text))},
	})
	if err != nil {
		return profile.Guess{}, eris.Wrap(err, "oracle: create message")
	}
	a.logger.Debug("oracle answered",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	var answer strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			answer.WriteString(block.Text)
		}
	}
	guess, err := ParseGuess(answer.String())
	if err != nil {
		return profile.Guess{}, eris.Wrap(err, "oracle: parse answer")
	}
	return guess, nil
}

type wireHours struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type wireService struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	DurationMinutes *int     `json:"durationMinutes"`
	PriceFrom       *float64 `json:"priceFrom"`
	PriceTo         *float64 `json:"priceTo"`
	IsCore          bool     `json:"isCore"`
}

type wireGuess struct {
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email"`
	OpeningHours []wireHours   `json:"openingHours"`
	Services     []wireService `json:"services"`
}

// ParseGuess decodes the model's JSON answer, tolerating Markdown fences and
// surrounding prose.
func ParseGuess(answer string) (profile.Guess, error) {
	start := strings.IndexByte(answer, '{')
	end := strings.LastIndexByte(answer, '}')
	if start < 0 || end < start {
		return profile.Guess{}, eris.New("no JSON object in answer")
	}
	var w wireGuess
	if err := json.Unmarshal([]byte(answer[start:end+1]), &w); err != nil {
		return profile.Guess{}, eris.Wrap(err, "decode answer")
	}

	g := profile.Guess{
		Name:    strings.TrimSpace(w.Name),
		Address: strings.TrimSpace(w.Address),
		Phone:   strings.TrimSpace(w.Phone),
		Email:   strings.TrimSpace(w.Email),
	}
	for _, h := range w.OpeningHours {
		open, okOpen := hours.Clock(h.Open)
		closeAt, okClose := hours.Clock(h.Close)
		day := profile.DayHours{Weekday: profile.Weekday(h.Weekday), Open: open, Close: closeAt}
		if !okOpen || !okClose || !day.Valid() {
			continue
		}
		g.OpeningHours = append(g.OpeningHours, day)
	}
	for _, s := range w.Services {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		g.Services = append(g.Services, profile.Service{
			Name:            name,
			Description:     strings.TrimSpace(s.Description),
			DurationMinutes: s.DurationMinutes,
			PriceFrom:       s.PriceFrom,
			PriceTo:         s.PriceTo,
			IsCore:          s.IsCore,
		})
	}
	return g, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
