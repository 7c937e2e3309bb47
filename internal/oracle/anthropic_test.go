package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

const answer = "```json\n" + `{"name":"Salon Ivy","address":"Vinohradská 12, Praha","phone":"608 744 774","email":"",
"openingHours":[{"weekday":1,"open":"09:00","close":"18:00"}],
"services":[{"name":"pánský střih","description":"","durationMinutes":30,"priceFrom":null,"priceTo":null,"isCore":true},{"name":" "}]}` + "\n```"

func TestAnthropicExtract(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       DefaultModel,
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": answer}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer ts.Close()

	o := NewAnthropic(AnthropicConfig{APIKey: "test-key", BaseURL: ts.URL, MaxInputChars: 5}, zap.NewNop())
	guess, err := o.Extract(context.Background(), "Salon Ivy, Praha")
	require.NoError(t, err)

	require.Equal(t, "Salon Ivy", guess.Name)
	require.Equal(t, "608 744 774", guess.Phone)
	require.Equal(t, []profile.DayHours{{Weekday: profile.Monday, Open: "09:00", Close: "18:00"}}, guess.OpeningHours)
	require.Len(t, guess.Services, 1)
	require.Equal(t, 30, *guess.Services[0].DurationMinutes)
	require.True(t, guess.Services[0].IsCore)

	msgs := gotBody["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Equal(t, "Salon", content[0].(map[string]any)["text"])
	require.Equal(t, DefaultModel, gotBody["model"])
}

func TestAnthropicExtractAPIError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer ts.Close()

	o := NewAnthropic(AnthropicConfig{APIKey: "test-key", BaseURL: ts.URL}, nil)
	_, err := o.Extract(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "oracle: create message")
}

func TestEmptyTextSkipsCall(t *testing.T) {
	t.Parallel()

	o := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
	guess, err := o.Extract(context.Background(), "   ")
	require.NoError(t, err)
	require.Equal(t, profile.Guess{}, guess)
}

func TestParseGuessRejectsProse(t *testing.T) {
	t.Parallel()

	_, err := ParseGuess("I could not find anything.")
	require.Error(t, err)

	_, err = ParseGuess("{not json}")
	require.Error(t, err)
}

func TestParseGuessNormalizesHours(t *testing.T) {
	t.Parallel()

	guess, err := ParseGuess(`{"openingHours":[
		{"weekday":1,"open":"9:00","close":"18.30"},
		{"weekday":2,"open":"09:00:00","close":"17:00"},
		{"weekday":6,"open":"closed","close":""},
		{"weekday":7,"open":"10:00","close":"zavřeno"},
		{"weekday":9,"open":"10:00","close":"12:00"}]}`)
	require.NoError(t, err)
	require.Equal(t, []profile.DayHours{
		{Weekday: profile.Monday, Open: "09:00", Close: "18:30"},
		{Weekday: profile.Tuesday, Open: "09:00", Close: "17:00"},
	}, guess.OpeningHours)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	guess, err := Noop{}.Extract(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, profile.Guess{}, guess)
}
