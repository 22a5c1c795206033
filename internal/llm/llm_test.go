package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestNew_MissingAPIKey(t *testing.T) {
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		_, err := New(context.Background(), Options{Provider: p})
		assert.ErrorIs(t, err, ErrNotConfigured, "provider %s", p)
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "cohere", APIKey: "k"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"timeout", context.DeadlineExceeded, ErrTimeout},
		{"quota", errors.New("googleapi: Error 429: Resource has been exhausted"), ErrQuota},
		{"quota text", errors.New("Quota exceeded for metric"), ErrQuota},
		{"other", errors.New("invalid api key"), ErrGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(ProviderGemini, tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, ErrGeneration)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestOpenAI_Generate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Sounds great!  "}}]
		}`))
	}))
	defer srv.Close()

	gen := NewOpenAI(Options{APIKey: "test-key", BaseURL: srv.URL + "/"})
	text, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Sounds great!", text)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
}

func TestOpenAI_ServerErrorWrapsGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota", "type": "insufficient_quota"}}`))
	}))
	defer srv.Close()

	gen := NewOpenAI(Options{APIKey: "test-key", BaseURL: srv.URL + "/"})
	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrQuota)
}

func TestAnthropic_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Keep it short."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	gen := NewAnthropic(Options{APIKey: "test-key", BaseURL: srv.URL + "/"})
	text, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Keep it short.", text)
}

func TestAnthropic_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-3-5-haiku-latest", "content": [], "stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 0}}`))
	}))
	defer srv.Close()

	gen := NewAnthropic(Options{APIKey: "test-key", BaseURL: srv.URL + "/"})
	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

// fakeModel is a langchaingo model returning a canned completion.
type fakeModel struct {
	text   string
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tp, ok := p.(llms.TextContent); ok {
				f.prompt += tp.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.text}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChain_Generate(t *testing.T) {
	model := &fakeModel{text: "\nA bold idea.\n"}
	gen := NewLangChain(ProviderGemini, model, Options{Model: "gemini-2.5-flash"})

	text, err := gen.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "A bold idea.", text)
	assert.Equal(t, "the prompt", model.prompt)
}

func TestLangChain_BlankCompletion(t *testing.T) {
	gen := NewLangChain(ProviderGemini, &fakeModel{text: "   "}, Options{})
	_, err := gen.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLangChain_ErrorClassified(t *testing.T) {
	gen := NewLangChain(ProviderOllama, &fakeModel{err: errors.New("connection refused")}, Options{})
	_, err := gen.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrGeneration)
}

type countingGenerator struct{ calls int }

func (c *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls++
	return "ok", nil
}

func TestPaced_PassesThrough(t *testing.T) {
	next := &countingGenerator{}
	gen := NewPaced(next, 1000, 5)
	for i := 0; i < 3; i++ {
		out, err := gen.Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	assert.Equal(t, 3, next.calls)
}

func TestPaced_ContextEndsWhileWaiting(t *testing.T) {
	next := &countingGenerator{}
	gen := NewPaced(next, 0.001, 1)

	_, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, "p")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 1, next.calls)
}
