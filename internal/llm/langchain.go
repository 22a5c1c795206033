package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChain drives any langchaingo model with a single prompt.
type LangChain struct {
	provider Provider
	llm      llms.Model
	opts     Options
}

// NewLangChain wraps an existing langchaingo model.
func NewLangChain(provider Provider, model llms.Model, opts Options) *LangChain {
	return &LangChain{provider: provider, llm: model, opts: opts}
}

func newGemini(ctx context.Context, opts Options) (*LangChain, error) {
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(opts.APIKey),
		googleai.WithDefaultModel(opts.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini model: %w", err)
	}
	return NewLangChain(ProviderGemini, model, opts), nil
}

func newOllama(opts Options) (*LangChain, error) {
	serverURL := opts.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}
	model, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(opts.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama model: %w", err)
	}
	return NewLangChain(ProviderOllama, model, opts), nil
}

// Generate implements Generator.
func (l *LangChain) Generate(ctx context.Context, prompt string) (string, error) {
	callOptions := []llms.CallOption{
		llms.WithModel(l.opts.Model),
		llms.WithTemperature(l.opts.Temperature),
	}
	if l.opts.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(l.opts.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, l.llm, prompt, callOptions...)
	if err != nil {
		return "", classify(l.provider, err)
	}
	return finish(l.provider, text)
}
