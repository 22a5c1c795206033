// Package llm adapts text-generation providers behind a single-shot
// Generator interface. Each call is stateless: one prompt in, one reply out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names a generation backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

var (
	// ErrNotConfigured is returned by New when the provider has no credentials.
	ErrNotConfigured = errors.New("generation backend not configured")

	// ErrGeneration is wrapped by every failure of a Generate call.
	ErrGeneration    = errors.New("generation failed")
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrGeneration)
	ErrQuota         = fmt.Errorf("%w: quota exceeded", ErrGeneration)
	ErrTimeout       = fmt.Errorf("%w: timed out", ErrGeneration)
)

// Options configure a generator.
type Options struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultModel returns the model used when Options.Model is empty.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderOllama:
		return "llama3"
	default:
		return "gemini-2.5-flash"
	}
}

// New builds the generator for opts.Provider. It returns ErrNotConfigured
// when a hosted provider has no API key, so callers can start without one.
func New(ctx context.Context, opts Options) (Generator, error) {
	if opts.Provider == "" {
		opts.Provider = ProviderGemini
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	if opts.Provider != ProviderOllama && opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key missing", ErrNotConfigured, opts.Provider)
	}

	switch opts.Provider {
	case ProviderGemini:
		return newGemini(ctx, opts)
	case ProviderOllama:
		return newOllama(opts)
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderAnthropic:
		return NewAnthropic(opts), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
}

// classify maps a provider error onto the package sentinels.
func classify(p Provider, err error) error {
	if errors.Is(err, ErrGeneration) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", p, ErrTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return fmt.Errorf("%s: %w: %w", p, ErrQuota, err)
	}
	return fmt.Errorf("%s: %w: %w", p, ErrGeneration, err)
}

// finish trims a completion and rejects blank output.
func finish(p Provider, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", p, ErrEmptyResponse)
	}
	return text, nil
}
