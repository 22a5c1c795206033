package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced limits how fast calls reach the wrapped generator. Callers block
// until a token is available or their context ends.
type Paced struct {
	next    Generator
	limiter *rate.Limiter
}

// NewPaced allows perSecond calls per second with the given burst.
func NewPaced(next Generator, perSecond float64, burst int) *Paced {
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate implements Generator.
func (p *Paced) Generate(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", classify("paced", err)
	}
	return p.next.Generate(ctx, prompt)
}
