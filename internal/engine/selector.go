package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// Selector decides which candidate agents reply to a turn.
type Selector struct {
	mu  sync.Mutex
	rng RandomSource
}

// NewSelector creates a selector drawing from rng. A nil rng uses a
// time-seeded PCG generator.
func NewSelector(rng RandomSource) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Selector{rng: rng}
}

// Select runs an independent trial per candidate and keeps the agent when
// the draw falls below its response rate. A non-empty candidate set never
// yields an empty selection: the first candidate is included instead.
func (s *Selector) Select(candidates []models.Agent) []models.Agent {
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	selected := make([]models.Agent, 0, len(candidates))
	for _, a := range candidates {
		if s.rng.Float64() < a.ResponseRate {
			selected = append(selected, a)
		}
	}
	s.mu.Unlock()

	if len(selected) == 0 {
		selected = append(selected, candidates[0])
	}
	return selected
}
