package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sahil21666x/KE-PersonasAI/internal/llm"
	"github.com/Sahil21666x/KE-PersonasAI/internal/metrics"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// DefaultCallTimeout bounds a single agent's generation call.
const DefaultCallTimeout = 30 * time.Second

// CallResult is the outcome of one agent's generation call. Exactly one of
// Response and Err is set.
type CallResult struct {
	Agent    models.Agent
	Response *models.AgentResponse
	Err      error
	Duration time.Duration
}

// OK reports whether the call produced a response.
func (r CallResult) OK() bool {
	return r.Err == nil && r.Response != nil
}

// AgentResponder produces one agent's reply to a user message.
type AgentResponder interface {
	Respond(ctx context.Context, agent models.Agent, userMessage string) CallResult
}

// Responder calls the generation backend for a single agent and isolates
// its failures from the rest of the turn.
type Responder struct {
	gen     llm.Generator
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewResponder creates a responder. A non-positive timeout uses DefaultCallTimeout.
func NewResponder(gen llm.Generator, timeout time.Duration, logger zerolog.Logger) *Responder {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Responder{gen: gen, timeout: timeout, logger: logger, now: time.Now}
}

// Respond builds the agent's prompt and invokes the backend once. Any
// failure, including a panic inside the backend client, is logged and
// returned in CallResult.Err wrapping ErrAgentCall.
func (r *Responder) Respond(ctx context.Context, agent models.Agent, userMessage string) (result CallResult) {
	result.Agent = agent
	start := r.now()

	defer func() {
		if p := recover(); p != nil {
			result.Response = nil
			result.Err = fmt.Errorf("%w: %s: panic: %v", ErrAgentCall, agent.ID, p)
		}
		result.Duration = r.now().Sub(start)
		r.observe(result)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, BuildPrompt(agent, userMessage))
	if err != nil {
		result.Err = fmt.Errorf("%w: %s: %w", ErrAgentCall, agent.ID, err)
		return result
	}
	text = strings.TrimSpace(text)
	if text == "" {
		result.Err = fmt.Errorf("%w: %s: %w", ErrAgentCall, agent.ID, llm.ErrEmptyResponse)
		return result
	}

	result.Response = &models.AgentResponse{
		AgentID:     agent.ID,
		AgentName:   agent.Name,
		Avatar:      agent.Avatar,
		Personality: agent.Personality,
		Response:    text,
		Timestamp:   r.now().UTC(),
	}
	return result
}

func (r *Responder) observe(result CallResult) {
	metrics.AgentCallDuration.Observe(result.Duration.Seconds())
	if result.Err != nil {
		metrics.AgentCallsTotal.WithLabelValues("failure").Inc()
		r.logger.Warn().
			Err(result.Err).
			Str("agent_id", result.Agent.ID).
			Dur("latency", result.Duration).
			Msg("agent call failed")
		return
	}
	metrics.AgentCallsTotal.WithLabelValues("success").Inc()
	r.logger.Debug().
		Str("agent_id", result.Agent.ID).
		Dur("latency", result.Duration).
		Msg("agent responded")
}
