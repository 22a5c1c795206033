// Package engine runs a chat turn: it picks which agents reply to a user
// message, calls them concurrently and joins their replies in selection
// order.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sahil21666x/KE-PersonasAI/internal/ids"
	"github.com/Sahil21666x/KE-PersonasAI/internal/llm"
	"github.com/Sahil21666x/KE-PersonasAI/internal/metrics"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// TurnState is a step of a turn's lifecycle.
type TurnState string

const (
	StateReceived    TurnState = "received"
	StateSelecting   TurnState = "selecting"
	StateDispatched  TurnState = "dispatched"
	StateAggregating TurnState = "aggregating"
	StateCompleted   TurnState = "completed"
)

// CallFailure records why one selected agent produced no reply.
type CallFailure struct {
	AgentID string
	Err     error
}

// TurnResult is the outcome of one turn. RespondingAgents counts attempted
// calls, so it exceeds len(Agents) when some calls failed.
type TurnResult struct {
	Agents           []models.AgentResponse `json:"agents"`
	TotalAgents      int                    `json:"totalAgents"`
	RespondingAgents int                    `json:"respondingAgents"`
	Failures         []CallFailure          `json:"-"`
}

// EventType names a streamed turn event.
type EventType string

const (
	EventSelected EventType = "selected"
	EventAgent    EventType = "agent"
	EventDone     EventType = "done"
)

// TurnEvent is emitted by StreamTurn.
type TurnEvent struct {
	Type     EventType
	Selected []models.Agent        // EventSelected
	Response *models.AgentResponse // EventAgent
	Result   *TurnResult           // EventDone
}

// Orchestrator coordinates selection and concurrent responder calls.
type Orchestrator struct {
	selector  *Selector
	responder AgentResponder
	timeout   time.Duration
	logger    zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSelector replaces the default selector.
func WithSelector(s *Selector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithResponder replaces the responder built from the generator.
func WithResponder(r AgentResponder) Option {
	return func(o *Orchestrator) { o.responder = r }
}

// WithCallTimeout sets the per-agent call timeout of the default responder.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over gen. A nil gen leaves the orchestrator
// unconfigured: every turn then fails with ErrConfiguration unless a
// responder is supplied with WithResponder.
func New(gen llm.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		timeout: DefaultCallTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.selector == nil {
		o.selector = NewSelector(nil)
	}
	if o.responder == nil && gen != nil {
		o.responder = NewResponder(gen, o.timeout, o.logger)
	}
	return o
}

// Configured reports whether turns can reach a generation backend.
func (o *Orchestrator) Configured() bool {
	return o.responder != nil
}

// RunTurn selects responders among the roster agents listed in
// activeAgentIDs, calls them concurrently and returns their replies in
// selection order. Failed agent calls are dropped from Agents and listed in
// Failures; only a blank message or a missing backend fail the turn.
func (o *Orchestrator) RunTurn(ctx context.Context, userMessage string, roster []models.Agent, activeAgentIDs []string) (*TurnResult, error) {
	return o.run(ctx, userMessage, roster, activeAgentIDs, nil)
}

// StreamTurn runs a turn like RunTurn and reports progress through emit:
// one EventSelected, then an EventAgent per reply as soon as it and every
// reply selected before it are ready, then EventDone. emit is called from
// the caller's goroutine only.
func (o *Orchestrator) StreamTurn(ctx context.Context, userMessage string, roster []models.Agent, activeAgentIDs []string, emit func(TurnEvent)) (*TurnResult, error) {
	return o.run(ctx, userMessage, roster, activeAgentIDs, emit)
}

func (o *Orchestrator) run(ctx context.Context, userMessage string, roster []models.Agent, activeAgentIDs []string, emit func(TurnEvent)) (*TurnResult, error) {
	turnID := ids.NewUUIDv7().String()
	log := o.logger.With().Str("turn_id", turnID).Logger()
	state := func(s TurnState) {
		log.Debug().Str("state", string(s)).Msg("turn state")
	}
	state(StateReceived)

	if strings.TrimSpace(userMessage) == "" {
		metrics.TurnsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !o.Configured() {
		metrics.TurnsTotal.WithLabelValues("unconfigured").Inc()
		return nil, fmt.Errorf("%w: generation backend unavailable", ErrConfiguration)
	}

	state(StateSelecting)
	candidates := restrict(roster, activeAgentIDs)
	selected := o.selector.Select(candidates)
	metrics.AgentsSelected.Observe(float64(len(selected)))
	if emit != nil {
		emit(TurnEvent{Type: EventSelected, Selected: selected})
	}

	state(StateDispatched)
	results := make([]CallResult, len(selected))
	done := make(chan int, len(selected))
	for i, agent := range selected {
		go func(i int, agent models.Agent) {
			results[i] = o.responder.Respond(ctx, agent, userMessage)
			done <- i
		}(i, agent)
	}

	state(StateAggregating)
	result := &TurnResult{
		Agents:           make([]models.AgentResponse, 0, len(selected)),
		TotalAgents:      len(candidates),
		RespondingAgents: len(selected),
	}
	finished := make([]bool, len(selected))
	next := 0
	for range selected {
		finished[<-done] = true
		// release the finished prefix so output order equals selection order
		for next < len(selected) && finished[next] {
			r := results[next]
			if r.OK() {
				result.Agents = append(result.Agents, *r.Response)
				if emit != nil {
					emit(TurnEvent{Type: EventAgent, Response: r.Response})
				}
			} else {
				result.Failures = append(result.Failures, CallFailure{AgentID: r.Agent.ID, Err: r.Err})
			}
			next++
		}
	}

	state(StateCompleted)
	metrics.TurnsTotal.WithLabelValues("completed").Inc()
	log.Info().
		Int("total_agents", result.TotalAgents).
		Int("responding_agents", result.RespondingAgents).
		Int("replies", len(result.Agents)).
		Int("failures", len(result.Failures)).
		Msg("turn completed")

	if emit != nil {
		emit(TurnEvent{Type: EventDone, Result: result})
	}
	return result, nil
}

// restrict keeps the roster agents whose ids are active, in roster order.
func restrict(roster []models.Agent, activeAgentIDs []string) []models.Agent {
	active := make(map[string]struct{}, len(activeAgentIDs))
	for _, id := range activeAgentIDs {
		active[id] = struct{}{}
	}
	candidates := make([]models.Agent, 0, len(activeAgentIDs))
	for _, a := range roster {
		if _, ok := active[a.ID]; ok {
			candidates = append(candidates, a)
		}
	}
	return candidates
}
