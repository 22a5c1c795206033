package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// CustomAgentLister fetches a user's custom agents, most recent first.
type CustomAgentLister interface {
	ListCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, error)
}

// RosterCache caches custom agent lists per user.
type RosterCache interface {
	GetCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, bool, error)
	SetCustomAgents(ctx context.Context, userID string, agents []models.CustomAgent) error
	InvalidateCustomAgents(ctx context.Context, userID string) error
}

// Registry merges the built-in table with a user's custom agents.
type Registry struct {
	builtin []models.Agent
	store   CustomAgentLister
	cache   RosterCache
	logger  zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithBuiltin replaces the built-in agent table.
func WithBuiltin(table []models.Agent) Option {
	return func(r *Registry) {
		r.builtin = append([]models.Agent(nil), table...)
	}
}

// WithCache reads custom agent lists through cache. A nil cache is ignored.
func WithCache(cache RosterCache) Option {
	return func(r *Registry) {
		r.cache = cache
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store CustomAgentLister, opts ...Option) *Registry {
	r := &Registry{
		builtin: Builtin(),
		store:   store,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRoster returns the built-in agents followed by the user's custom
// agents in reverse creation order.
func (r *Registry) ResolveRoster(ctx context.Context, userID string) ([]models.Agent, error) {
	custom, err := r.customAgents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom agents: %w", err)
	}

	roster := make([]models.Agent, 0, len(r.builtin)+len(custom))
	roster = append(roster, r.builtin...)
	for _, c := range custom {
		roster = append(roster, c.ToAgent())
	}
	return roster, nil
}

// Invalidate drops the cached custom agent list for userID.
func (r *Registry) Invalidate(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateCustomAgents(ctx, userID); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("roster cache invalidation failed")
	}
}

func (r *Registry) customAgents(ctx context.Context, userID string) ([]models.CustomAgent, error) {
	if r.cache != nil {
		cached, ok, err := r.cache.GetCustomAgents(ctx, userID)
		if err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("roster cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	custom, err := r.store.ListCustomAgents(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetCustomAgents(ctx, userID, custom); err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("roster cache fill failed")
		}
	}
	return custom, nil
}

// Lookup returns the agent with the given id from roster.
func Lookup(roster []models.Agent, id string) (models.Agent, bool) {
	for _, a := range roster {
		if a.ID == id {
			return a, true
		}
	}
	return models.Agent{}, false
}
