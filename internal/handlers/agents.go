package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/engine"
	"github.com/Sahil21666x/KE-PersonasAI/internal/ids"
	"github.com/Sahil21666x/KE-PersonasAI/internal/metrics"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// AgentsResponse lists agents.
type AgentsResponse struct {
	Success bool           `json:"success"`
	Agents  []models.Agent `json:"agents"`
}

// CreateAgentRequest represents the custom agent creation request.
type CreateAgentRequest struct {
	Name         string  `json:"name"`
	Avatar       string  `json:"avatar,omitempty"`
	Color        string  `json:"color,omitempty"`
	Personality  string  `json:"personality"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	ResponseRate float64 `json:"responseRate,omitempty"`
}

// CreateAgentResponse represents the custom agent creation response.
type CreateAgentResponse struct {
	Success bool         `json:"success"`
	Agent   models.Agent `json:"agent"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListAgents returns the merged roster: built-in agents, then custom agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	roster, err := h.registry.ResolveRoster(r.Context(), userID)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	h.JSON(w, http.StatusOK, AgentsResponse{Success: true, Agents: roster})
}

// ListCustomAgents returns the caller's custom agents, most recent first.
func (h *Handler) ListCustomAgents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	custom, err := h.db.ListCustomAgents(r.Context(), userID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("list custom agents: %w", err))
		return
	}

	out := make([]models.Agent, 0, len(custom))
	for _, c := range custom {
		out = append(out, c.ToAgent())
	}
	h.JSON(w, http.StatusOK, AgentsResponse{Success: true, Agents: out})
}

// CreateCustomAgent stores a new persona for the caller.
func (h *Handler) CreateCustomAgent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req CreateAgentRequest
	if err := decode(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	req.Name = sanitizeText(req.Name, 100)
	req.Personality = sanitizeText(req.Personality, 500)
	if req.Name == "" || req.Personality == "" {
		h.Fail(w, r, fmt.Errorf("%w: name and personality are required", engine.ErrValidation))
		return
	}
	if req.ResponseRate < 0 || req.ResponseRate > 1 {
		h.Fail(w, r, fmt.Errorf("%w: responseRate must be between 0 and 1", engine.ErrValidation))
		return
	}

	agent := &models.CustomAgent{
		UserID:       userID,
		Name:         req.Name,
		Avatar:       sanitizeText(req.Avatar, 16),
		Color:        sanitizeText(req.Color, 50),
		Personality:  req.Personality,
		ResponseRate: req.ResponseRate,
	}
	if prompt := sanitizeText(req.SystemPrompt, 4000); prompt != "" {
		agent.SystemPrompt = &prompt
	}
	agent.ApplyDefaults()

	created, err := h.db.CreateCustomAgent(r.Context(), agent)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("create custom agent: %w", err))
		return
	}
	h.registry.Invalidate(r.Context(), userID)
	metrics.CustomAgentsCreated.Inc()

	h.logger.Info().
		Str("user_id", userID).
		Str("agent_id", created.ID).
		Msg("custom agent created")

	h.JSON(w, http.StatusCreated, CreateAgentResponse{Success: true, Agent: created.ToAgent()})
}

// DeleteCustomAgent removes one of the caller's custom agents.
func (h *Handler) DeleteCustomAgent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	agentID := chi.URLParam(r, "id")
	if !ids.IsCustomAgentID(agentID) {
		h.Fail(w, r, fmt.Errorf("custom agent %w", engine.ErrNotFound))
		return
	}

	ok, err := h.db.DeleteCustomAgent(r.Context(), userID, agentID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("delete custom agent: %w", err))
		return
	}
	if !ok {
		h.Fail(w, r, fmt.Errorf("custom agent %w", engine.ErrNotFound))
		return
	}
	h.registry.Invalidate(r.Context(), userID)

	h.JSON(w, http.StatusOK, MessageResponse{Success: true, Message: "agent deleted"})
}
