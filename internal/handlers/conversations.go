package handlers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sahil21666x/KE-PersonasAI/internal/agents"
	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/engine"
	"github.com/Sahil21666x/KE-PersonasAI/internal/metrics"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

const (
	maxMessageLength = 8000
	maxTitleLength   = 200
	defaultTitle     = "AI Chat"
)

// TurnRequest represents a user message sent to a set of agents.
// ActiveAgents left out keeps the conversation's current agents.
type TurnRequest struct {
	Message          string   `json:"message"`
	ActiveAgents     []string `json:"activeAgents"`
	ConversationID   string   `json:"conversationId,omitempty"`
	ConversationType string   `json:"conversationType,omitempty"`
}

// TurnResponse represents the agents' replies to a turn.
type TurnResponse struct {
	Success          bool                   `json:"success"`
	ConversationID   string                 `json:"conversationId"`
	Agents           []models.AgentResponse `json:"agents"`
	TotalAgents      int                    `json:"totalAgents"`
	RespondingAgents int                    `json:"respondingAgents"`
}

// turn is a validated request whose conversation and user message are stored.
type turn struct {
	conv      *models.Conversation
	roster    []models.Agent
	activeIDs []string
	message   string
}

// SendMessage runs a chat turn and returns every reply at once.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := decode(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	t, err := h.prepareTurn(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	// A dispatched turn runs to completion and stores its replies even if
	// the client goes away.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.orch.RunTurn(ctx, t.message, t.roster, t.activeIDs)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	for i := range result.Agents {
		if err := h.storeReply(ctx, t.conv.ID, result.Agents[i]); err != nil {
			h.Fail(w, r, err)
			return
		}
	}

	h.JSON(w, http.StatusOK, TurnResponse{
		Success:          true,
		ConversationID:   t.conv.ID,
		Agents:           result.Agents,
		TotalAgents:      result.TotalAgents,
		RespondingAgents: result.RespondingAgents,
	})
}

// prepareTurn validates the request, creates or updates the conversation
// and stores the user message. Unknown agent or conversation ids are
// rejected before anything is written.
func (h *Handler) prepareTurn(ctx context.Context, userID string, req TurnRequest) (*turn, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", engine.ErrValidation)
	}
	if len([]rune(req.Message)) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is too long", engine.ErrValidation)
	}

	convType := models.ConversationType(req.ConversationType)
	switch convType {
	case "", models.ConversationSingle, models.ConversationGroup:
	default:
		return nil, fmt.Errorf("%w: conversationType must be single or group", engine.ErrValidation)
	}

	roster, err := h.registry.ResolveRoster(ctx, userID)
	if err != nil {
		return nil, err
	}

	var active []string
	if req.ActiveAgents != nil {
		active = make([]string, 0, len(req.ActiveAgents))
		for _, id := range req.ActiveAgents {
			if _, ok := agents.Lookup(roster, id); !ok {
				return nil, fmt.Errorf("agent %w: %s", engine.ErrNotFound, id)
			}
			if !slices.Contains(active, id) {
				active = append(active, id)
			}
		}
	}

	var conv *models.Conversation
	if req.ConversationID == "" {
		if active == nil {
			active = []string{}
		}
		if convType == "" {
			convType = models.ConversationSingle
			if len(active) > 1 {
				convType = models.ConversationGroup
			}
		}
		conv, err = h.db.CreateConversation(ctx, &models.Conversation{
			UserID: userID,
			Title:  conversationTitle(convType, active, roster),
			Type:   convType,
			Agents: active,
		})
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
	} else {
		conv, err = h.db.GetConversation(ctx, userID, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		if conv == nil {
			return nil, fmt.Errorf("conversation %w", engine.ErrNotFound)
		}
		if active == nil {
			active = conv.Agents
		} else if !slices.Equal(active, conv.Agents) {
			if err := h.db.UpdateConversationAgents(ctx, conv.ID, active); err != nil {
				return nil, fmt.Errorf("update conversation agents: %w", err)
			}
			conv.Agents, conv.Members = active, len(active)
		}
	}

	if _, err := h.db.AppendMessage(ctx, conv.ID, models.SenderUser, userID, req.Message); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}
	metrics.MessagesStored.WithLabelValues(string(models.SenderUser)).Inc()

	if err := h.db.TouchConversation(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	return &turn{conv: conv, roster: roster, activeIDs: active, message: req.Message}, nil
}

// storeReply persists one agent reply.
func (h *Handler) storeReply(ctx context.Context, convID string, resp models.AgentResponse) error {
	if _, err := h.db.AppendMessage(ctx, convID, models.SenderAgent, resp.AgentID, resp.Response); err != nil {
		return fmt.Errorf("store reply of %s: %w", resp.AgentID, err)
	}
	metrics.MessagesStored.WithLabelValues(string(models.SenderAgent)).Inc()
	return nil
}

// conversationTitle names a new conversation after its agents.
func conversationTitle(t models.ConversationType, active []string, roster []models.Agent) string {
	if t == models.ConversationGroup {
		return fmt.Sprintf("Group Chat (%d)", len(active))
	}
	for _, id := range active {
		if a, ok := agents.Lookup(roster, id); ok {
			return a.Name
		}
	}
	return defaultTitle
}

// ConversationView is a conversation in the history listing.
type ConversationView struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Preview   string                  `json:"preview"`
	Timestamp time.Time               `json:"timestamp"`
	Unread    int                     `json:"unread"`
	Type      models.ConversationType `json:"type"`
	Agents    []string                `json:"agents"`
	Members   int                     `json:"members"`
}

// HistoryResponse lists the caller's conversations.
type HistoryResponse struct {
	Success       bool               `json:"success"`
	Conversations []ConversationView `json:"conversations"`
}

// History lists the caller's conversations, most recently active first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	summaries, err := h.db.ListConversations(r.Context(), userID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("list conversations: %w", err))
		return
	}

	views := make([]ConversationView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, ConversationView{
			ID:        s.ID,
			Title:     s.Title,
			Preview:   s.Preview,
			Timestamp: s.UpdatedAt,
			Unread:    s.Unread,
			Type:      s.Type,
			Agents:    s.Agents,
			Members:   s.Members,
		})
	}

	h.JSON(w, http.StatusOK, HistoryResponse{Success: true, Conversations: views})
}

// AgentView is the agent detail attached to an agent message.
type AgentView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Color       string `json:"color"`
	Personality string `json:"personality"`
}

// MessageView is one message of a conversation transcript.
type MessageView struct {
	ID        string            `json:"id"`
	Type      models.SenderType `json:"type"`
	Agent     *AgentView        `json:"agent,omitempty"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
}

// MessagesResponse is a conversation transcript.
type MessagesResponse struct {
	Success  bool          `json:"success"`
	Messages []MessageView `json:"messages"`
}

// Messages returns a conversation's transcript with agent details resolved
// against the caller's current roster.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	convID := chi.URLParam(r, "id")

	conv, err := h.db.GetConversation(r.Context(), userID, convID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("get conversation: %w", err))
		return
	}
	if conv == nil {
		h.Fail(w, r, fmt.Errorf("conversation %w", engine.ErrNotFound))
		return
	}

	messages, err := h.db.ListMessages(r.Context(), conv.ID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("list messages: %w", err))
		return
	}

	roster, err := h.registry.ResolveRoster(r.Context(), userID)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		v := MessageView{ID: m.ID, Type: m.SenderType, Content: m.Content, Timestamp: m.CreatedAt}
		if m.SenderType == models.SenderAgent {
			v.Agent = agentView(roster, m.SenderID)
		}
		views = append(views, v)
	}

	h.JSON(w, http.StatusOK, MessagesResponse{Success: true, Messages: views})
}

// agentView describes the author of an agent message. Agents deleted since
// are shown as unknown.
func agentView(roster []models.Agent, id string) *AgentView {
	a, ok := agents.Lookup(roster, id)
	if !ok {
		return &AgentView{ID: id, Name: "Unknown Agent", Avatar: models.DefaultCustomAvatar, Color: "bg-gray-500", Personality: "Unknown"}
	}
	color := a.Color
	if color == "" {
		color = "bg-gray-500"
	}
	return &AgentView{ID: a.ID, Name: a.Name, Avatar: a.Avatar, Color: color, Personality: a.Personality}
}

// DeleteConversation removes a conversation and its messages.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	ok, err := h.db.DeleteConversation(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.Fail(w, r, fmt.Errorf("delete conversation: %w", err))
		return
	}
	if !ok {
		h.Fail(w, r, fmt.Errorf("conversation %w", engine.ErrNotFound))
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Success: true, Message: "conversation deleted"})
}

// MarkRead clears the unread count of a conversation.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	ok, err := h.db.MarkConversationRead(r.Context(), userID, chi.URLParam(r, "id"), time.Now())
	if err != nil {
		h.Fail(w, r, fmt.Errorf("mark read: %w", err))
		return
	}
	if !ok {
		h.Fail(w, r, fmt.Errorf("conversation %w", engine.ErrNotFound))
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Success: true})
}

// UpdateTitleRequest renames a conversation.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}

// TitleResponse confirms a rename.
type TitleResponse struct {
	Success      bool `json:"success"`
	Conversation struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"conversation"`
}

// UpdateTitle renames a conversation.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	convID := chi.URLParam(r, "id")

	var req UpdateTitleRequest
	if err := decode(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}
	title := sanitizeText(req.Title, maxTitleLength)
	if title == "" {
		h.Fail(w, r, fmt.Errorf("%w: title is required", engine.ErrValidation))
		return
	}

	ok, err := h.db.UpdateConversationTitle(r.Context(), userID, convID, title)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("update title: %w", err))
		return
	}
	if !ok {
		h.Fail(w, r, fmt.Errorf("conversation %w", engine.ErrNotFound))
		return
	}

	resp := TitleResponse{Success: true}
	resp.Conversation.ID = convID
	resp.Conversation.Title = title
	h.JSON(w, http.StatusOK, resp)
}
