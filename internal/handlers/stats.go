package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// ConversationStats is a recently active conversation in the stats summary.
type ConversationStats struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Members int    `json:"members"`
	Unread  int    `json:"unread"`
}

// StatsResponse summarizes the caller's activity.
type StatsResponse struct {
	Success             bool                `json:"success"`
	TotalConversations  int                 `json:"totalConversations"`
	GroupConversations  int                 `json:"groupConversations"`
	CustomAgents        int                 `json:"customAgents"`
	UnreadMessages      int                 `json:"unreadMessages"`
	LastActivity        string              `json:"lastActivity"`
	RecentConversations []ConversationStats `json:"recentConversations"`
}

// Stats returns a summary of the caller's conversations and agents.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	summaries, err := h.db.ListConversations(ctx, userID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("list conversations: %w", err))
		return
	}

	custom, err := h.db.ListCustomAgents(ctx, userID)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("list custom agents: %w", err))
		return
	}

	resp := StatsResponse{
		Success:             true,
		TotalConversations:  len(summaries),
		CustomAgents:        len(custom),
		LastActivity:        "no activity yet",
		RecentConversations: make([]ConversationStats, 0, 5),
	}
	for i, s := range summaries {
		if s.Type == models.ConversationGroup {
			resp.GroupConversations++
		}
		resp.UnreadMessages += s.Unread
		if i < 5 {
			resp.RecentConversations = append(resp.RecentConversations, ConversationStats{
				ID:      s.ID,
				Title:   s.Title,
				Members: s.Members,
				Unread:  s.Unread,
			})
		}
	}
	// summaries are ordered by activity, newest first
	if len(summaries) > 0 {
		resp.LastActivity = formatTimeAgo(summaries[0].UpdatedAt)
	}

	h.JSON(w, http.StatusOK, resp)
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
