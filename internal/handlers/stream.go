package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sahil21666x/KE-PersonasAI/internal/api/middleware"
	"github.com/Sahil21666x/KE-PersonasAI/internal/engine"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// SelectedEvent announces which agents are about to reply.
type SelectedEvent struct {
	ConversationID string   `json:"conversationId"`
	Agents         []string `json:"agents"`
}

// eventStream writes server-sent events. Headers are sent with the first
// event so failures before it can still be answered with a JSON error.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamMessage runs a chat turn and streams each reply as a server-sent
// event in selection order: "selected", then one "agent" per reply, then
// "done" with the same body SendMessage returns. Failures after the stream
// started are reported as an "error" event.
func (h *Handler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

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

	ctx := context.WithoutCancel(r.Context())
	stream := &eventStream{w: w, flusher: flusher}

	// Replies are stored whether or not the client is still reading.
	var sendErr, storeErr error
	send := func(event string, data any) {
		if sendErr == nil {
			sendErr = stream.send(event, data)
		}
	}
	emit := func(ev engine.TurnEvent) {
		switch ev.Type {
		case engine.EventSelected:
			ids := make([]string, len(ev.Selected))
			for i, a := range ev.Selected {
				ids[i] = a.ID
			}
			send(string(ev.Type), SelectedEvent{ConversationID: t.conv.ID, Agents: ids})
		case engine.EventAgent:
			if err := h.storeReply(ctx, t.conv.ID, *ev.Response); err != nil {
				if storeErr == nil {
					storeErr = err
				}
				return
			}
			send(string(ev.Type), ev.Response)
		case engine.EventDone:
			if storeErr != nil {
				return
			}
			agents := ev.Result.Agents
			if agents == nil {
				agents = []models.AgentResponse{}
			}
			send(string(ev.Type), TurnResponse{
				Success:          true,
				ConversationID:   t.conv.ID,
				Agents:           agents,
				TotalAgents:      ev.Result.TotalAgents,
				RespondingAgents: ev.Result.RespondingAgents,
			})
		}
	}

	_, err = h.orch.StreamTurn(ctx, t.message, t.roster, t.activeIDs, emit)
	if err == nil {
		err = storeErr
	}
	if err == nil {
		if sendErr != nil {
			h.logger.Debug().Err(sendErr).Str("conversation_id", t.conv.ID).Msg("stream client gone")
		}
		return
	}
	if !stream.started {
		h.Fail(w, r, err)
		return
	}

	message := "internal server error"
	if statusFor(err) != http.StatusInternalServerError {
		message = err.Error()
	} else {
		h.logger.Error().Err(err).Str("conversation_id", t.conv.ID).Msg("stream failed")
	}
	send("error", ErrorResponse{Success: false, Error: message})
}
