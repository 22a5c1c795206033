package personas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "tok")
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/conversations", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, []string{"creative"}, req.ActiveAgents)

		w.Write([]byte(`{"success":true,"conversationId":"conv-1","agents":[{"agentId":"creative","agentName":"Creative Spark","response":"hi!"}],"totalAgents":1,"respondingAgents":1}`))
	})

	resp, err := c.SendMessage(context.Background(), SendMessageRequest{Message: "hello", ActiveAgents: []string{"creative"}})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "hi!", resp.Agents[0].Response)
	assert.Equal(t, 1, resp.RespondingAgents)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"agent not found: ghost"}`))
	})

	_, err := c.SendMessage(context.Background(), SendMessageRequest{Message: "hi", ActiveAgents: []string{"ghost"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "agent not found: ghost", apiErr.Message)
}

func TestListAgents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agents", r.URL.Path)
		w.Write([]byte(`{"success":true,"agents":[
			{"id":"creative","name":"Creative Spark","avatar":"🎨","personality":"creative and innovative","responseRate":0.9,"isCustom":false},
			{"id":"custom-1","name":"Pirate","avatar":"🤖","personality":"salty","responseRate":0.8,"isCustom":true}
		]}`))
	})

	got, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	want := []Agent{
		{ID: "creative", Name: "Creative Spark", Avatar: "🎨", Personality: "creative and innovative", ResponseRate: 0.9},
		{ID: "custom-1", Name: "Pirate", Avatar: "🤖", Personality: "salty", ResponseRate: 0.8, IsCustom: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListAgents mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateAndDeleteAgent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req CreateAgentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"agent":   Agent{ID: "custom-9", Name: req.Name, Personality: req.Personality, IsCustom: true},
			})
		case http.MethodDelete:
			assert.Equal(t, "/api/agents/custom/custom-9", r.URL.Path)
			w.Write([]byte(`{"success":true}`))
		}
	})

	agent, err := c.CreateAgent(context.Background(), CreateAgentRequest{Name: "Nine", Personality: "calm"})
	require.NoError(t, err)
	assert.Equal(t, "custom-9", agent.ID)
	assert.True(t, agent.IsCustom)

	require.NoError(t, c.DeleteAgent(context.Background(), agent.ID))
}

func TestConversationsAndMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conversations/history":
			w.Write([]byte(`{"success":true,"conversations":[{"id":"conv-1","title":"Group Chat (2)","unread":2,"type":"group","agents":["a","b"],"members":2}]}`))
		case "/api/conversations/conv-1/messages":
			w.Write([]byte(`{"success":true,"messages":[{"id":"msg-1","type":"user","content":"hi"},{"id":"msg-2","type":"agent","agent":{"id":"a","name":"A"},"content":"yo"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].Unread)

	msgs, err := c.GetMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].Agent)
	assert.Equal(t, "A", msgs[1].Agent.Name)
}

func TestHealth_Degraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","version":"0.1.0","checks":{"llm":{"status":"fail","message":"not configured"}}}`))
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "fail", health.Checks["llm"].Status)
}

func TestNewClient_TokenFromEnv(t *testing.T) {
	t.Setenv("PERSONAS_TOKEN", "env-token")
	c := NewClient("", "")
	assert.Equal(t, DefaultURL, c.BaseURL)
	assert.Equal(t, "env-token", c.Token)
}
