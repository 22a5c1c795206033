// Package personas provides a client for the Personas AI chat API.
package personas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultURL is used when no base URL is given.
const DefaultURL = "http://localhost:8080"

// Client is a Personas AI API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client. An empty token falls back to
// PERSONAS_TOKEN.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if token == "" {
		token = os.Getenv("PERSONAS_TOKEN")
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		// turns wait on the slowest agent
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("personas error %d: %s", e.StatusCode, e.Message)
}

// do performs a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Agent is a persona in the caller's roster.
type Agent struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Avatar       string  `json:"avatar"`
	Color        string  `json:"color,omitempty"`
	Personality  string  `json:"personality"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	ResponseRate float64 `json:"responseRate"`
	IsCustom     bool    `json:"isCustom"`
}

// Reply is one agent's answer to a message.
type Reply struct {
	AgentID     string    `json:"agentId"`
	AgentName   string    `json:"agentName"`
	Avatar      string    `json:"avatar"`
	Personality string    `json:"personality"`
	Response    string    `json:"response"`
	Timestamp   time.Time `json:"timestamp"`
}

// SendMessageRequest starts or continues a conversation. A nil
// ActiveAgents keeps the conversation's current agents.
type SendMessageRequest struct {
	Message          string   `json:"message"`
	ActiveAgents     []string `json:"activeAgents,omitempty"`
	ConversationID   string   `json:"conversationId,omitempty"`
	ConversationType string   `json:"conversationType,omitempty"`
}

// SendMessageResponse holds the replies of one turn.
type SendMessageResponse struct {
	ConversationID   string  `json:"conversationId"`
	Agents           []Reply `json:"agents"`
	TotalAgents      int     `json:"totalAgents"`
	RespondingAgents int     `json:"respondingAgents"`
}

// SendMessage posts a user message and waits for the agents' replies.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAgents returns the built-in and custom agents.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp struct {
		Agents []Agent `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// CreateAgentRequest defines a custom agent. Zero-valued optional fields
// take server defaults.
type CreateAgentRequest struct {
	Name         string  `json:"name"`
	Avatar       string  `json:"avatar,omitempty"`
	Color        string  `json:"color,omitempty"`
	Personality  string  `json:"personality"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	ResponseRate float64 `json:"responseRate,omitempty"`
}

// CreateAgent creates a custom agent.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (*Agent, error) {
	var resp struct {
		Agent Agent `json:"agent"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/agents/custom", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Agent, nil
}

// DeleteAgent deletes a custom agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/agents/custom/"+url.PathEscape(id), nil, nil)
}

// Conversation is an entry of the conversation history.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
	Unread    int       `json:"unread"`
	Type      string    `json:"type"`
	Agents    []string  `json:"agents"`
	Members   int       `json:"members"`
}

// ListConversations returns the caller's conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// MessageAgent identifies the author of an agent message.
type MessageAgent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Message is one entry of a conversation transcript.
type Message struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Agent     *MessageAgent `json:"agent,omitempty"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
}

// GetMessages returns a conversation's transcript.
func (c *Client) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// HealthResponse is the server health report.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
}

// Health checks server health. A degraded server answers 503 with a body,
// so that case is returned as a response rather than an error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("health: status %d: %w", resp.StatusCode, err)
	}
	return &health, nil
}
