package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// stepClock advances by one second per call.
func stepClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestSQLite_CustomAgents(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	s.now = stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	prompt := "You are a pirate."
	first, err := s.CreateCustomAgent(ctx, &models.CustomAgent{
		UserID: "u1", Name: "Pete", Avatar: "🏴", Color: "bg-black", Personality: "pirate", SystemPrompt: &prompt, ResponseRate: 0.4,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "custom-"))

	second, err := s.CreateCustomAgent(ctx, &models.CustomAgent{
		UserID: "u1", Name: "Ada", Avatar: "🤖", Color: "bg-indigo-500", Personality: "precise", ResponseRate: 0.8,
	})
	require.NoError(t, err)
	_, err = s.CreateCustomAgent(ctx, &models.CustomAgent{UserID: "u2", Name: "Other", Personality: "x", ResponseRate: 1})
	require.NoError(t, err)

	agents, err := s.ListCustomAgents(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, second.ID, agents[0].ID, "most recent first")
	assert.Equal(t, first.ID, agents[1].ID)
	require.NotNil(t, agents[1].SystemPrompt)
	assert.Equal(t, prompt, *agents[1].SystemPrompt)
	assert.Nil(t, agents[0].SystemPrompt)
	assert.InDelta(t, 0.4, agents[1].ResponseRate, 1e-9)

	ok, err := s.DeleteCustomAgent(ctx, "u2", first.ID)
	require.NoError(t, err)
	assert.False(t, ok, "other users cannot delete")

	ok, err = s.DeleteCustomAgent(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	agents, err = s.ListCustomAgents(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestSQLite_ListCustomAgentsEmpty(t *testing.T) {
	s := newTestSQLite(t)
	agents, err := s.ListCustomAgents(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, agents)
	assert.Empty(t, agents)
}

func TestSQLite_ConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	conv, err := s.CreateConversation(ctx, &models.Conversation{
		UserID: "u1", Title: "Group Chat (2)", Type: models.ConversationGroup, Agents: []string{"creative", "casual"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(conv.ID, "conv-"))
	assert.Equal(t, 2, conv.Members)

	got, err := s.GetConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"creative", "casual"}, got.Agents)
	assert.Equal(t, models.ConversationGroup, got.Type)
	assert.Nil(t, got.LastRead)

	missing, err := s.GetConversation(ctx, "u2", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, missing, "not visible to other users")

	require.NoError(t, s.UpdateConversationAgents(ctx, conv.ID, []string{"analytical"}))
	got, err = s.GetConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"analytical"}, got.Agents)
	assert.Equal(t, 1, got.Members)

	ok, err := s.UpdateConversationTitle(ctx, "u1", conv.ID, "Launch ideas")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.UpdateConversationTitle(ctx, "u2", conv.ID, "hijack")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = s.GetConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch ideas", got.Title)

	_, err = s.AppendMessage(ctx, conv.ID, models.SenderUser, "u1", "hello")
	require.NoError(t, err)

	ok, err = s.DeleteConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.GetConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "messages are removed with their conversation")
}

func TestSQLite_MessagesInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	conv, err := s.CreateConversation(ctx, &models.Conversation{UserID: "u1", Title: "t", Type: models.ConversationSingle, Agents: []string{"casual"}})
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four"}
	for i, c := range contents {
		sender := models.SenderAgent
		if i == 0 {
			sender = models.SenderUser
		}
		_, err := s.AppendMessage(ctx, conv.ID, sender, "casual", c)
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, contents[i], m.Content, "same-timestamp messages keep insertion order")
		assert.True(t, strings.HasPrefix(m.ID, "msg-"))
	}
	assert.Equal(t, models.SenderUser, msgs[0].SenderType)
	assert.Equal(t, models.SenderAgent, msgs[1].SenderType)
}

func TestSQLite_ListConversationsSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	s.now = stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	empty, err := s.CreateConversation(ctx, &models.Conversation{UserID: "u1", Title: "Empty", Type: models.ConversationSingle, Agents: []string{"casual"}})
	require.NoError(t, err)
	busy, err := s.CreateConversation(ctx, &models.Conversation{UserID: "u1", Title: "Busy", Type: models.ConversationGroup, Agents: []string{"casual", "creative"}})
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, busy.ID, models.SenderUser, "u1", "hi")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, busy.ID, models.SenderAgent, "casual", "hey")
	require.NoError(t, err)

	ok, err := s.MarkConversationRead(ctx, "u1", busy.ID, s.now())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.AppendMessage(ctx, busy.ID, models.SenderAgent, "creative", "new idea")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, busy.ID, models.SenderAgent, "casual", "latest")
	require.NoError(t, err)
	require.NoError(t, s.TouchConversation(ctx, busy.ID))

	summaries, err := s.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, busy.ID, summaries[0].ID, "most recently active first")
	assert.Equal(t, "latest", summaries[0].Preview)
	assert.Equal(t, 2, summaries[0].Unread)
	require.NotNil(t, summaries[0].LastRead)

	assert.Equal(t, empty.ID, summaries[1].ID)
	assert.Equal(t, DefaultPreview, summaries[1].Preview)
	assert.Zero(t, summaries[1].Unread)

	others, err := s.ListConversations(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestSQLite_UnreadWithoutReadMarker(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	conv, err := s.CreateConversation(ctx, &models.Conversation{UserID: "u1", Title: "t", Type: models.ConversationSingle, Agents: []string{"casual"}})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, models.SenderUser, "u1", "hi")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, models.SenderAgent, "casual", "hey")
	require.NoError(t, err)

	summaries, err := s.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Unread, "user messages are never unread")
}
