package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sahil21666x/KE-PersonasAI/internal/ids"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS custom_agents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '🤖',
	color TEXT NOT NULL DEFAULT 'bg-indigo-500',
	personality TEXT NOT NULL,
	system_prompt TEXT,
	response_rate DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'single',
	agents TEXT[] NOT NULL DEFAULT '{}',
	members INTEGER NOT NULL DEFAULT 0,
	last_read TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_type TEXT NOT NULL,
	sender_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custom_agents_user ON custom_agents(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, id);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListCustomAgents returns a user's custom agents, most recent first.
func (s *PostgresStore) ListCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, avatar, color, personality, system_prompt, response_rate, created_at, updated_at
		FROM custom_agents
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]models.CustomAgent, 0)
	for rows.Next() {
		var a models.CustomAgent
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&a.Avatar,
			&a.Color,
			&a.Personality,
			&a.SystemPrompt,
			&a.ResponseRate,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// CreateCustomAgent stores a new custom agent, minting its id.
func (s *PostgresStore) CreateCustomAgent(ctx context.Context, agent *models.CustomAgent) (*models.CustomAgent, error) {
	created := *agent
	if created.ID == "" {
		created.ID = ids.NewCustomAgentID()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO custom_agents (id, user_id, name, avatar, color, personality, system_prompt, response_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, created.ID, created.UserID, created.Name, created.Avatar, created.Color, created.Personality,
		created.SystemPrompt, created.ResponseRate).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCustomAgent removes a custom agent owned by userID.
func (s *PostgresStore) DeleteCustomAgent(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM custom_agents WHERE id = $1 AND user_id = $2
	`, id, userID)
	return rowsMatched(tag, err)
}

// CreateConversation stores a new conversation, minting its id.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	created := *conv
	if created.ID == "" {
		created.ID = ids.NewConversationID()
	}
	created.Agents = append([]string{}, conv.Agents...)
	created.Members = len(created.Agents)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, title, type, agents, members, last_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, created.ID, created.UserID, created.Title, string(created.Type), created.Agents,
		created.Members, created.LastRead).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetConversation retrieves a conversation owned by userID.
func (s *PostgresStore) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, type, agents, members, last_read, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2
	`, id, userID)

	conv, err := scanPostgresConversation(row, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conv.Conversation, nil
}

// UpdateConversationAgents replaces the agent roster of a conversation.
func (s *PostgresStore) UpdateConversationAgents(ctx context.Context, id string, agentIDs []string) error {
	if agentIDs == nil {
		agentIDs = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET agents = $1, members = $2, updated_at = now() WHERE id = $3
	`, agentIDs, len(agentIDs), id)
	return err
}

// UpdateConversationTitle renames a conversation owned by userID.
func (s *PostgresStore) UpdateConversationTitle(ctx context.Context, userID, id, title string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $1, updated_at = now() WHERE id = $2 AND user_id = $3
	`, title, id, userID)
	return rowsMatched(tag, err)
}

// MarkConversationRead sets the read marker of a conversation owned by userID.
func (s *PostgresStore) MarkConversationRead(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET last_read = $1 WHERE id = $2 AND user_id = $3
	`, at, id, userID)
	return rowsMatched(tag, err)
}

// TouchConversation bumps the activity timestamp of a conversation.
func (s *PostgresStore) TouchConversation(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1
	`, id)
	return err
}

// DeleteConversation removes a conversation owned by userID and its messages.
func (s *PostgresStore) DeleteConversation(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM conversations WHERE id = $1 AND user_id = $2
	`, id, userID)
	return rowsMatched(tag, err)
}

// ListConversations returns a user's conversations, most recently active
// first, with preview and unread count.
func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.title, c.type, c.agents, c.members, c.last_read, c.created_at, c.updated_at,
			COALESCE((
				SELECT m.content FROM messages m
				WHERE m.conversation_id = c.id
				ORDER BY m.created_at DESC, m.id DESC LIMIT 1
			), ''),
			(
				SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id
					AND m.sender_type = 'agent'
					AND m.created_at > COALESCE(c.last_read, 'epoch'::timestamptz)
			)
		FROM conversations c
		WHERE c.user_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		summary, err := scanPostgresConversation(rows, true)
		if err != nil {
			return nil, err
		}
		if summary.Preview == "" {
			summary.Preview = DefaultPreview
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// AppendMessage stores a message at the end of a conversation.
func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID string, senderType models.SenderType, senderID, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:             ids.NewMessageID(),
		ConversationID: conversationID,
		SenderType:     senderType,
		SenderID:       senderID,
		Content:        content,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_type, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		RETURNING created_at
	`, msg.ID, msg.ConversationID, string(msg.SenderType), msg.SenderID, msg.Content).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_type, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		var senderType string
		if err := rows.Scan(&m.ID, &m.ConversationID, &senderType, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.SenderType = models.SenderType(senderType)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanPostgresConversation(row pgx.Row, withSummary bool) (models.ConversationSummary, error) {
	var (
		summary  models.ConversationSummary
		convType string
		unread   int64
	)
	c := &summary.Conversation
	dest := []any{&c.ID, &c.UserID, &c.Title, &convType, &c.Agents, &c.Members, &c.LastRead, &c.CreatedAt, &c.UpdatedAt}
	if withSummary {
		dest = append(dest, &summary.Preview, &unread)
	}
	if err := row.Scan(dest...); err != nil {
		return summary, err
	}
	c.Type = models.ConversationType(convType)
	if c.Agents == nil {
		c.Agents = []string{}
	}
	summary.Unread = int(unread)
	return summary, nil
}

func rowsMatched(tag pgconn.CommandTag, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
