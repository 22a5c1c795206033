package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sahil21666x/KE-PersonasAI/internal/ids"
	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/personas.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/personas.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db, now: utcNow}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS custom_agents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '🤖',
		color TEXT NOT NULL DEFAULT 'bg-indigo-500',
		personality TEXT NOT NULL,
		system_prompt TEXT,
		response_rate REAL NOT NULL DEFAULT 0.8,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'single',
		agents TEXT NOT NULL DEFAULT '[]',
		members INTEGER NOT NULL DEFAULT 0,
		last_read DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_type TEXT NOT NULL,
		sender_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_custom_agents_user ON custom_agents(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListCustomAgents returns a user's custom agents, most recent first.
func (s *SQLiteStore) ListCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, avatar, color, personality, system_prompt, response_rate, created_at, updated_at
		FROM custom_agents
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]models.CustomAgent, 0)
	for rows.Next() {
		var a models.CustomAgent
		if err := rows.Scan(
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
		); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// CreateCustomAgent stores a new custom agent, minting its id.
func (s *SQLiteStore) CreateCustomAgent(ctx context.Context, agent *models.CustomAgent) (*models.CustomAgent, error) {
	created := *agent
	if created.ID == "" {
		created.ID = ids.NewCustomAgentID()
	}
	now := s.now()
	created.CreatedAt, created.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_agents (id, user_id, name, avatar, color, personality, system_prompt, response_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.UserID, created.Name, created.Avatar, created.Color, created.Personality,
		created.SystemPrompt, created.ResponseRate, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCustomAgent removes a custom agent owned by userID.
func (s *SQLiteStore) DeleteCustomAgent(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM custom_agents WHERE id = ? AND user_id = ?
	`, id, userID)
	return affected(res, err)
}

// CreateConversation stores a new conversation, minting its id.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	created := *conv
	if created.ID == "" {
		created.ID = ids.NewConversationID()
	}
	created.Agents = append([]string{}, conv.Agents...)
	created.Members = len(created.Agents)
	now := s.now()
	created.CreatedAt, created.UpdatedAt = now, now

	agentsJSON, err := json.Marshal(created.Agents)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, type, agents, members, last_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.UserID, created.Title, string(created.Type), string(agentsJSON),
		created.Members, created.LastRead, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetConversation retrieves a conversation owned by userID.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, type, agents, members, last_read, created_at, updated_at
		FROM conversations WHERE id = ? AND user_id = ?
	`, id, userID)

	conv, err := scanSQLiteConversation(row, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &conv.Conversation, nil
}

// UpdateConversationAgents replaces the agent roster of a conversation.
func (s *SQLiteStore) UpdateConversationAgents(ctx context.Context, id string, agentIDs []string) error {
	if agentIDs == nil {
		agentIDs = []string{}
	}
	agentsJSON, err := json.Marshal(agentIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE conversations SET agents = ?, members = ?, updated_at = ? WHERE id = ?
	`, string(agentsJSON), len(agentIDs), s.now(), id)
	return err
}

// UpdateConversationTitle renames a conversation owned by userID.
func (s *SQLiteStore) UpdateConversationTitle(ctx context.Context, userID, id, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?
	`, title, s.now(), id, userID)
	return affected(res, err)
}

// MarkConversationRead sets the read marker of a conversation owned by userID.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_read = ? WHERE id = ? AND user_id = ?
	`, at.UTC(), id, userID)
	return affected(res, err)
}

// TouchConversation bumps the activity timestamp of a conversation.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, s.now(), id)
	return err
}

// DeleteConversation removes a conversation owned by userID and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM conversations WHERE id = ? AND user_id = ?
	`, id, userID)
	return affected(res, err)
}

// ListConversations returns a user's conversations, most recently active
// first, with their last message as preview and their unread agent
// message count.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
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
					AND (c.last_read IS NULL OR m.created_at > c.last_read)
			)
		FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		summary, err := scanSQLiteConversation(rows, true)
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
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, senderType models.SenderType, senderID, content string) (*models.Message, error) {
	msg := &models.Message{
		ID:             ids.NewMessageID(),
		ConversationID: conversationID,
		SenderType:     senderType,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_type, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, string(msg.SenderType), msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_type, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteConversation reads a conversation row, plus the preview and
// unread columns when withSummary is set.
func scanSQLiteConversation(row rowScanner, withSummary bool) (models.ConversationSummary, error) {
	var (
		summary    models.ConversationSummary
		convType   string
		agentsJSON string
		lastRead   sql.NullTime
	)
	c := &summary.Conversation
	dest := []any{&c.ID, &c.UserID, &c.Title, &convType, &agentsJSON, &c.Members, &lastRead, &c.CreatedAt, &c.UpdatedAt}
	if withSummary {
		dest = append(dest, &summary.Preview, &summary.Unread)
	}
	if err := row.Scan(dest...); err != nil {
		return summary, err
	}

	c.Type = models.ConversationType(convType)
	if err := json.Unmarshal([]byte(agentsJSON), &c.Agents); err != nil {
		return summary, fmt.Errorf("decode agents of %s: %w", c.ID, err)
	}
	if c.Agents == nil {
		c.Agents = []string{}
	}
	if lastRead.Valid {
		t := lastRead.Time.UTC()
		c.LastRead = &t
	}
	return summary, nil
}

// affected converts an exec result into whether any row matched.
func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
