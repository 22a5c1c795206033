package store

import (
	"context"
	"time"

	"github.com/Sahil21666x/KE-PersonasAI/internal/models"
)

// DefaultPreview is shown for conversations without messages.
const DefaultPreview = "Start a conversation..."

// DataStore defines the interface for persistent storage of custom agents,
// conversations and messages. Both PostgresStore and SQLiteStore implement
// this interface. Lookups of missing records return nil, nil; mutations of
// records the user does not own report false.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Custom agent operations
	ListCustomAgents(ctx context.Context, userID string) ([]models.CustomAgent, error)
	CreateCustomAgent(ctx context.Context, agent *models.CustomAgent) (*models.CustomAgent, error)
	DeleteCustomAgent(ctx context.Context, userID, id string) (bool, error)

	// Conversation operations
	CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error)
	UpdateConversationAgents(ctx context.Context, id string, agentIDs []string) error
	UpdateConversationTitle(ctx context.Context, userID, id, title string) (bool, error)
	MarkConversationRead(ctx context.Context, userID, id string, at time.Time) (bool, error)
	TouchConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, userID, id string) (bool, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)

	// Message operations
	AppendMessage(ctx context.Context, conversationID string, senderType models.SenderType, senderID, content string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}
