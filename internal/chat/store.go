package chat

import (
	"context"
	"errors"

	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// Store errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrFolderNotFound       = errors.New("folder not found")
	ErrNoAgent              = errors.New("conversation has no associated agent")
	ErrFolderExists         = errors.New("folder with this name already exists")
)

// Store persists conversations and their messages. Each message append is a
// single atomic insert; creation order is the only ordering guarantee.
type Store interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	// GetOwnedConversation returns the conversation only when it belongs
	// to the given user
	GetOwnedConversation(ctx context.Context, id, userID int64) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
	DeleteConversation(ctx context.Context, id, userID int64) error

	AttachAgents(ctx context.Context, conversationID int64, agentIDs ...int64) error
	// FirstAgentID returns the lowest-id agent associated with the
	// conversation, or ErrNoAgent
	FirstAgentID(ctx context.Context, conversationID int64) (int64, error)

	// SetTitleIfEmpty writes the title as a partial update and reports
	// whether it was applied. A conversation that already has a title is
	// left untouched.
	SetTitleIfEmpty(ctx context.Context, conversationID int64, title string) (bool, error)

	AppendMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, conversationID int64) ([]*models.Message, error)
	CountMessages(ctx context.Context, conversationID int64) (int, error)
}

// FolderStore persists the per-user folder tree
type FolderStore interface {
	CreateFolder(ctx context.Context, f *models.Folder) error
	ListFolders(ctx context.Context, userID int64) ([]*models.Folder, error)
	UpdateFolder(ctx context.Context, f *models.Folder) error
	DeleteFolder(ctx context.Context, id, userID int64) error
}

// Dispatcher enqueues background jobs. Enqueue is fire-and-forget: it
// returns once the job is queued, never awaiting completion.
type Dispatcher interface {
	EnqueueTitleGeneration(ctx context.Context, conversationID, agentID int64) error
	EnqueueAutoChat(ctx context.Context, args AutoChatArgs) (int64, error)
}

// AutoChatArgs are the parameters of an auto-chat run
type AutoChatArgs struct {
	AgentAID       int64  `json:"agent_a_id"`
	AgentBID       int64  `json:"agent_b_id"`
	InitialMessage string `json:"initial_message"`
	Iterations     int    `json:"iterations"`
	UserID         int64  `json:"user_id"`
}

// BuildHistory reduces stored messages to the role/content turns sent to
// the model, preserving creation order
func BuildHistory(messages []*models.Message) []llm.Turn {
	history := make([]llm.Turn, 0, len(messages))
	for _, m := range messages {
		history = append(history, llm.Turn{Role: m.Role, Content: m.Content})
	}
	return history
}
