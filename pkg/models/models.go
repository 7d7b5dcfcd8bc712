package models

import (
	"encoding/json"
	"time"
)

// Conversation types
const (
	ConversationTypeUser = "user"
	ConversationTypeAuto = "auto"
)

// Message roles
const (
	RoleHuman  = "human"
	RoleAI     = "ai"
	RoleSystem = "system"
)

// Agent represents a named, reusable LLM invocation profile
type Agent struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Categories   []string  `json:"categories" db:"categories"`
	LLMModel     string    `json:"llm_model" db:"llm_model"`
	SystemPrompt string    `json:"system_prompt" db:"system_prompt"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	MaxTokens    int       `json:"max_tokens" db:"max_tokens"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AgentSummary is the abbreviated projection used in list responses
type AgentSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	LLMModel    string   `json:"llm_model"`
	IsActive    bool     `json:"is_active"`
}

// Summary reduces an agent to its list projection
func (a *Agent) Summary() AgentSummary {
	return AgentSummary{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Categories:  a.Categories,
		LLMModel:    a.LLMModel,
		IsActive:    a.IsActive,
	}
}

// Conversation represents an ordered thread of messages owned by a user
type Conversation struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Type      string    `json:"conversation_type" db:"conversation_type"`
	UserID    int64     `json:"user_id" db:"user_id"`
	FolderID  *int64    `json:"folder_id,omitempty" db:"folder_id"`
	AgentIDs  []int64   `json:"agent_ids,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MessagePreview is the truncated last-message view in conversation lists
type MessagePreview struct {
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is the list projection for conversations
type ConversationSummary struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Type         string          `json:"conversation_type"`
	FolderID     *int64          `json:"folder_id,omitempty"`
	FolderName   string          `json:"folder_name,omitempty"`
	MessageCount int             `json:"message_count"`
	LastMessage  *MessagePreview `json:"last_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Message represents a single message in a conversation. Messages are
// immutable once created and ordered strictly by creation time.
type Message struct {
	ID             int64           `json:"id" db:"id"`
	ConversationID int64           `json:"conversation_id" db:"conversation_id"`
	Role           string          `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	AgentID        *int64          `json:"agent_id,omitempty" db:"agent_id"`
	AgentName      string          `json:"agent_name,omitempty"`
	IsAutoChat     bool            `json:"is_auto_chat" db:"is_auto_chat"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Folder organizes conversations into a per-user tree
type Folder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	Order     int       `json:"order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// User represents an account that owns conversations and folders
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose password hash in JSON
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
