package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// Service implements the synchronous chat turn flow
type Service struct {
	agents     agents.Store
	store      Store
	generator  llm.Generator
	dispatcher Dispatcher
}

// NewService creates a chat service
func NewService(agentStore agents.Store, store Store, generator llm.Generator, dispatcher Dispatcher) *Service {
	return &Service{
		agents:     agentStore,
		store:      store,
		generator:  generator,
		dispatcher: dispatcher,
	}
}

// SendMessageResult carries both persisted messages of one chat turn
type SendMessageResult struct {
	ConversationID int64           `json:"conversation_id"`
	UserMessage    *models.Message `json:"user_message"`
	AIMessage      *models.Message `json:"ai_message"`
}

// SendMessage appends the user's message, generates the agent's reply and
// persists it. The user message is stored before the provider call, so a
// generation failure leaves it in place and the turn can be retried.
func (s *Service) SendMessage(ctx context.Context, userID, agentID int64, conversationID *int64, text string) (*SendMessageResult, error) {
	agent, err := s.agents.GetActive(ctx, agentID)
	if err != nil {
		return nil, err
	}

	var conv *models.Conversation
	if conversationID != nil {
		conv, err = s.store.GetOwnedConversation(ctx, *conversationID, userID)
		if err != nil {
			return nil, err
		}
	} else {
		conv = &models.Conversation{UserID: userID, Type: models.ConversationTypeUser}
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		if err := s.store.AttachAgents(ctx, conv.ID, agent.ID); err != nil {
			return nil, fmt.Errorf("failed to attach agent: %w", err)
		}
	}

	userMessage := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleHuman,
		Content:        text,
	}
	if err := s.store.AppendMessage(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	count, err := s.store.CountMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		// First message: fire-and-forget title generation. A failed
		// enqueue only costs the title, not the turn.
		if err := s.dispatcher.EnqueueTitleGeneration(ctx, conv.ID, agent.ID); err != nil {
			log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("Failed to enqueue title generation")
		}
	}

	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	response, err := s.generator.Generate(ctx, agent, BuildHistory(messages))
	if err != nil {
		// The human message stays persisted; the caller can retry.
		return nil, err
	}

	aiMessage := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAI,
		Content:        response,
		AgentID:        &agent.ID,
		AgentName:      agent.Name,
	}
	if err := s.store.AppendMessage(ctx, aiMessage); err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	return &SendMessageResult{
		ConversationID: conv.ID,
		UserMessage:    userMessage,
		AIMessage:      aiMessage,
	}, nil
}
