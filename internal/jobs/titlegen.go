package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/chat"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// titleContextMessages is how many of the earliest messages feed the title
// prompt
const titleContextMessages = 3

// TitleJobArgs are the arguments for a conversation title job
type TitleJobArgs struct {
	ConversationID int64 `json:"conversation_id"`
	AgentID        int64 `json:"agent_id,omitempty"`
}

// Kind returns the job kind for River
func (TitleJobArgs) Kind() string { return "conversation_title" }

// InsertOpts disables retries: the job reports its own outcome and a failed
// title is not worth re-running
func (TitleJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// TitleRunner generates and persists conversation titles. Every failure is
// folded into the returned status so the job never crashes a worker.
type TitleRunner struct {
	agents    agents.Store
	store     chat.Store
	generator llm.Generator
}

// NewTitleRunner creates a title runner
func NewTitleRunner(agentStore agents.Store, store chat.Store, generator llm.Generator) *TitleRunner {
	return &TitleRunner{agents: agentStore, store: store, generator: generator}
}

// Run executes one title generation pass and returns a descriptive status
func (r *TitleRunner) Run(ctx context.Context, conversationID, agentID int64) string {
	conv, err := r.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Sprintf("conversation %d not found", conversationID)
	}

	if conv.Title != "" {
		return fmt.Sprintf("conversation %d already has a title", conversationID)
	}

	agent, err := r.resolveAgent(ctx, conv.ID, agentID)
	if err != nil {
		return fmt.Sprintf("no agent available for conversation %d: %v", conversationID, err)
	}

	messages, err := r.store.ListMessages(ctx, conversationID)
	if err != nil {
		return fmt.Sprintf("failed to load messages for conversation %d: %v", conversationID, err)
	}
	if len(messages) > titleContextMessages {
		messages = messages[:titleContextMessages]
	}

	title, err := r.generator.GenerateTitle(ctx, agent, chat.BuildHistory(messages))
	if err != nil {
		return fmt.Sprintf("title generation failed for conversation %d: %v", conversationID, err)
	}

	applied, err := r.store.SetTitleIfEmpty(ctx, conversationID, title)
	if err != nil {
		return fmt.Sprintf("failed to save title for conversation %d: %v", conversationID, err)
	}
	if !applied {
		// A concurrent run won the race; harmless.
		return fmt.Sprintf("conversation %d was titled concurrently", conversationID)
	}

	return fmt.Sprintf("generated title for conversation %d: %s", conversationID, title)
}

// resolveAgent picks the explicitly requested agent when it resolves, else
// the conversation's first associated agent
func (r *TitleRunner) resolveAgent(ctx context.Context, conversationID, agentID int64) (*models.Agent, error) {
	if agentID != 0 {
		agent, err := r.agents.Get(ctx, agentID)
		if err == nil {
			return agent, nil
		}
		log.Warn().Int64("agent_id", agentID).Msg("Requested title agent missing, falling back to conversation agent")
	}

	firstID, err := r.store.FirstAgentID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return r.agents.Get(ctx, firstID)
}

// TitleWorker runs title jobs on the River worker pool
type TitleWorker struct {
	river.WorkerDefaults[TitleJobArgs]
	runner *TitleRunner
}

// Work performs the title generation. It always returns nil: the runner
// reports failures through its status instead of failing the job.
func (w *TitleWorker) Work(ctx context.Context, job *river.Job[TitleJobArgs]) error {
	status := w.runner.Run(ctx, job.Args.ConversationID, job.Args.AgentID)
	log.Info().
		Int64("conversation_id", job.Args.ConversationID).
		Str("status", status).
		Msg("Title generation job finished")
	return nil
}
