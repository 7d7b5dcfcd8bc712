package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/chat"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// AutoChatJobArgs are the arguments for an auto-chat run
type AutoChatJobArgs struct {
	AgentAID       int64  `json:"agent_a_id"`
	AgentBID       int64  `json:"agent_b_id"`
	InitialMessage string `json:"initial_message"`
	Iterations     int    `json:"iterations"`
	UserID         int64  `json:"user_id"`
}

// Kind returns the job kind for River
func (AutoChatJobArgs) Kind() string { return "auto_chat" }

// InsertOpts disables retries: a failed run leaves its messages in place
// and is not resumed
func (AutoChatJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// AutoChatResult is the self-reported outcome of a run
type AutoChatResult struct {
	Status         string `json:"status"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	TotalMessages  int    `json:"total_messages,omitempty"`
	Message        string `json:"message"`
}

// AutoChatRunner executes the bounded two-agent dialogue. One message is
// persisted per turn; a mid-loop failure aborts the remaining iterations
// and keeps everything persisted so far.
type AutoChatRunner struct {
	agents    agents.Store
	users     auth.UserStore
	store     chat.Store
	generator llm.Generator
}

// NewAutoChatRunner creates an auto-chat runner
func NewAutoChatRunner(agentStore agents.Store, users auth.UserStore, store chat.Store, generator llm.Generator) *AutoChatRunner {
	return &AutoChatRunner{agents: agentStore, users: users, store: store, generator: generator}
}

// Run executes one auto-chat job. All failures are reported in the result,
// never raised.
func (r *AutoChatRunner) Run(ctx context.Context, args chat.AutoChatArgs) AutoChatResult {
	agentA, err := r.agents.Get(ctx, args.AgentAID)
	if err != nil {
		return AutoChatResult{Status: "error", Message: "one or more agents not found"}
	}
	agentB, err := r.agents.Get(ctx, args.AgentBID)
	if err != nil {
		return AutoChatResult{Status: "error", Message: "one or more agents not found"}
	}
	user, err := r.users.Get(ctx, args.UserID)
	if err != nil {
		return AutoChatResult{Status: "error", Message: "user not found"}
	}

	conv := &models.Conversation{
		Title:  fmt.Sprintf("AUTO: %s <-> %s", agentA.Name, agentB.Name),
		Type:   models.ConversationTypeAuto,
		UserID: user.ID,
	}
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return AutoChatResult{Status: "error", Message: fmt.Sprintf("failed to create conversation: %v", err)}
	}
	if err := r.store.AttachAgents(ctx, conv.ID, agentA.ID, agentB.ID); err != nil {
		return AutoChatResult{Status: "error", Message: fmt.Sprintf("failed to attach agents: %v", err)}
	}

	// The seed is attributed to neither agent: it is the synthetic opening
	// both sides react to.
	seed := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAI,
		Content:        args.InitialMessage,
		IsAutoChat:     true,
	}
	if err := r.store.AppendMessage(ctx, seed); err != nil {
		return AutoChatResult{Status: "error", Message: fmt.Sprintf("failed to store initial message: %v", err)}
	}

	history := []llm.Turn{{Role: models.RoleAI, Content: args.InitialMessage}}

	for i := 0; i < args.Iterations; i++ {
		// The seed belongs to agent A's side, so agent B answers first.
		responder := agentB
		if i%2 == 1 {
			responder = agentA
		}

		response, err := r.generator.Generate(ctx, responder, history)
		if err != nil {
			return AutoChatResult{
				Status:  "error",
				Message: fmt.Sprintf("generation failed at iteration %d (%s): %v", i+1, responder.Name, err),
			}
		}

		metadata, _ := json.Marshal(map[string]int{"iteration": i + 1})
		msg := &models.Message{
			ConversationID: conv.ID,
			Role:           models.RoleAI,
			Content:        response,
			AgentID:        &responder.ID,
			AgentName:      responder.Name,
			IsAutoChat:     true,
			Metadata:       metadata,
		}
		if err := r.store.AppendMessage(ctx, msg); err != nil {
			return AutoChatResult{
				Status:  "error",
				Message: fmt.Sprintf("failed to store response at iteration %d: %v", i+1, err),
			}
		}

		// The response enters the history twice: once as the speaker's own
		// turn and once relabelled as the prompt for the other side, so
		// each agent sees a normal two-party conversation.
		history = append(history,
			llm.Turn{Role: models.RoleAI, Content: response},
			llm.Turn{Role: models.RoleHuman, Content: response},
		)
	}

	return AutoChatResult{
		Status:         "success",
		ConversationID: conv.ID,
		TotalMessages:  args.Iterations + 1,
		Message: fmt.Sprintf("auto-chat finished: %d exchanges between %s and %s",
			args.Iterations, agentA.Name, agentB.Name),
	}
}

// AutoChatWorker runs auto-chat jobs on the River worker pool
type AutoChatWorker struct {
	river.WorkerDefaults[AutoChatJobArgs]
	runner *AutoChatRunner
}

// Work performs the auto-chat run. It always returns nil: the runner
// reports failures through its result instead of failing the job.
func (w *AutoChatWorker) Work(ctx context.Context, job *river.Job[AutoChatJobArgs]) error {
	runID := uuid.New().String()
	log.Info().
		Str("run_id", runID).
		Int64("agent_a", job.Args.AgentAID).
		Int64("agent_b", job.Args.AgentBID).
		Int("iterations", job.Args.Iterations).
		Msg("Starting auto-chat run")

	result := w.runner.Run(ctx, chat.AutoChatArgs{
		AgentAID:       job.Args.AgentAID,
		AgentBID:       job.Args.AgentBID,
		InitialMessage: job.Args.InitialMessage,
		Iterations:     job.Args.Iterations,
		UserID:         job.Args.UserID,
	})

	event := log.Info()
	if result.Status != "success" {
		event = log.Error()
	}
	event.
		Str("run_id", runID).
		Str("status", result.Status).
		Int64("conversation_id", result.ConversationID).
		Int("total_messages", result.TotalMessages).
		Str("message", result.Message).
		Msg("Auto-chat run finished")
	return nil
}
