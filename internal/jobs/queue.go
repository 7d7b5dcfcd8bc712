package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/agentchat/internal/chat"
)

// Queue wraps the River client and is the single entry point for enqueueing
// and running background jobs. It satisfies chat.Dispatcher.
type Queue struct {
	client *river.Client[pgx.Tx]
}

// NewQueue creates a queue with both job workers registered on the default
// River queue
func NewQueue(pool *pgxpool.Pool, maxWorkers int, titleRunner *TitleRunner, autoChatRunner *AutoChatRunner) (*Queue, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &TitleWorker{runner: titleRunner})
	river.AddWorker(workers, &AutoChatWorker{runner: autoChatRunner})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Queue{client: client}, nil
}

// Start starts the job queue workers
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop stops the job queue workers, waiting for in-flight jobs
func (q *Queue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// EnqueueTitleGeneration queues a title job for a conversation
func (q *Queue) EnqueueTitleGeneration(ctx context.Context, conversationID, agentID int64) error {
	_, err := q.client.Insert(ctx, TitleJobArgs{
		ConversationID: conversationID,
		AgentID:        agentID,
	}, nil)
	return err
}

// EnqueueAutoChat queues an auto-chat run and returns the job ID
func (q *Queue) EnqueueAutoChat(ctx context.Context, args chat.AutoChatArgs) (int64, error) {
	res, err := q.client.Insert(ctx, AutoChatJobArgs{
		AgentAID:       args.AgentAID,
		AgentBID:       args.AgentBID,
		InitialMessage: args.InitialMessage,
		Iterations:     args.Iterations,
		UserID:         args.UserID,
	}, nil)
	if err != nil {
		return 0, err
	}
	return res.Job.ID, nil
}
