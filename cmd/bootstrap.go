package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/chat"
	"github.com/agentchat/internal/config"
	"github.com/agentchat/internal/database"
	"github.com/agentchat/internal/jobs"
	"github.com/agentchat/internal/llm"
)

// app holds everything a command needs after wiring
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	catalog *llm.Catalog
	client  *llm.Client

	agentStore agents.Store
	chatStore  *chat.PostgresStore
	userStore  auth.UserStore

	policy auth.Policy
	tokens *auth.TokenService
	queue  *jobs.Queue
}

// buildApp loads configuration and wires the stores, the LLM client and the
// job queue. The returned pool must be closed by the caller.
func buildApp(ctx context.Context, c *cli.Context) (*app, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	catalog := llm.DefaultCatalog()
	client := llm.NewClient(catalog, cfg.LLM.APIKey, cfg.LLM.BaseURL)

	agentStore := agents.NewPostgresStore(pool)
	chatStore := chat.NewPostgresStore(pool)
	userStore := auth.NewPostgresUserStore(pool)

	titleRunner := jobs.NewTitleRunner(agentStore, chatStore, client)
	autoChatRunner := jobs.NewAutoChatRunner(agentStore, userStore, chatStore, client)
	queue, err := jobs.NewQueue(pool, cfg.Queue.MaxWorkers, titleRunner, autoChatRunner)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		pool:       pool,
		catalog:    catalog,
		client:     client,
		agentStore: agentStore,
		chatStore:  chatStore,
		userStore:  userStore,
		policy:     auth.NewPolicy(cfg.Auth.Mode),
		tokens:     auth.NewTokenService(cfg.Auth.JWTSecret),
		queue:      queue,
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}
