package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/api"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/chat"
)

// ServeCommand returns the CLI command for starting the API server with an
// in-process worker pool
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the AgentChat API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-worker",
				Usage: "Do not run job queue workers in this process",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	ctx := context.Background()

	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.Server.Port
	if c.Int("port") != 0 {
		port = c.Int("port")
	}

	if !c.Bool("no-worker") {
		if err := a.queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.queue.Stop(stopCtx); err != nil {
				log.Error().Err(err).Msg("Failed to stop job queue cleanly")
			}
		}()
	}

	service := chat.NewService(a.agentStore, a.chatStore, a.client, a.queue)
	deps := api.Deps{
		Agents:   agents.NewHandlers(a.agentStore, a.catalog, a.policy),
		Chat:     chat.NewHandlers(service, a.chatStore, a.chatStore, a.agentStore, a.queue, a.policy),
		Auth:     auth.NewHandlers(a.userStore, a.tokens),
		Identify: auth.Identify(a.policy, a.tokens, a.userStore),
	}

	server := api.NewServer(port, deps)
	return server.Start()
}
