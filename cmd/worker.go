package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// WorkerCommand returns the CLI command for running a standalone worker
// process. The API server and workers share the same queue tables, so this
// lets job execution scale separately from request handling.
func WorkerCommand() *cli.Command {
	return &cli.Command{
		Name:   "worker",
		Usage:  "Run background job workers without the API server",
		Action: runWorker,
	}
}

func runWorker(c *cli.Context) error {
	ctx := context.Background()

	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	log.Info().Int("max_workers", a.cfg.Queue.MaxWorkers).Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.queue.Stop(stopCtx)
}
