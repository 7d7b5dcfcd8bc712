package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agentchat/internal/config"
	"github.com/agentchat/internal/database"
)

// MigrateCommand returns the CLI command for applying the database schema.
// River's own tables are created separately with `river migrate-up`.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply the database schema",
		Action: runMigrate,
	}
}

func runMigrate(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("Schema applied")
	return nil
}
