package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing database tables",
		Long:  "Connect to the configured database and create every table that does not exist yet. Existing tables are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, false)

	store, err := connectStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	created, err := store.Migrate(ctx, logger)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Println("Schema is up to date.")
		return nil
	}
	for _, name := range created {
		fmt.Printf("  created %s\n", name)
	}
	fmt.Printf("Created %d table(s).\n", len(created))
	return nil
}
