package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/infra/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|redo|version|reset]",
		Short:     "Миграции схемы Postgres",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "redo", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("postgres.dsn is empty")
			}
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			return db.Migrate(cmd.Context(), cfg.Postgres.DSN, command, newLogger(cfg, cmd.ErrOrStderr()))
		},
	}
}
