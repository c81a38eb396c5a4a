// Package cli — командная строка qms: сервер, миграции и разовые операции ОТК.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Spok95/metalqms/internal/config"
)

var Version = "dev"

type configKey struct{}

// flagKeys — persistent-флаги и ключи конфигурации, которые они перекрывают.
var flagKeys = map[string]string{
	"env":        "app.env",
	"storage":    "app.storage",
	"log-format": "app.log_format",
	"dsn":        "postgres.dsn",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:     "qms",
		Short:   "Входной контроль металлопроката: УЗК, ППСД и инспекции ОТК",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			v := config.New()
			if err := bindFlags(v, cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, &cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "config/example.yaml", "config file")
	pf.String("env", "", "environment (dev|prod)")
	pf.String("storage", "", "storage backend (postgres|memory)")
	pf.String("log-format", "", "log format (json|text)")
	pf.String("dsn", "", "Postgres DSN")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCheckCmd(),
		newMaterialCmd(),
		newReceiveCmd(),
		newReceiptsCmd(),
		newOutboxCmd(),
		newChecklistCmd(),
	)
	return root
}

func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getConfig(cmd *cobra.Command) *config.Config {
	if c, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{}
}
