package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/domain/quality"
)

func newChecklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Чек-листы ОТК",
	}

	imp := &cobra.Command{
		Use:   "import FILE.xlsx",
		Short: "Загрузить чек-листы из Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			lists, err := quality.ParseChecklists(f)
			if err != nil {
				return err
			}

			cfg := getConfig(cmd)
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.svc.ImportChecklists(cmd.Context(), lists); err != nil {
				return err
			}
			for _, c := range lists {
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%s: %d items\n", c.Name, c.Version, len(c.Items))
			}
			return nil
		},
	}

	var out string
	tpl := &cobra.Command{
		Use:   "template",
		Short: "Сохранить пустой шаблон чек-листа",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := quality.ChecklistTemplate()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "written %s\n", out)
			return nil
		},
	}
	tpl.Flags().StringVarP(&out, "output", "o", "checklists_template.xlsx", "output file")

	cmd.AddCommand(imp, tpl)
	return cmd
}
