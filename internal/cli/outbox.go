package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/domain/notifications"
)

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Очередь уведомлений",
	}

	var (
		status string
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "Сообщения outbox по статусу",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := notifications.Status(status)
			switch st {
			case notifications.StatusPending, notifications.StatusRetry, notifications.StatusSent, notifications.StatusFailed:
			default:
				return fmt.Errorf("unknown outbox status %q", status)
			}

			cfg := getConfig(cmd)
			log := newLogger(cfg, cmd.ErrOrStderr())
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.outbox.ListByStatus(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(w, "no messages")
				return nil
			}
			for _, m := range msgs {
				fmt.Fprintf(w, "%s user #%d %s attempts=%d", m.ID, m.UserID, m.Kind, m.Attempts)
				if m.LastError != "" {
					fmt.Fprintf(w, " error=%q", m.LastError)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", string(notifications.StatusFailed), "pending|retry|sent|failed")
	list.Flags().IntVar(&limit, "limit", 50, "max rows")

	cmd.AddCommand(list)
	return cmd
}
