package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/example/tablebot/internal/console"
)

func newChatCmd() *cobra.Command {
	var withJournal bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Book a table from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			// interactive sessions never need a shared store
			cfg.SessionStore = "memory"

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			a, err := newApp(ctx, cfg, log, appOptions{journal: withJournal})
			if err != nil {
				return err
			}
			defer a.Close()

			return console.Run(ctx, a.runtime, "console", cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&withJournal, "journal", false, "record submissions in the booking journal (requires DATABASE_URL)")
	return cmd
}
