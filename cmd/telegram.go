package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/tablebot/internal/telegram"
)

func newTelegramCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Run only the Telegram channel (long polling)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.TelegramToken == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, log, appOptions{migrate: migrateUp, journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			a.startSweeper(ctx)

			api, err := telegram.Dial(cfg.TelegramToken)
			if err != nil {
				return err
			}
			return telegram.New(api, a.runtime, log, cfg.SlotsHTTPTimeout*3).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run journal migrations on startup (when DATABASE_URL is set)")
	return cmd
}
