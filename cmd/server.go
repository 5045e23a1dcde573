package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/tablebot/internal/telegram"
	"github.com/example/tablebot/internal/web"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp    bool
		withTelegram bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web chat (and optionally the Telegram channel)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireCookieKeys(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, log, appOptions{migrate: migrateUp, journal: true})
			if err != nil {
				return err
			}
			defer a.Close()
			a.startSweeper(ctx)

			if withTelegram && cfg.TelegramToken != "" {
				api, err := telegram.Dial(cfg.TelegramToken)
				if err != nil {
					return err
				}
				ch := telegram.New(api, a.runtime, log, cfg.SlotsHTTPTimeout*3)
				go func() {
					if err := ch.Run(ctx); err != nil {
						log.Error("telegram channel stopped", zap.Error(err))
					}
				}()
			} else if withTelegram {
				log.Warn("TELEGRAM_BOT_TOKEN is empty, telegram channel disabled")
			}

			ws := &web.Server{
				Bot:         a.runtime,
				Sessions:    web.NewSessionManager(cfg.CookieHashKey, cfg.CookieBlockKey),
				Log:         log,
				Metrics:     promhttp.Handler(),
				TurnTimeout: cfg.SlotsHTTPTimeout * 3,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run journal migrations on startup (when DATABASE_URL is set)")
	cmd.Flags().BoolVar(&withTelegram, "telegram", false, "also run the Telegram channel")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
