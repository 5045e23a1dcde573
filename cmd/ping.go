package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebot/internal/slots"
)

func newPingCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Fetch slots for a date from the slot service (connectivity check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			c, err := slots.New(slots.Options{
				BaseURL:     cfg.SlotsBaseURL,
				Timeout:     cfg.SlotsHTTPTimeout,
				MaxAttempts: cfg.SlotsMaxAttempts,
				RatePerSec:  cfg.SlotsRatePerSec,
				Logger:      log,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.SlotsHTTPTimeout*time.Duration(cfg.SlotsMaxAttempts+1))
			defer cancel()
			all, err := c.FetchSlots(ctx, date)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTIME\tSPACES\tBOOKINGS")
			for _, s := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.Date, s.Time, s.SpacesRemaining, len(s.ExistingBookings))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to query as sent to the service (default today, YYYY-MM-DD)")
	return cmd
}
