package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/tablebot/internal/db"
	"github.com/example/tablebot/internal/domain/booking"
	"github.com/example/tablebot/internal/journal"
	"github.com/example/tablebot/internal/migrate"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the booking journal",
	}
	cmd.AddCommand(newJournalListCmd())
	cmd.AddCommand(newJournalShowCmd())
	cmd.AddCommand(newJournalMigrateCmd())
	return cmd
}

func openJournalDB(ctx context.Context) (*db.DB, func(), error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, d, log); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close(); _ = log.Sync() }, nil
}

func newJournalListCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List recent booking attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, done, err := openJournalDB(ctx)
			if err != nil {
				return err
			}
			defer done()

			attempts, err := journal.NewRepo(d).List(ctx, limit)
			if err != nil {
				return err
			}

			return printAttempts(cmd.OutOrStdout(), attempts)
		},
	}

	c.Flags().IntVar(&limit, "limit", 50, "max rows")
	return c
}

func newJournalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <idempotency-key>",
		Short: "Show one booking attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, done, err := openJournalDB(ctx)
			if err != nil {
				return err
			}
			defer done()

			a, err := journal.NewRepo(d).Get(ctx, args[0])
			if db.IsNotFound(err) {
				return fmt.Errorf("no booking attempt with key %q", args[0])
			}
			if err != nil {
				return err
			}
			return printAttempts(cmd.OutOrStdout(), []booking.Attempt{a})
		},
	}
}

func printAttempts(w io.Writer, attempts []booking.Attempt) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tKEY\tCHANNEL\tCONVERSATION\tSLOT\tNAME\tSEATS\tDATE\tOUTCOME\tERROR")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			a.At.Format("2006-01-02 15:04:05"), a.Key, a.Channel, a.ConversationID, a.Request.ID,
			a.Request.Name, a.Request.Seats, a.Request.Date, a.Outcome, a.Error)
	}
	return tw.Flush()
}

func newJournalMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply journal migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, done, err := openJournalDB(context.Background())
			if err != nil {
				return err
			}
			done()
			return nil
		},
	}
}
