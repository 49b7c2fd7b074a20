package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/pkg/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query trade journal data",
		Long: `Query and display records from the SQLite journal.

Subcommands:
  trade   - Get details of a specific trade by ID
  day     - List trades closed on a specific simulated day
  events  - Print the event log of a run

Examples:
  backtester journal trade <trade-id>
  backtester journal day 2018-03-15
  backtester journal events <run-id>`,
	}

	open := func(cmd *cobra.Command) (*journal.SQLite, error) {
		cfg, err := rc.load(cmd)
		if err != nil {
			return nil, err
		}
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			start, end, err := dayBounds(args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			recs, err := j.ListTradesClosedBetween(start, end)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "events <run-id>",
		Short: "Print the event log of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			events, err := j.ListEventsByRunID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\n", e.Date.Format(time.DateOnly), e.Message)
			}
			return tw.Flush()
		},
	})

	return cmd
}

// dayBounds returns [day, day+1) in UTC, the zone simulated dates live in.
func dayBounds(day string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
