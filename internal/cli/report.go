package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/internal/backtest"
	"github.com/rustyeddy/backtester/pkg/journal"
)

func newReportCmd(rc *RootConfig) *cobra.Command {
	var org bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show recorded backtest runs",
		Long: `Without a run ID, list every run in the SQLite journal, newest first.
With one, print that run's summary, or its Org-mode export with --org.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load(cmd)
			if err != nil {
				return err
			}
			j, err := journal.NewSQLite(cfg.Journal.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := j.ListBacktestRuns(ctx)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN ID\tCREATED\tSTRATEGY\tSTART\tEND\tRETURN\tSALES")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f%%\t%d\n",
						r.RunID, r.Created.Format(time.RFC3339), r.Strategy,
						r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly),
						r.ReturnPct, r.Sales)
				}
				return tw.Flush()
			}

			if org {
				s, err := j.ExportBacktestOrg(ctx, args[0])
				if err != nil {
					return fmt.Errorf("export run: %w", err)
				}
				fmt.Fprint(out, s)
				return nil
			}

			run, err := j.GetBacktestRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			backtest.PrintBacktestRun(out, run, cfg.Report.Increment)
			return nil
		},
	}

	cmd.Flags().BoolVar(&org, "org", false, "Print the run and its trades as Org-mode")
	return cmd
}
