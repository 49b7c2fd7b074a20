package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/internal/backtest"
	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/internal/data"
	"github.com/rustyeddy/backtester/internal/strategies"
	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/sim"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		strategy    string
		start       string
		end         string
		balance     float64
		halfBake    bool
		journalType string
		orgPath     string
		symbols     []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Run a strategy over the configured date range and print the result.

Examples:
  backtester run --strategy sma-cross --start 2016-01-02 --end 2020-01-02
  backtester run --config backtest.yaml --half-bake`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("strategy") {
				cfg.Strategy.Name = strategy
			}
			if flags.Changed("start") {
				cfg.Simulation.Start = start
			}
			if flags.Changed("end") {
				cfg.Simulation.End = end
			}
			if flags.Changed("balance") {
				cfg.Account.Balance = balance
			}
			if flags.Changed("half-bake") {
				cfg.Simulation.HalfBake = halfBake
			}
			if flags.Changed("journal") {
				cfg.Journal.Type = journalType
			}
			if flags.Changed("org") {
				cfg.Report.OrgPath = orgPath
			}
			if flags.Changed("symbols") {
				cfg.Strategy.Symbols = symbols
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log, err := rc.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runBacktest(ctx, cfg, cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Strategy: "+strings.Join(strategies.Names(), "|"))
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD")
	cmd.Flags().Float64Var(&balance, "balance", 0, "Initial equity")
	cmd.Flags().BoolVar(&halfBake, "half-bake", false, "Use the reduced symbol universe")
	cmd.Flags().StringVarP(&journalType, "journal", "j", "", "Journal: sqlite|csv|none")
	cmd.Flags().StringVar(&orgPath, "org", "", "Append an Org-mode summary to this file")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Restrict the strategy to these symbols")

	return cmd
}

// loadStore builds the market data the config points at.
func loadStore(cfg *config.Config) (*data.Store, error) {
	opts := data.Options{
		CalendarSymbol: cfg.Data.CalendarSymbol,
		HalfBakeCount:  cfg.Data.HalfBakeCount,
	}
	if cfg.Data.UniverseFile != "" {
		u, err := data.LoadUniverse(cfg.Data.UniverseFile)
		if err != nil {
			return nil, fmt.Errorf("universe: %w", err)
		}
		opts.Universe = u
	}
	return data.Load(cfg.Data.Dir, data.Format(cfg.Data.Format), opts)
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile, cfg.EventsFile)
	case "none", "":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// runBacktest wires config, data, strategy and journal into one run. A run
// that stops early is still summarized and recorded before its error is
// returned.
func runBacktest(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.Logger) (err error) {
	startDate, err := cfg.StartDate()
	if err != nil {
		return err
	}
	endDate, err := cfg.EndDate()
	if err != nil {
		return err
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}
	log.Info("market data loaded",
		zap.String("dir", cfg.Data.Dir),
		zap.Int("symbols", store.Len()),
		zap.Int("trading_days", store.TradingDays(startDate, endDate)))

	strat, err := strategies.StrategyByName(cfg.Strategy)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := j.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close journal: %w", cerr))
		}
	}()

	acct, err := sim.NewAccount(strat, store, sim.Config{
		Start:         startDate,
		End:           endDate,
		InitialEquity: cfg.Account.Balance,
		HalfBake:      cfg.Simulation.HalfBake,
	}, sim.WithJournal(j), sim.WithLogger(log))
	if err != nil {
		return err
	}

	runner := &backtest.Runner{Account: acct, Logger: log}
	res, runErr := runner.Run(ctx)

	stratYAML, err := yaml.Marshal(cfg.Strategy)
	if err != nil {
		return err
	}
	run := res.BacktestRun(backtest.RunInfo{
		Strategy: cfg.Strategy.Name,
		Dataset:  cfg.Data.Dir,
		Config:   stratYAML,
		Symbols:  len(store.Symbols(cfg.Simulation.HalfBake)),
		HalfBake: cfg.Simulation.HalfBake,
		OrgPath:  cfg.Report.OrgPath,
	})
	if runErr != nil {
		run.Notes = append(run.Notes, "stopped early: "+runErr.Error())
	}

	if run.OrgPath != "" {
		if err := run.WriteBacktestOrg(); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if _, err := backtest.Record(context.WithoutCancel(ctx), j, run); err != nil {
		return errors.Join(runErr, err)
	}

	backtest.PrintBacktestRun(out, run, cfg.Report.Increment)
	return runErr
}
