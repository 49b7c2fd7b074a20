package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// RunnerOptions controls how the backtest runner behaves.
type RunnerOptions struct {
	// ContinueOnError keeps advancing after a day returns an error. The
	// error is logged and the last one is returned at the end.
	ContinueOnError bool

	// Progress is called after every simulated day when set.
	Progress func(day time.Time, equity float64)
}

// Runner drives an account day by day until its end date.
type Runner struct {
	Account *sim.Account
	Logger  *zap.Logger
	Options RunnerOptions
}

// Run advances the account to completion. Cancellation is checked between
// days; the account always stops on a committed day. The returned Result
// describes the account as far as it got, even on error.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Account == nil {
		return Result{}, fmt.Errorf("backtest: Account is required")
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", r.Account.RunID()))

	log.Info("backtest started",
		zap.Time("start", r.Account.StartDate()),
		zap.Time("end", r.Account.EndDate()),
		zap.Float64("equity", r.Account.Equity()))

	var lastErr error
	for !r.Account.Complete() {
		if err := ctx.Err(); err != nil {
			log.Warn("backtest cancelled", zap.Time("date", r.Account.CurrentDate()), zap.Error(err))
			return Summarize(r.Account), err
		}

		err := r.Account.Advance()
		if r.Options.Progress != nil {
			r.Options.Progress(r.Account.CurrentDate(), r.Account.Equity())
		}
		if err != nil {
			if errors.Is(err, sim.ErrAlreadyComplete) {
				break
			}
			if !r.Options.ContinueOnError {
				log.Error("backtest stopped", zap.Time("date", r.Account.CurrentDate()), zap.Error(err))
				return Summarize(r.Account), err
			}
			log.Warn("day failed", zap.Time("date", r.Account.CurrentDate()), zap.Error(err))
			lastErr = err
		}
	}

	res := Summarize(r.Account)
	log.Info("backtest finished",
		zap.Float64("equity", res.Equity),
		zap.Float64("return_pct", res.ReturnPct),
		zap.Int("sales", res.Sales))
	return res, lastErr
}

// BacktestRecorder is implemented by journals that keep a table of runs.
type BacktestRecorder interface {
	RecordBacktest(ctx context.Context, r journal.BacktestRun) error
}

// Record stores run when j keeps runs and reports whether it did.
func Record(ctx context.Context, j journal.Journal, run journal.BacktestRun) (bool, error) {
	rec, ok := j.(BacktestRecorder)
	if !ok {
		return false, nil
	}
	if err := rec.RecordBacktest(ctx, run); err != nil {
		return false, fmt.Errorf("record backtest %s: %w", run.RunID, err)
	}
	return true, nil
}
