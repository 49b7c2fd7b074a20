package sim

import (
	"time"

	"github.com/rustyeddy/backtester/pkg/journal"
	"go.uber.org/zap"
)

type Option func(*Account)

// WithJournal records trades, events and the daily equity snapshot.
func WithJournal(j journal.Journal) Option {
	return func(a *Account) {
		if j != nil {
			a.journal = j
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Account) {
		if l != nil {
			a.log = l
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(a *Account) {
		if id != "" {
			a.runID = id
		}
	}
}

// WithClock replaces the wall clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(a *Account) {
		if now != nil {
			a.now = now
		}
	}
}
