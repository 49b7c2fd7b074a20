package strategies

import "github.com/rustyeddy/backtester/pkg/sim"

// NoopStrategy does nothing.
type NoopStrategy struct{ Base }

func (NoopStrategy) OnDay(*sim.Account) error { return nil }
