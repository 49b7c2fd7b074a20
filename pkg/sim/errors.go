package sim

import (
	"errors"

	"github.com/rustyeddy/backtester/pkg/market"
)

var (
	// ErrAlreadyComplete is returned by Advance once the end date is reached.
	ErrAlreadyComplete = errors.New("simulation already complete")

	// ErrConflictingOrder means a plain sell and a bracket sell would coexist
	// for one symbol.
	ErrConflictingOrder = errors.New("conflicting order")

	// ErrInsufficientShares means a sell asks for more shares than are owned
	// and not already committed to pending sells.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrInsufficientHistory is recorded when a step needs the previous bar
	// and the symbol has only one.
	ErrInsufficientHistory = errors.New("insufficient history")

	ErrNotSupported = errors.New("not supported")
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidData is the data provider's failure; it ends the run.
	ErrInvalidData = market.ErrInvalidData
)
