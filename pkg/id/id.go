// Package id mints the identifiers the simulator and journal key rows by.
package id

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a ULID for an order, bracket, lot or closed trade. ulid.Make
// draws from a process-wide monotonic source, so IDs minted in the same
// millisecond still sort in creation order and journal rows keep that order.
func New() string {
	return ulid.Make().String()
}

// NewRunID returns a time-ordered UUIDv7 identifying one simulation run.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
