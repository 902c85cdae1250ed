package rewind

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies entry timestamps. Timestamps are informational only; the
// ledger orders entries by sequence id, so a skewed clock never reorders history.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces project identifiers.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
