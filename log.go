// Package trainlog records the timeline of a training run: a two-dimensional
// value store indexed by a non-negative integer time and a string key, plus a
// flat status mapping that is not bound to any time. A log is created fresh,
// written to by exactly one process, and can be resumed after an interruption:
// Resume mints a new identity chained to the old one, and persistent backends
// read through that ancestry chain so earlier history stays visible.
//
// Backends register themselves the way database/sql drivers do. Import the
// backend package and construct through Open, or call the backend's own
// constructor directly:
//
//	import (
//		"github.com/trainlog/trainlog"
//		_ "github.com/trainlog/trainlog/sqlitelog"
//	)
//
//	log, err := trainlog.Open(trainlog.Config{Backend: "sqlite", Database: "run.db"})
package trainlog

import (
	"context"
	"fmt"
)

// Status keys every log carries from construction.
const (
	StatusIterationsDone = "iterations_done"
	StatusEpochsDone     = "epochs_done"
	StatusResumedFrom    = "resumed_from"
)

// Mapping is the flat key/value contract shared by rows and status. Get of an
// absent key fails with ErrKeyNotFound; Len, Keys and Items never fail merely
// because nothing was written yet.
type Mapping interface {
	Get(ctx context.Context, key string) (Value, error)
	Set(ctx context.Context, key string, value Value) error
	Delete(ctx context.Context, key string) error
	Len(ctx context.Context) (int, error)
	Keys(ctx context.Context) ([]string, error)
	Items(ctx context.Context) (map[string]Value, error)
}

// Row is the mapping bound to one (identity, time) pair. Any non-negative
// time addresses a valid row; a row with no writes is simply empty.
type Row interface {
	Mapping

	// Time returns the time this row is bound to.
	Time() int
}

// Status is the flat, time-independent mapping tracking cumulative training
// state. It always contains iterations_done, epochs_done and resumed_from.
type Status interface {
	Mapping
}

// Log is the timeline contract implemented by every backend.
type Log interface {
	// Identity names the current generation of the log.
	Identity() Identity

	// Status returns the mutable status mapping of the current identity.
	Status() Status

	// Row returns the row view for time t. It fails with ErrInvalidTime for
	// negative t and never fails for any non-negative t.
	Row(t int) (Row, error)

	// CurrentRow returns the row at status iterations_done.
	CurrentRow(ctx context.Context) (Row, error)

	// PreviousRow returns the row at status iterations_done minus one. On a
	// fresh log the computed time is negative and the call fails with
	// ErrInvalidTime.
	PreviousRow(ctx context.Context) (Row, error)

	// Resume mints a fresh identity chained to the current one: status is
	// carried over, resumed_from is set to the previous identity, and all
	// subsequent reads and writes address the new identity.
	Resume(ctx context.Context) error

	// Times returns the distinct times with data, ascending, across the
	// full ancestry chain.
	Times(ctx context.Context) ([]int, error)

	// Len returns the count of distinct times with data across the full
	// ancestry chain.
	Len(ctx context.Context) (int, error)

	Close() error
}

// CheckTime validates a log time. Times are non-negative integers; anything
// else fails with ErrInvalidTime.
func CheckTime(t int) error {
	if t < 0 {
		return fmt.Errorf("time %d: %w", t, ErrInvalidTime)
	}
	return nil
}
