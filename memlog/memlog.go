// Package memlog provides the in-memory training log backend. State lives
// entirely in process memory with no external effects; Resume swaps the
// identity while keeping the single flattened generation of rows, so no
// ancestry read-through exists here. The full state can be captured and
// reconstructed through the snapshot package.
package memlog

import (
	"context"
	"sync"

	"github.com/zhangyunhao116/skipmap"

	"github.com/trainlog/trainlog"
)

type timeMap = skipmap.FuncMap[int, *mapping]

func newTimeMap() *timeMap {
	return skipmap.NewFunc[int, *mapping](func(a, b int) bool {
		return a < b
	})
}

// Log is the in-memory backend. The zero value is not usable; construct
// through New or Restore.
type Log struct {
	mu       sync.RWMutex
	identity trainlog.Identity

	status *mapping
	rows   *timeMap
}

var _ trainlog.Log = (*Log)(nil)

func init() {
	trainlog.Register(trainlog.BackendMemory, func(trainlog.Config) (trainlog.Log, error) {
		return New(), nil
	})
}

// New mints a log with a fresh identity and the seeded status defaults.
func New() *Log {
	l := &Log{
		identity: trainlog.NewIdentity(),
		status:   newMapping(false),
		rows:     newTimeMap(),
	}
	l.status.kv.Store(trainlog.StatusIterationsDone, trainlog.Int(0))
	l.status.kv.Store(trainlog.StatusEpochsDone, trainlog.Int(0))
	l.status.kv.Store(trainlog.StatusResumedFrom, trainlog.Null())
	return l
}

func (l *Log) Identity() trainlog.Identity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity
}

func (l *Log) Status() trainlog.Status {
	return l.status
}

func (l *Log) Row(t int) (trainlog.Row, error) {
	if err := trainlog.CheckTime(t); err != nil {
		return nil, err
	}
	return &row{log: l, t: t}, nil
}

func (l *Log) CurrentRow(ctx context.Context) (trainlog.Row, error) {
	t, err := l.iterationsDone(ctx)
	if err != nil {
		return nil, err
	}
	return l.Row(t)
}

func (l *Log) PreviousRow(ctx context.Context) (trainlog.Row, error) {
	t, err := l.iterationsDone(ctx)
	if err != nil {
		return nil, err
	}
	return l.Row(t - 1)
}

func (l *Log) iterationsDone(ctx context.Context) (int, error) {
	v, err := l.status.Get(ctx, trainlog.StatusIterationsDone)
	if err != nil {
		return 0, err
	}
	return v.Time()
}

// Resume swaps in a fresh identity and records the previous one under
// resumed_from. Rows and the rest of status stay in place.
func (l *Log) Resume(ctx context.Context) error {
	l.mu.Lock()
	previous := l.identity
	l.identity = trainlog.NewIdentity()
	l.mu.Unlock()
	return l.status.Set(ctx, trainlog.StatusResumedFrom, trainlog.Bytes(previous.Bytes()))
}

// Times returns the times holding at least one visible value, ascending.
func (l *Log) Times(_ context.Context) ([]int, error) {
	times := make([]int, 0, l.rows.Len())
	l.rows.Range(func(t int, m *mapping) bool {
		if m.hasData() {
			times = append(times, t)
		}
		return true
	})
	return times, nil
}

func (l *Log) Len(ctx context.Context) (int, error) {
	times, err := l.Times(ctx)
	if err != nil {
		return 0, err
	}
	return len(times), nil
}

// Close releases nothing; the log is garbage-collected with its owner.
func (l *Log) Close() error {
	return nil
}
