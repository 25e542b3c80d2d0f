package memlog

import (
	"fmt"

	"github.com/trainlog/trainlog"
	"github.com/trainlog/trainlog/snapshot"
)

// Snapshot captures the current state, stored null markers included. Rows
// that hold nothing at all are skipped; they are indistinguishable from
// never-probed times.
func (l *Log) Snapshot() *snapshot.Snapshot {
	snap := &snapshot.Snapshot{
		Identity: l.Identity(),
		Status:   make(map[string]trainlog.Value),
		Rows:     make(map[int]map[string]trainlog.Value),
	}
	l.status.rangeStored(func(key string, v trainlog.Value) bool {
		snap.Status[key] = v
		return true
	})
	l.rows.Range(func(t int, m *mapping) bool {
		if m.storedLen() == 0 {
			return true
		}
		rowData := make(map[string]trainlog.Value, m.storedLen())
		m.rangeStored(func(key string, v trainlog.Value) bool {
			rowData[key] = v
			return true
		})
		snap.Rows[t] = rowData
		return true
	})
	return snap
}

// Restore reconstructs a log holding exactly what the snapshot holds. The
// status mapping is taken as-is; defaults are not re-seeded.
func Restore(snap *snapshot.Snapshot) (*Log, error) {
	if snap == nil || snap.Identity.IsZero() {
		return nil, fmt.Errorf("restore log: snapshot identity is required: %w", trainlog.ErrSerialization)
	}

	l := &Log{
		identity: snap.Identity,
		status:   newMapping(false),
		rows:     newTimeMap(),
	}
	for key, v := range snap.Status {
		l.status.kv.Store(key, v)
	}
	for t, rowData := range snap.Rows {
		if err := trainlog.CheckTime(t); err != nil {
			return nil, err
		}
		m := newMapping(true)
		for key, v := range rowData {
			m.kv.Store(key, v)
		}
		l.rows.Store(t, m)
	}
	return l, nil
}
