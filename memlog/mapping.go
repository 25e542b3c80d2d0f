package memlog

import (
	"context"
	"fmt"

	"github.com/zhangyunhao116/skipmap"

	"github.com/trainlog/trainlog"
)

type keyMap = skipmap.FuncMap[string, trainlog.Value]

// mapping is a concurrent ordered key/value map. Row mappings hide stored
// null markers from reads so they behave like the persistent backend's
// non-null read-through; the status mapping keeps nulls visible.
type mapping struct {
	kv        *keyMap
	hideNulls bool
}

func newMapping(hideNulls bool) *mapping {
	return &mapping{
		kv: skipmap.NewFunc[string, trainlog.Value](func(a, b string) bool {
			return a < b
		}),
		hideNulls: hideNulls,
	}
}

var _ trainlog.Mapping = (*mapping)(nil)

func (m *mapping) Get(_ context.Context, key string) (trainlog.Value, error) {
	v, ok := m.kv.Load(key)
	if !ok || (m.hideNulls && v.IsNull()) {
		return trainlog.Value{}, fmt.Errorf("key %q: %w", key, trainlog.ErrKeyNotFound)
	}
	return v, nil
}

func (m *mapping) Set(_ context.Context, key string, value trainlog.Value) error {
	m.kv.Store(key, value)
	return nil
}

func (m *mapping) Delete(_ context.Context, key string) error {
	m.kv.Delete(key)
	return nil
}

func (m *mapping) Len(_ context.Context) (int, error) {
	if !m.hideNulls {
		return m.kv.Len(), nil
	}
	n := 0
	m.kv.Range(func(_ string, v trainlog.Value) bool {
		if !v.IsNull() {
			n++
		}
		return true
	})
	return n, nil
}

func (m *mapping) Keys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, m.kv.Len())
	m.kv.Range(func(key string, v trainlog.Value) bool {
		if m.hideNulls && v.IsNull() {
			return true
		}
		keys = append(keys, key)
		return true
	})
	return keys, nil
}

func (m *mapping) Items(_ context.Context) (map[string]trainlog.Value, error) {
	items := make(map[string]trainlog.Value, m.kv.Len())
	m.kv.Range(func(key string, v trainlog.Value) bool {
		if m.hideNulls && v.IsNull() {
			return true
		}
		items[key] = v
		return true
	})
	return items, nil
}

// hasData reports whether at least one visible value is stored.
func (m *mapping) hasData() bool {
	found := false
	m.kv.Range(func(_ string, v trainlog.Value) bool {
		if m.hideNulls && v.IsNull() {
			return true
		}
		found = true
		return false
	})
	return found
}

// storedLen counts every stored pair, null markers included.
func (m *mapping) storedLen() int {
	return m.kv.Len()
}

// rangeStored iterates every stored pair, null markers included.
func (m *mapping) rangeStored(f func(key string, v trainlog.Value) bool) {
	m.kv.Range(f)
}

// row is a cursor bound to (log, time). The backing map materializes on the
// first write, so probing a time never counts as data by itself.
type row struct {
	log *Log
	t   int
}

var _ trainlog.Row = (*row)(nil)

func (r *row) Time() int {
	return r.t
}

func (r *row) Get(ctx context.Context, key string) (trainlog.Value, error) {
	if m, ok := r.log.rows.Load(r.t); ok {
		return m.Get(ctx, key)
	}
	return trainlog.Value{}, fmt.Errorf("key %q: %w", key, trainlog.ErrKeyNotFound)
}

func (r *row) Set(ctx context.Context, key string, value trainlog.Value) error {
	m, ok := r.log.rows.Load(r.t)
	if !ok {
		m, _ = r.log.rows.LoadOrStore(r.t, newMapping(true))
	}
	return m.Set(ctx, key, value)
}

func (r *row) Delete(ctx context.Context, key string) error {
	if m, ok := r.log.rows.Load(r.t); ok {
		return m.Delete(ctx, key)
	}
	return nil
}

func (r *row) Len(ctx context.Context) (int, error) {
	if m, ok := r.log.rows.Load(r.t); ok {
		return m.Len(ctx)
	}
	return 0, nil
}

func (r *row) Keys(ctx context.Context) ([]string, error) {
	if m, ok := r.log.rows.Load(r.t); ok {
		return m.Keys(ctx)
	}
	return []string{}, nil
}

func (r *row) Items(ctx context.Context) (map[string]trainlog.Value, error) {
	if m, ok := r.log.rows.Load(r.t); ok {
		return m.Items(ctx)
	}
	return map[string]trainlog.Value{}, nil
}
