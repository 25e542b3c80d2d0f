package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trainlog/trainlog"
)

// row is the view bound to (log, time). Reads see the whole ancestry chain;
// writes and deletes touch only the log's own identity.
type row struct {
	log *Log
	t   int
}

var _ trainlog.Row = (*row)(nil)

func (r *row) Time() int {
	return r.t
}

// Get walks the chain in order and returns the first non-null value. A
// stored null is skipped like an absent row, so it neither satisfies the
// read nor shadows an older generation.
func (r *row) Get(ctx context.Context, key string) (trainlog.Value, error) {
	chain, err := r.log.ancestorChain(ctx)
	if err != nil {
		return trainlog.Value{}, err
	}

	query := `
		SELECT value, typeof(value) FROM entries
		WHERE identity = ? AND time = ? AND "key" = ?
	`
	for _, identity := range chain {
		var raw interface{}
		var class string
		err := r.log.exec(ctx).QueryRowContext(ctx, query, identity, r.t, key).Scan(&raw, &class)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return trainlog.Value{}, &trainlog.StorageError{Op: "query entry", Err: err}
		}
		if class == "null" {
			continue
		}
		v, err := valueFromStorage(raw, class)
		if err != nil {
			return trainlog.Value{}, &trainlog.StorageError{Op: "decode entry", Err: err}
		}
		return v, nil
	}
	return trainlog.Value{}, fmt.Errorf("key %q at time %d: %w", key, r.t, trainlog.ErrKeyNotFound)
}

func (r *row) Set(ctx context.Context, key string, value trainlog.Value) error {
	query := `
		INSERT INTO entries (identity, time, "key", value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity, time, "key") DO UPDATE SET value = excluded.value
	`
	return inTransaction(ctx, r.log.db, func(txCtx context.Context) error {
		if _, err := r.log.exec(txCtx).ExecContext(txCtx, query,
			r.log.Identity().Bytes(), r.t, key, value.Arg(),
		); err != nil {
			return &trainlog.StorageError{Op: "upsert entry", Err: err}
		}
		return nil
	})
}

// Delete removes this generation's entry only. An ancestor's value for the
// same key becomes visible again once the override is gone.
func (r *row) Delete(ctx context.Context, key string) error {
	query := `
		DELETE FROM entries WHERE identity = ? AND time = ? AND "key" = ?
	`
	return inTransaction(ctx, r.log.db, func(txCtx context.Context) error {
		if _, err := r.log.exec(txCtx).ExecContext(txCtx, query,
			r.log.Identity().Bytes(), r.t, key,
		); err != nil {
			return &trainlog.StorageError{Op: "delete entry", Err: err}
		}
		return nil
	})
}

// Len counts the distinct keys visible at this time across the chain.
func (r *row) Len(ctx context.Context) (int, error) {
	chain, err := r.log.ancestorChain(ctx)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT "key") FROM entries
		WHERE identity IN %s AND time = ? AND value IS NOT NULL
	`, placeholders(len(chain)))

	var n int
	args := append(chain, r.t)
	if err := r.log.exec(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &trainlog.StorageError{Op: "count entry keys", Err: err}
	}
	return n, nil
}

// Keys returns the distinct keys visible at this time across the chain,
// sorted. A key counts once no matter how many generations wrote it.
func (r *row) Keys(ctx context.Context) ([]string, error) {
	chain, err := r.log.ancestorChain(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT "key" FROM entries
		WHERE identity IN %s AND time = ? AND value IS NOT NULL
		ORDER BY "key" ASC
	`, placeholders(len(chain)))

	args := append(chain, r.t)
	rows, err := r.log.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &trainlog.StorageError{Op: "query entry keys", Err: err}
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &trainlog.StorageError{Op: "scan entry key", Err: err}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &trainlog.StorageError{Op: "query entry keys", Err: err}
	}
	return keys, nil
}

// Items collects the visible key/value pairs at this time. Generations are
// read self first, so the value for a duplicated key follows the same
// precedence as Get.
func (r *row) Items(ctx context.Context) (map[string]trainlog.Value, error) {
	chain, err := r.log.ancestorChain(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT "key", value, typeof(value) FROM entries
		WHERE identity = ? AND time = ? AND value IS NOT NULL
	`
	items := make(map[string]trainlog.Value)
	for _, identity := range chain {
		rows, err := r.log.exec(ctx).QueryContext(ctx, query, identity, r.t)
		if err != nil {
			return nil, &trainlog.StorageError{Op: "query entries", Err: err}
		}
		if err := collectItems(rows, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// collectItems folds one generation's rows into items, keeping values
// already claimed by a newer generation. Closes rows.
func collectItems(rows *sql.Rows, items map[string]trainlog.Value) error {
	defer rows.Close()
	for rows.Next() {
		var key, class string
		var raw interface{}
		if err := rows.Scan(&key, &raw, &class); err != nil {
			return &trainlog.StorageError{Op: "scan entry", Err: err}
		}
		if _, claimed := items[key]; claimed {
			continue
		}
		v, err := valueFromStorage(raw, class)
		if err != nil {
			return &trainlog.StorageError{Op: "decode entry", Err: err}
		}
		items[key] = v
	}
	if err := rows.Err(); err != nil {
		return &trainlog.StorageError{Op: "query entries", Err: err}
	}
	return nil
}
