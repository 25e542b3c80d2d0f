package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trainlog/trainlog"
)

// status is the flat mapping scoped to the log's current identity. There is
// no ancestry read-through here; continuity across resumes comes from the
// status copy Resume performs. A stored null is a real value, which is how
// resumed_from reads back on a fresh log.
type status struct {
	log *Log
}

var _ trainlog.Status = (*status)(nil)

func (s *status) Get(ctx context.Context, key string) (trainlog.Value, error) {
	var raw interface{}
	var class string
	err := s.log.exec(ctx).QueryRowContext(ctx,
		`SELECT value, typeof(value) FROM status WHERE identity = ? AND "key" = ?`,
		s.log.Identity().Bytes(), key,
	).Scan(&raw, &class)
	if err == sql.ErrNoRows {
		return trainlog.Value{}, fmt.Errorf("status key %q: %w", key, trainlog.ErrKeyNotFound)
	}
	if err != nil {
		return trainlog.Value{}, &trainlog.StorageError{Op: "query status", Err: err}
	}

	v, err := valueFromStorage(raw, class)
	if err != nil {
		return trainlog.Value{}, &trainlog.StorageError{Op: "decode status", Err: err}
	}
	return v, nil
}

func (s *status) Set(ctx context.Context, key string, value trainlog.Value) error {
	query := `
		INSERT INTO status (identity, "key", value)
		VALUES (?, ?, ?)
		ON CONFLICT(identity, "key") DO UPDATE SET value = excluded.value
	`
	return inTransaction(ctx, s.log.db, func(txCtx context.Context) error {
		if _, err := s.log.exec(txCtx).ExecContext(txCtx, query,
			s.log.Identity().Bytes(), key, value.Arg(),
		); err != nil {
			return &trainlog.StorageError{Op: "upsert status", Err: err}
		}
		return nil
	})
}

func (s *status) Delete(ctx context.Context, key string) error {
	query := `
		DELETE FROM status WHERE identity = ? AND "key" = ?
	`
	return inTransaction(ctx, s.log.db, func(txCtx context.Context) error {
		if _, err := s.log.exec(txCtx).ExecContext(txCtx, query,
			s.log.Identity().Bytes(), key,
		); err != nil {
			return &trainlog.StorageError{Op: "delete status", Err: err}
		}
		return nil
	})
}

func (s *status) Len(ctx context.Context) (int, error) {
	var n int
	err := s.log.exec(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status WHERE identity = ?`,
		s.log.Identity().Bytes(),
	).Scan(&n)
	if err != nil {
		return 0, &trainlog.StorageError{Op: "count status", Err: err}
	}
	return n, nil
}

func (s *status) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.log.exec(ctx).QueryContext(ctx,
		`SELECT "key" FROM status WHERE identity = ? ORDER BY "key" ASC`,
		s.log.Identity().Bytes(),
	)
	if err != nil {
		return nil, &trainlog.StorageError{Op: "query status keys", Err: err}
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &trainlog.StorageError{Op: "scan status key", Err: err}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, &trainlog.StorageError{Op: "query status keys", Err: err}
	}
	return keys, nil
}

func (s *status) Items(ctx context.Context) (map[string]trainlog.Value, error) {
	rows, err := s.log.exec(ctx).QueryContext(ctx,
		`SELECT "key", value, typeof(value) FROM status WHERE identity = ?`,
		s.log.Identity().Bytes(),
	)
	if err != nil {
		return nil, &trainlog.StorageError{Op: "query status", Err: err}
	}
	defer rows.Close()

	items := make(map[string]trainlog.Value)
	for rows.Next() {
		var key, class string
		var raw interface{}
		if err := rows.Scan(&key, &raw, &class); err != nil {
			return nil, &trainlog.StorageError{Op: "scan status", Err: err}
		}
		v, err := valueFromStorage(raw, class)
		if err != nil {
			return nil, &trainlog.StorageError{Op: "decode status", Err: err}
		}
		items[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, &trainlog.StorageError{Op: "query status", Err: err}
	}
	return items, nil
}
