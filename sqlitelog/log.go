// Package sqlitelog provides the SQLite-backed persistent training log.
// Entries and status live in two tables keyed by the raw identity bytes;
// resumption chains identities through the resumed_from status key, and row
// reads walk that chain so history written before a resume stays visible.
package sqlitelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trainlog/trainlog"
)

// Log is the SQLite backend. Construct through Open, OpenAt, or FromDB.
// One Log writes as exactly one identity; concurrent readers are safe, a
// second writer on the same identity is not supported.
type Log struct {
	db     *sql.DB
	ownsDB bool

	mu       sync.RWMutex
	identity trainlog.Identity
	// ancestors caches the resolved chain, self first, as raw identity
	// bytes. nil means unresolved; reset on Resume.
	ancestors [][]byte
}

var _ trainlog.Log = (*Log)(nil)

func init() {
	trainlog.Register(trainlog.BackendSQLite, func(cfg trainlog.Config) (trainlog.Log, error) {
		return Open(cfg)
	})
}

// Open opens or creates the database named by cfg.Database, migrates the
// schema, and starts a log under a fresh identity.
func Open(cfg trainlog.Config) (*Log, error) {
	return open(cfg, trainlog.NewIdentity())
}

// OpenAt is Open resuming an existing identity: reads and writes address
// the given identity and whatever ancestry it has on record.
func OpenAt(cfg trainlog.Config, identity trainlog.Identity) (*Log, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("open log: identity is required")
	}
	return open(cfg, identity)
}

func open(cfg trainlog.Config, identity trainlog.Identity) (*Log, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend != trainlog.BackendSQLite {
		return nil, fmt.Errorf("open log: config backend is %q, not %q", cfg.Backend, trainlog.BackendSQLite)
	}

	db, err := sql.Open("sqlite3", cfg.Database)
	if err != nil {
		return nil, &trainlog.StorageError{Op: "open database", Err: err}
	}
	// Single writer per log; one connection also keeps :memory: databases
	// from vanishing between pooled connections.
	db.SetMaxOpenConns(1)

	l, err := attach(db, identity, true)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// FromDB starts a log on a caller-owned database handle, sharing the
// connection with other logs. Close never closes a shared handle.
func FromDB(db *sql.DB, identity trainlog.Identity) (*Log, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("open log: identity is required")
	}
	return attach(db, identity, false)
}

func attach(db *sql.DB, identity trainlog.Identity, owned bool) (*Log, error) {
	if err := NewMigrator(db).Migrate(); err != nil {
		return nil, err
	}
	l := &Log{db: db, ownsDB: owned, identity: identity}
	if err := l.seedStatus(context.Background()); err != nil {
		return nil, err
	}
	return l, nil
}

// seedStatus inserts the three status defaults in one transaction. Existing
// rows are left alone, so reconnecting to an identity never resets the
// counters it accumulated.
func (l *Log) seedStatus(ctx context.Context) error {
	seeds := []struct {
		key   string
		value trainlog.Value
	}{
		{trainlog.StatusIterationsDone, trainlog.Int(0)},
		{trainlog.StatusEpochsDone, trainlog.Int(0)},
		{trainlog.StatusResumedFrom, trainlog.Null()},
	}
	return inTransaction(ctx, l.db, func(txCtx context.Context) error {
		for _, seed := range seeds {
			query := `
				INSERT OR IGNORE INTO status (identity, "key", value)
				VALUES (?, ?, ?)
			`
			if _, err := l.exec(txCtx).ExecContext(txCtx, query,
				l.Identity().Bytes(), seed.key, seed.value.Arg(),
			); err != nil {
				return &trainlog.StorageError{Op: "seed status", Err: err}
			}
		}
		return nil
	})
}

// exec returns the transaction carried by ctx, or the plain handle.
func (l *Log) exec(ctx context.Context) dbExecutor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return l.db
}

// Identity returns the identity this log currently writes as.
func (l *Log) Identity() trainlog.Identity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity
}

func (l *Log) Status() trainlog.Status {
	return &status{log: l}
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
	v, err := l.Status().Get(ctx, trainlog.StatusIterationsDone)
	if err != nil {
		return 0, err
	}
	return v.Time()
}

// Resume mints a fresh identity chained to the current one. The status copy
// and the new resumed_from link commit in one transaction; only then does
// the log switch identities and drop its cached ancestry.
func (l *Log) Resume(ctx context.Context) error {
	previous := l.Identity()
	next := trainlog.NewIdentity()

	err := inTransaction(ctx, l.db, func(txCtx context.Context) error {
		copyQuery := `
			INSERT OR REPLACE INTO status (identity, "key", value)
			SELECT ?, "key", value FROM status WHERE identity = ?
		`
		if _, err := l.exec(txCtx).ExecContext(txCtx, copyQuery,
			next.Bytes(), previous.Bytes(),
		); err != nil {
			return &trainlog.StorageError{Op: "copy status on resume", Err: err}
		}

		linkQuery := `
			INSERT INTO status (identity, "key", value)
			VALUES (?, ?, ?)
			ON CONFLICT(identity, "key") DO UPDATE SET value = excluded.value
		`
		if _, err := l.exec(txCtx).ExecContext(txCtx, linkQuery,
			next.Bytes(), trainlog.StatusResumedFrom, previous.Bytes(),
		); err != nil {
			return &trainlog.StorageError{Op: "record resumed_from", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.identity = next
	l.ancestors = nil
	l.mu.Unlock()
	return nil
}

// Times returns the distinct times with a non-null value anywhere in the
// ancestry chain, ascending.
func (l *Log) Times(ctx context.Context) ([]int, error) {
	chain, err := l.ancestorChain(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT time FROM entries
		WHERE identity IN %s AND value IS NOT NULL
		ORDER BY time ASC
	`, placeholders(len(chain)))

	rows, err := l.exec(ctx).QueryContext(ctx, query, chain...)
	if err != nil {
		return nil, &trainlog.StorageError{Op: "query times", Err: err}
	}
	defer rows.Close()

	times := []int{}
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			return nil, &trainlog.StorageError{Op: "scan time", Err: err}
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &trainlog.StorageError{Op: "query times", Err: err}
	}
	return times, nil
}

// Len returns the count of distinct times with a non-null value anywhere in
// the ancestry chain.
func (l *Log) Len(ctx context.Context) (int, error) {
	chain, err := l.ancestorChain(ctx)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT time) FROM entries
		WHERE identity IN %s AND value IS NOT NULL
	`, placeholders(len(chain)))

	var n int
	if err := l.exec(ctx).QueryRowContext(ctx, query, chain...).Scan(&n); err != nil {
		return 0, &trainlog.StorageError{Op: "count times", Err: err}
	}
	return n, nil
}

// Close closes the database if this log owns it. Logs built on a shared
// handle through FromDB leave the handle open for their owner.
func (l *Log) Close() error {
	if !l.ownsDB {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return &trainlog.StorageError{Op: "close database", Err: err}
	}
	return nil
}

// placeholders renders an IN-clause placeholder list: (?, ?, ?).
func placeholders(n int) string {
	if n == 0 {
		return "()"
	}
	return "(" + strings.Repeat("?, ", n-1) + "?)"
}
