package sqlitelog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainlog/trainlog"
)

func memoryConfig() trainlog.Config {
	return trainlog.Config{Backend: trainlog.BackendSQLite, Database: ":memory:"}
}

func fileConfig(t *testing.T) trainlog.Config {
	t.Helper()
	return trainlog.Config{
		Backend:  trainlog.BackendSQLite,
		Database: filepath.Join(t.TempDir(), "trainlog.db"),
	}
}

func setupTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func mustSet(t *testing.T, log *Log, tt int, key string, v trainlog.Value) {
	t.Helper()
	row, err := log.Row(tt)
	require.NoError(t, err)
	require.NoError(t, row.Set(context.Background(), key, v))
}

func TestOpen_FreshIdentity(t *testing.T) {
	ctx := context.Background()

	first := setupTestLog(t)
	second := setupTestLog(t)

	assert.False(t, first.Identity().IsZero())
	assert.False(t, first.Identity().Equals(second.Identity()))

	iters, err := first.Status().Get(ctx, trainlog.StatusIterationsDone)
	require.NoError(t, err)
	assert.True(t, iters.Equal(trainlog.Int(0)))

	resumed, err := first.Status().Get(ctx, trainlog.StatusResumedFrom)
	require.NoError(t, err)
	assert.True(t, resumed.IsNull())
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(trainlog.Config{Backend: trainlog.BackendSQLite})
	assert.Error(t, err)

	_, err = Open(trainlog.Config{Backend: trainlog.BackendMemory, Database: ":memory:"})
	assert.Error(t, err)
}

func TestOpenAt_ZeroIdentity(t *testing.T) {
	_, err := OpenAt(memoryConfig(), trainlog.Identity{})
	assert.Error(t, err)
}

func TestReopen_PreservesState(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)

	log, err := Open(cfg)
	require.NoError(t, err)

	identity := log.Identity()
	mustSet(t, log, 3, "loss", trainlog.Float(0.5))
	mustSet(t, log, 3, "note", trainlog.Text("123"))
	require.NoError(t, log.Status().Set(ctx, trainlog.StatusIterationsDone, trainlog.Int(5)))
	require.NoError(t, log.Close())

	reopened, err := OpenAt(cfg, identity)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.Identity().Equals(identity))

	row, err := reopened.Row(3)
	require.NoError(t, err)
	loss, err := row.Get(ctx, "loss")
	require.NoError(t, err)
	assert.True(t, loss.Equal(trainlog.Float(0.5)))

	// Reconnecting must not reset counters back to their seeds.
	iters, err := reopened.Status().Get(ctx, trainlog.StatusIterationsDone)
	require.NoError(t, err)
	assert.True(t, iters.Equal(trainlog.Int(5)))
}

func TestFromDB_SharedHandle(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	first, err := FromDB(db, trainlog.NewIdentity())
	require.NoError(t, err)
	second, err := FromDB(db, trainlog.NewIdentity())
	require.NoError(t, err)

	// Each log sees only its own identity's data.
	require.NoError(t, first.Status().Set(ctx, "run", trainlog.Text("a")))
	require.NoError(t, second.Status().Set(ctx, "run", trainlog.Text("b")))

	got, err := first.Status().Get(ctx, "run")
	require.NoError(t, err)
	assert.True(t, got.Equal(trainlog.Text("a")))

	// Closing a shared-handle log leaves the handle open for its owner.
	require.NoError(t, first.Close())
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM status").Scan(&n))
	assert.Greater(t, n, 0)

	require.NoError(t, second.Close())
}

func TestFromDB_ZeroIdentity(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = FromDB(db, trainlog.Identity{})
	assert.Error(t, err)
}

func TestTimes_AscendingAcrossChain(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	mustSet(t, log, 5, "loss", trainlog.Float(1))
	mustSet(t, log, 0, "loss", trainlog.Float(2))

	// A time holding only null markers has no data.
	mustSet(t, log, 9, "ghost", trainlog.Null())

	require.NoError(t, log.Resume(ctx))
	mustSet(t, log, 7, "loss", trainlog.Float(3))

	times, err := log.Times(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 7}, times)

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTimes_EmptyLog(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	times, err := log.Times(ctx)
	require.NoError(t, err)
	assert.Empty(t, times)

	n, err := log.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCurrentAndPreviousRow(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	current, err := log.CurrentRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Time())

	_, err = log.PreviousRow(ctx)
	assert.ErrorIs(t, err, trainlog.ErrInvalidTime)

	require.NoError(t, log.Status().Set(ctx, trainlog.StatusIterationsDone, trainlog.Int(8)))

	current, err = log.CurrentRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, current.Time())

	previous, err := log.PreviousRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, previous.Time())

	require.NoError(t, log.Status().Set(ctx, trainlog.StatusIterationsDone, trainlog.Text("soon")))
	_, err = log.CurrentRow(ctx)
	assert.ErrorIs(t, err, trainlog.ErrInvalidTime)
}

func TestResume_SwitchesIdentity(t *testing.T) {
	ctx := context.Background()
	log := setupTestLog(t)

	before := log.Identity()
	require.NoError(t, log.Resume(ctx))
	after := log.Identity()

	require.False(t, before.Equals(after))

	resumed, err := log.Status().Get(ctx, trainlog.StatusResumedFrom)
	require.NoError(t, err)
	b, ok := resumed.Blob()
	require.True(t, ok)
	parent, err := trainlog.IdentityFromBytes(b)
	require.NoError(t, err)
	assert.True(t, parent.Equals(before))
}
