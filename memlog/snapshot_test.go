package memlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainlog/trainlog"
	"github.com/trainlog/trainlog/snapshot"
)

func populatedLog(t *testing.T) *Log {
	t.Helper()
	ctx := context.Background()
	log := New()

	row0, err := log.Row(0)
	require.NoError(t, err)
	require.NoError(t, row0.Set(ctx, "loss", trainlog.Float(1.5)))
	require.NoError(t, row0.Set(ctx, "weights", trainlog.Bytes([]byte{9, 8, 7})))
	require.NoError(t, row0.Set(ctx, "shadowed", trainlog.Null()))

	row3, err := log.Row(3)
	require.NoError(t, err)
	require.NoError(t, row3.Set(ctx, "loss", trainlog.Float(0.75)))

	require.NoError(t, log.Status().Set(ctx, trainlog.StatusIterationsDone, trainlog.Int(3)))
	require.NoError(t, log.Resume(ctx))
	return log
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	log := populatedLog(t)

	restored, err := Restore(log.Snapshot())
	require.NoError(t, err)

	assert.True(t, restored.Identity().Equals(log.Identity()))

	// Status round-trips exactly, including the resumed_from blob.
	wantStatus, err := log.Status().Items(ctx)
	require.NoError(t, err)
	gotStatus, err := restored.Status().Items(ctx)
	require.NoError(t, err)
	require.Equal(t, len(wantStatus), len(gotStatus))
	for key, want := range wantStatus {
		assert.True(t, want.Equal(gotStatus[key]), "status %q", key)
	}

	// Rows round-trip, and the stored null stays invisible yet stored.
	row0, err := restored.Row(0)
	require.NoError(t, err)
	loss, err := row0.Get(ctx, "loss")
	require.NoError(t, err)
	assert.True(t, loss.Equal(trainlog.Float(1.5)))
	_, err = row0.Get(ctx, "shadowed")
	assert.ErrorIs(t, err, trainlog.ErrKeyNotFound)

	times, err := restored.Times(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, times)

	// The null marker is state: snapshotting the restored log keeps it.
	again := restored.Snapshot()
	v, ok := again.Rows[0]["shadowed"]
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestSnapshot_EncodedRoundTrip(t *testing.T) {
	ctx := context.Background()
	log := populatedLog(t)

	data, err := snapshot.Encode(log.Snapshot())
	require.NoError(t, err)

	snap, err := snapshot.Decode(data)
	require.NoError(t, err)

	restored, err := Restore(snap)
	require.NoError(t, err)
	assert.True(t, restored.Identity().Equals(log.Identity()))

	row3, err := restored.Row(3)
	require.NoError(t, err)
	loss, err := row3.Get(ctx, "loss")
	require.NoError(t, err)
	assert.True(t, loss.Equal(trainlog.Float(0.75)))
}

func TestSnapshot_SkipsEmptyRows(t *testing.T) {
	ctx := context.Background()
	log := New()

	row, err := log.Row(6)
	require.NoError(t, err)
	require.NoError(t, row.Set(ctx, "tmp", trainlog.Int(1)))
	require.NoError(t, row.Delete(ctx, "tmp"))

	snap := log.Snapshot()
	assert.Empty(t, snap.Rows)
}

func TestRestore_Invalid(t *testing.T) {
	_, err := Restore(nil)
	assert.ErrorIs(t, err, trainlog.ErrSerialization)

	_, err = Restore(&snapshot.Snapshot{})
	assert.ErrorIs(t, err, trainlog.ErrSerialization)

	_, err = Restore(&snapshot.Snapshot{
		Identity: trainlog.NewIdentity(),
		Rows:     map[int]map[string]trainlog.Value{-4: {}},
	})
	assert.ErrorIs(t, err, trainlog.ErrInvalidTime)
}
