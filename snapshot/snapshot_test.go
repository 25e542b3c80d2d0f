package snapshot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainlog/trainlog"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	parent := trainlog.NewIdentity()
	return &Snapshot{
		Identity: trainlog.NewIdentity(),
		Status: map[string]trainlog.Value{
			trainlog.StatusIterationsDone: trainlog.Int(7),
			trainlog.StatusEpochsDone:     trainlog.Int(2),
			trainlog.StatusResumedFrom:    trainlog.Bytes(parent.Bytes()),
			"note":                        trainlog.Text("warm restart"),
		},
		Rows: map[int]map[string]trainlog.Value{
			0: {
				"loss":     trainlog.Float(1.25),
				"lr":       trainlog.Float(0.1),
				"step":     trainlog.Int(0),
				"tag":      trainlog.Text(""),
				"weights":  trainlog.Bytes([]byte{0x00, 0xff, 0x10}),
				"obsolete": trainlog.Null(),
			},
			7: {
				"loss": trainlog.Float(math.Inf(-1)),
				"big":  trainlog.Int(math.MaxInt64),
			},
		},
	}
}

func assertSnapshotEqual(t *testing.T, want, got *Snapshot) {
	t.Helper()
	assert.True(t, want.Identity.Equals(got.Identity), "identity changed")

	require.Equal(t, len(want.Status), len(got.Status))
	for key, wantVal := range want.Status {
		gotVal, ok := got.Status[key]
		require.True(t, ok, "status key %q missing", key)
		assert.True(t, wantVal.Equal(gotVal), "status %q: want %v got %v", key, wantVal, gotVal)
	}

	require.Equal(t, len(want.Rows), len(got.Rows))
	for tt, wantRow := range want.Rows {
		gotRow, ok := got.Rows[tt]
		require.True(t, ok, "row %d missing", tt)
		require.Equal(t, len(wantRow), len(gotRow), "row %d size", tt)
		for key, wantVal := range wantRow {
			gotVal, ok := gotRow[key]
			require.True(t, ok, "row %d key %q missing", tt, key)
			assert.True(t, wantVal.Equal(gotVal), "row %d %q: want %v got %v", tt, key, wantVal, gotVal)
		}
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)

	data, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assertSnapshotEqual(t, snap, got)
}

func TestEncode_Deterministic(t *testing.T) {
	snap := sampleSnapshot(t)

	first, err := Encode(snap)
	require.NoError(t, err)
	second, err := Encode(snap)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncode_RequiresIdentity(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, trainlog.ErrSerialization)

	_, err = Encode(&Snapshot{})
	assert.ErrorIs(t, err, trainlog.ErrSerialization)
}

func TestDecode_EmptySnapshot(t *testing.T) {
	data, err := Encode(&Snapshot{Identity: trainlog.NewIdentity()})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Status)
	assert.NotNil(t, got.Rows)
	assert.Empty(t, got.Status)
	assert.Empty(t, got.Rows)
}

func TestDecode_Errors(t *testing.T) {
	const id = "550e8400-e29b-41d4-a716-446655440000"

	// frame compresses a body and prefixes the header, bypassing Encode so
	// malformed bodies can be manufactured.
	frame := func(body string) []byte {
		out := append([]byte{}, magic...)
		return zstdEncoder.EncodeAll([]byte(body), out)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Short", []byte("TL")},
		{"Wrong header", []byte("NOTASNAP........")},
		{"Header then garbage", append(append([]byte{}, magic...), 0x01, 0x02, 0x03)},
		{"Invalid JSON", frame(`{]`)},
		{"Missing identity", frame(`{}`)},
		{"Bad identity", frame(`{"identity":"nope"}`)},
		{"Unknown value tag", frame(`{"identity":"` + id + `","status":{"k":{"t":"wat"}}}`)},
		{"Bad int payload", frame(`{"identity":"` + id + `","status":{"k":{"t":"int","v":"abc"}}}`)},
		{"Bad blob payload", frame(`{"identity":"` + id + `","status":{"k":{"t":"blob","v":"!!"}}}`)},
		{"Negative row time", frame(`{"identity":"` + id + `","rows":{"-1":{}}}`)},
		{"Non-numeric row time", frame(`{"identity":"` + id + `","rows":{"x":{}}}`)},
		{"Row not an object", frame(`{"identity":"` + id + `","rows":{"0":3}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, trainlog.ErrSerialization)
		})
	}
}
