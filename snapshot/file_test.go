package snapshot

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainlog/trainlog"
)

func TestWriteFile_ReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	snap := sampleSnapshot(t)
	path := filepath.Join("runs", "exp-1", "log.tlsnap")

	require.NoError(t, WriteFile(fs, path, snap))

	got, err := ReadFile(fs, path)
	require.NoError(t, err)
	assertSnapshotEqual(t, snap, got)
}

func TestWriteFile_LeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("runs", "log.tlsnap")

	require.NoError(t, WriteFile(fs, path, sampleSnapshot(t)))
	require.NoError(t, WriteFile(fs, path, sampleSnapshot(t)))

	infos, err := afero.ReadDir(fs, filepath.Dir(path))
	require.NoError(t, err)
	for _, info := range infos {
		assert.False(t, strings.HasPrefix(info.Name(), ".tmp-"),
			"temp file left behind: %s", info.Name())
	}
	assert.Len(t, infos, 1)
}

func TestWriteFile_Overwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "log.tlsnap"

	first := sampleSnapshot(t)
	require.NoError(t, WriteFile(fs, path, first))

	second := sampleSnapshot(t)
	require.NoError(t, WriteFile(fs, path, second))

	got, err := ReadFile(fs, path)
	require.NoError(t, err)
	assert.True(t, got.Identity.Equals(second.Identity))
}

func TestWriteFile_InvalidSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	err := WriteFile(fs, "log.tlsnap", &Snapshot{})
	assert.ErrorIs(t, err, trainlog.ErrSerialization)

	// Nothing should be created for a snapshot that cannot encode.
	exists, aerr := afero.Exists(fs, "log.tlsnap")
	require.NoError(t, aerr)
	assert.False(t, exists)
}

func TestReadFile_Missing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := ReadFile(fs, "absent.tlsnap")
	assert.Error(t, err)
}

func TestReadFile_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.tlsnap", []byte("not a snapshot"), 0o644))

	_, err := ReadFile(fs, "bad.tlsnap")
	assert.ErrorIs(t, err, trainlog.ErrSerialization)
}
