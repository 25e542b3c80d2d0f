package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFile encodes snap and writes it atomically: the bytes land in a temp
// file next to the target, then a rename makes them visible. The file is
// either fully written or not written at all.
func WriteFile(fs afero.Fs, path string, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %s failed: %w", dir, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := afero.TempFile(fs, dir, ".tmp-snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot failed: %w", err)
	}
	tmpPath := tmp.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot failed: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot failed: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp snapshot to %s failed: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes a snapshot written by WriteFile.
func ReadFile(fs afero.Fs, path string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file failed: %w", err)
	}
	return Decode(data)
}
