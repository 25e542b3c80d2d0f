package trainlog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTime reports a time that is not a non-negative integer.
	ErrInvalidTime = errors.New("trainlog: invalid time")

	// ErrKeyNotFound reports a Get of a key with no stored value anywhere
	// in the ancestry chain.
	ErrKeyNotFound = errors.New("trainlog: key not found")

	// ErrCorruptAncestry reports a resumed_from chain that loops back on
	// itself or cannot be decoded.
	ErrCorruptAncestry = errors.New("trainlog: corrupt ancestry chain")

	// ErrSerialization reports snapshot bytes that cannot be decoded.
	ErrSerialization = errors.New("trainlog: invalid snapshot encoding")

	// ErrUnknownBackend reports a Config naming a backend no imported
	// package registered.
	ErrUnknownBackend = errors.New("trainlog: unknown backend")
)

// StorageError wraps a backend failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("trainlog: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
