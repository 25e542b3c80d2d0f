package trainlog

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity names one generation of a log. It is a random 128-bit UUID, so
// independently created logs never collide and a resumed log is
// distinguishable from the run it resumed.
type Identity struct {
	id uuid.UUID
}

// NewIdentity mints a fresh random identity.
func NewIdentity() Identity {
	return Identity{id: uuid.New()}
}

// IdentityFromBytes restores an identity from its 16-byte form.
func IdentityFromBytes(b []byte) (Identity, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return Identity{}, fmt.Errorf("parse identity bytes failed: %w", err)
	}
	return Identity{id: id}, nil
}

// IdentityFromString restores an identity from its canonical string form.
func IdentityFromString(s string) (Identity, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Identity{}, fmt.Errorf("parse identity %q failed: %w", s, err)
	}
	return Identity{id: id}, nil
}

// Bytes returns the 16-byte form stored by persistent backends.
func (i Identity) Bytes() []byte {
	b := i.id
	return b[:]
}

// String returns the canonical hex-and-dashes form.
func (i Identity) String() string {
	return i.id.String()
}

// Equals reports whether two identities name the same generation.
func (i Identity) Equals(other Identity) bool {
	return i.id == other.id
}

// IsZero reports whether the identity is the zero value, which never names a
// real log.
func (i Identity) IsZero() bool {
	return i.id == uuid.Nil
}
