package trainlog

import (
	"strings"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	id1 := NewIdentity()
	id2 := NewIdentity()

	if id1.String() == "" {
		t.Error("identity string should not be empty")
	}

	if id1.Equals(id2) {
		t.Error("independently minted identities should differ")
	}

	// Canonical UUID form check (basic)
	if len(id1.String()) != 36 {
		t.Errorf("identity should be 36 characters, got %d", len(id1.String()))
	}
	if strings.Count(id1.String(), "-") != 4 {
		t.Errorf("identity should contain 4 dashes, got %q", id1.String())
	}
}

func TestIdentityFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid UUID", "550e8400-e29b-41d4-a716-446655440000", false},
		{"Empty", "", true},
		{"Garbage", "not-an-identity", true},
		{"Truncated", "550e8400-e29b-41d4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := IdentityFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("IdentityFromString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.input {
				t.Errorf("expected %s, got %s", tt.input, id.String())
			}
		})
	}
}

func TestIdentityFromBytes(t *testing.T) {
	id := NewIdentity()

	restored, err := IdentityFromBytes(id.Bytes())
	if err != nil {
		t.Fatalf("IdentityFromBytes() error = %v", err)
	}
	if !restored.Equals(id) {
		t.Errorf("round trip changed identity: %s != %s", restored, id)
	}

	if _, err := IdentityFromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("short byte slice should not parse")
	}
	if len(id.Bytes()) != 16 {
		t.Errorf("identity bytes should be 16 long, got %d", len(id.Bytes()))
	}
}

func TestIdentity_Equals(t *testing.T) {
	id1, _ := IdentityFromString("550e8400-e29b-41d4-a716-446655440000")
	id2, _ := IdentityFromString("550e8400-e29b-41d4-a716-446655440000")
	id3 := NewIdentity()

	if !id1.Equals(id2) {
		t.Error("same identities should be equal")
	}
	if id1.Equals(id3) {
		t.Error("different identities should not be equal")
	}
}

func TestIdentity_IsZero(t *testing.T) {
	var zero Identity
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if NewIdentity().IsZero() {
		t.Error("minted identity should not report IsZero")
	}
}
