package trainlog

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the scalar types a log can store.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindBlob
)

// String returns the tag used in snapshots and CLI output.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one stored scalar: an integer, a float, a text string, a byte
// sequence, or the null marker. The zero Value is null. Null is a real stored
// value distinct from an absent key: persistent backends use it to shadow an
// ancestor's value without deleting their own history.
type Value struct {
	kind Kind
	n    int64
	f    float64
	s    string
	b    []byte
}

// Int returns an integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, n: v}
}

// Float returns a floating-point value.
func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// Text returns a text value.
func Text(v string) Value {
	return Value{kind: KindText, s: v}
}

// Bytes returns a byte-sequence value. The slice is not copied.
func Bytes(v []byte) Value {
	return Value{kind: KindBlob, b: v}
}

// Null returns the null marker.
func Null() Value {
	return Value{kind: KindNull}
}

// Kind returns the scalar type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is the null marker.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Int64 returns the integer payload. ok is false for any other kind.
func (v Value) Int64() (n int64, ok bool) {
	return v.n, v.kind == KindInt
}

// Float64 returns the float payload. ok is false for any other kind.
func (v Value) Float64() (f float64, ok bool) {
	return v.f, v.kind == KindFloat
}

// Text returns the text payload. ok is false for any other kind.
func (v Value) Text() (s string, ok bool) {
	return v.s, v.kind == KindText
}

// Blob returns the byte payload. ok is false for any other kind. The slice
// is not copied.
func (v Value) Blob() (b []byte, ok bool) {
	return v.b, v.kind == KindBlob
}

// Time interprets the value as a log time. It fails with ErrInvalidTime
// unless the value is a non-negative integer.
func (v Value) Time() (int, error) {
	if v.kind != KindInt || v.n < 0 {
		return 0, fmt.Errorf("value %s: %w", v, ErrInvalidTime)
	}
	return int(v.n), nil
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.n == other.n
	case KindFloat:
		return v.f == other.f
	case KindText:
		return v.s == other.s
	case KindBlob:
		return bytes.Equal(v.b, other.b)
	default:
		return false
	}
}

// Arg returns the value in the form database drivers bind: nil for null,
// int64, float64, string, or []byte otherwise.
func (v Value) Arg() any {
	switch v.kind {
	case KindInt:
		return v.n
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBlob:
		return v.b
	default:
		return nil
	}
}

// FromAny converts a scanned or user-supplied scalar into a Value. It
// accepts nil, the integer and float widths drivers return, string and
// []byte. Anything else fails.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// String returns a display form: decimal for integers, shortest form for
// floats, the text itself for strings, base64 for byte sequences, and
// "null" for the null marker.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBlob:
		return base64.StdEncoding.EncodeToString(v.b)
	default:
		return "null"
	}
}

// MarshalJSON encodes the payload natively: numbers for int and float,
// a string for text, base64 for byte sequences, null for the marker.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, v.n, 10), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBlob:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}
