package sqlitelog

import (
	"fmt"

	"github.com/trainlog/trainlog"
)

// valueFromStorage rebuilds a Value from a scanned payload and its SQLite
// storage class. Selecting typeof(value) alongside the value keeps text and
// blob apart regardless of how the driver surfaces either.
func valueFromStorage(raw interface{}, storageClass string) (trainlog.Value, error) {
	switch storageClass {
	case "null":
		return trainlog.Null(), nil
	case "integer":
		if n, ok := raw.(int64); ok {
			return trainlog.Int(n), nil
		}
	case "real":
		if f, ok := raw.(float64); ok {
			return trainlog.Float(f), nil
		}
	case "text":
		switch s := raw.(type) {
		case string:
			return trainlog.Text(s), nil
		case []byte:
			return trainlog.Text(string(s)), nil
		}
	case "blob":
		if b, ok := raw.([]byte); ok {
			return trainlog.Bytes(b), nil
		}
		if raw == nil {
			// Zero-length blobs scan as nil.
			return trainlog.Bytes([]byte{}), nil
		}
	}
	return trainlog.Value{}, fmt.Errorf("unexpected storage class %q for %T", storageClass, raw)
}
