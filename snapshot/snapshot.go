// Package snapshot defines the portable representation of an in-process
// training log: its identity, status mapping, and every stored row. The
// encoding is a deterministic JSON body compressed with zstd behind a fixed
// file header, so encoding the same snapshot twice yields identical bytes.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"

	"github.com/trainlog/trainlog"
)

// Header identifying snapshot files and archive objects.
var magic = []byte("TLSNAP01")

// Snapshot is the full state of a log at one moment. Rows hold every stored
// value, including null markers, keyed by time then key.
type Snapshot struct {
	Identity trainlog.Identity
	Status   map[string]trainlog.Value
	Rows     map[int]map[string]trainlog.Value
}

// Reused across calls; NewWriter/NewReader with a nil stream never fail.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)

	parsers fastjson.ParserPool
)

// taggedValue is the wire form of one scalar. The tag is Kind.String();
// the payload is a string so float and blob bytes survive JSON exactly.
type taggedValue struct {
	Kind string `json:"t"`
	Val  string `json:"v,omitempty"`
}

type wireBody struct {
	Identity string                            `json:"identity"`
	Status   map[string]taggedValue            `json:"status"`
	Rows     map[string]map[string]taggedValue `json:"rows"`
}

// Encode serializes a snapshot. Equal snapshots encode to equal bytes.
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil || snap.Identity.IsZero() {
		return nil, fmt.Errorf("snapshot identity is required: %w", trainlog.ErrSerialization)
	}

	body := wireBody{
		Identity: snap.Identity.String(),
		Status:   make(map[string]taggedValue, len(snap.Status)),
		Rows:     make(map[string]map[string]taggedValue, len(snap.Rows)),
	}
	for key, value := range snap.Status {
		body.Status[key] = encodeValue(value)
	}
	for t, row := range snap.Rows {
		wireRow := make(map[string]taggedValue, len(row))
		for key, value := range row {
			wireRow[key] = encodeValue(value)
		}
		body.Rows[strconv.Itoa(t)] = wireRow
	}

	// json.Marshal emits map keys sorted, which keeps the body deterministic.
	raw, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot failed: %w", err)
	}

	out := make([]byte, 0, len(magic)+len(raw)/2)
	out = append(out, magic...)
	return zstdEncoder.EncodeAll(raw, out), nil
}

// Decode reverses Encode. Any malformed input fails with ErrSerialization.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("snapshot header missing: %w", trainlog.ErrSerialization)
	}

	raw, err := zstdDecoder.DecodeAll(data[len(magic):], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %v: %w", err, trainlog.ErrSerialization)
	}

	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot body: %v: %w", err, trainlog.ErrSerialization)
	}

	identity, err := trainlog.IdentityFromString(string(v.GetStringBytes("identity")))
	if err != nil {
		return nil, fmt.Errorf("snapshot identity: %v: %w", err, trainlog.ErrSerialization)
	}

	snap := &Snapshot{
		Identity: identity,
		Status:   make(map[string]trainlog.Value),
		Rows:     make(map[int]map[string]trainlog.Value),
	}

	var visitErr error
	if obj := v.GetObject("status"); obj != nil {
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if visitErr != nil {
				return
			}
			value, err := decodeValue(val)
			if err != nil {
				visitErr = err
				return
			}
			snap.Status[string(key)] = value
		})
	}
	if visitErr != nil {
		return nil, visitErr
	}

	if obj := v.GetObject("rows"); obj != nil {
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if visitErr != nil {
				return
			}
			t, err := strconv.Atoi(string(key))
			if err != nil || t < 0 {
				visitErr = fmt.Errorf("snapshot row time %q: %w", key, trainlog.ErrSerialization)
				return
			}
			rowObj, err := val.Object()
			if err != nil {
				visitErr = fmt.Errorf("snapshot row %d: %v: %w", t, err, trainlog.ErrSerialization)
				return
			}
			row := make(map[string]trainlog.Value, rowObj.Len())
			rowObj.Visit(func(rowKey []byte, rowVal *fastjson.Value) {
				if visitErr != nil {
					return
				}
				value, err := decodeValue(rowVal)
				if err != nil {
					visitErr = err
					return
				}
				row[string(rowKey)] = value
			})
			snap.Rows[t] = row
		})
	}
	if visitErr != nil {
		return nil, visitErr
	}
	return snap, nil
}

func encodeValue(v trainlog.Value) taggedValue {
	tv := taggedValue{Kind: v.Kind().String()}
	switch v.Kind() {
	case trainlog.KindInt:
		n, _ := v.Int64()
		tv.Val = strconv.FormatInt(n, 10)
	case trainlog.KindFloat:
		f, _ := v.Float64()
		tv.Val = strconv.FormatFloat(f, 'g', -1, 64)
	case trainlog.KindText:
		tv.Val, _ = v.Text()
	case trainlog.KindBlob:
		b, _ := v.Blob()
		tv.Val = base64.StdEncoding.EncodeToString(b)
	}
	return tv
}

func decodeValue(val *fastjson.Value) (trainlog.Value, error) {
	kind := string(val.GetStringBytes("t"))
	payload := string(val.GetStringBytes("v"))

	switch kind {
	case trainlog.KindNull.String():
		return trainlog.Null(), nil
	case trainlog.KindInt.String():
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return trainlog.Value{}, fmt.Errorf("snapshot int %q: %w", payload, trainlog.ErrSerialization)
		}
		return trainlog.Int(n), nil
	case trainlog.KindFloat.String():
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return trainlog.Value{}, fmt.Errorf("snapshot float %q: %w", payload, trainlog.ErrSerialization)
		}
		return trainlog.Float(f), nil
	case trainlog.KindText.String():
		return trainlog.Text(payload), nil
	case trainlog.KindBlob.String():
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return trainlog.Value{}, fmt.Errorf("snapshot blob: %v: %w", err, trainlog.ErrSerialization)
		}
		return trainlog.Bytes(b), nil
	default:
		return trainlog.Value{}, fmt.Errorf("snapshot value tag %q: %w", kind, trainlog.ErrSerialization)
	}
}
