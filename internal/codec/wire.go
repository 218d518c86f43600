package codec

import (
	"encoding/json"
	"math"
	"time"

	"github.com/solatis/docupdate/internal/types"
)

// maxSafeInteger is the largest integer a float64 represents exactly.
const maxSafeInteger = 1 << 53

// ToWire converts a document into a JSON-compatible tree for transports:
// dates become RFC 3339 strings, holes become null and typed instances
// become their plain form.
func ToWire(doc any) (any, error) {
	switch t := doc.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			w, err := ToWire(e)
			if err != nil {
				return nil, err
			}
			out[k] = w
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			w, err := ToWire(e)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	}

	switch types.KindOf(doc) {
	case types.KindUndefined:
		return nil, nil
	case types.KindInstance:
		plain, err := ToPlain(doc)
		if err != nil {
			return nil, err
		}
		return ToWire(plain)
	case types.KindNumber:
		return normalize(doc), nil
	default:
		return doc, nil
	}
}

// FromWire converts a decoded JSON or protobuf tree into document values.
// Integral numbers become int64 so counters stay integers across $inc.
func FromWire(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = FromWire(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = FromWire(e)
		}
		return out
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return FromWire(f)
		}
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) <= maxSafeInteger {
			return int64(t)
		}
		return t
	default:
		return normalize(v)
	}
}
