// Package types provides domain models shared across docupdate components.
//
// Documents are plain Go values: map[string]any objects, []any arrays,
// scalars, time.Time dates and the Undefined marker. Anything else is an
// opaque typed instance that only the restore bridge knows how to rebuild.
// The package has no external dependencies besides uuid (ids.go).
package types

import (
	"encoding/json"
	"time"
)

// DocumentID represents a UUIDv7 document identifier.
// UUIDv7 time-ordering keeps sequential inserts clustered in B-tree indexes.
type DocumentID string

// TenantID scopes stored documents to the API key that owns them.
type TenantID string

// Kind classifies a document value into the closed set of variants the
// navigator and operators dispatch on.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindDate
	KindObject
	KindArray
	KindInstance
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindString:    "string",
	KindDate:      "date",
	KindObject:    "object",
	KindArray:     "array",
	KindInstance:  "instance",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// KindOf returns the variant of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case undefined:
		return KindUndefined
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindNumber
	case string:
		return KindString
	case time.Time:
		return KindDate
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	default:
		return KindInstance
	}
}

// IsAbsent reports whether v carries no value (undefined or null).
// Operators that create their target treat both the same way.
func IsAbsent(v any) bool {
	k := KindOf(v)
	return k == KindUndefined || k == KindNull
}

type undefined struct{}

// MarshalJSON renders holes as null so documents stay valid JSON.
func (undefined) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (undefined) String() string { return "undefined" }

// Undefined marks an absent value. It fills array gaps created by writes past
// the end of an array and the slot left behind by $unset on an element.
var Undefined any = undefined{}

var _ json.Marshaler = undefined{}

// Resource limits enforced by the update engine and the store.
const (
	// MaxPathDepth bounds DocPath length to keep recursive navigation shallow.
	MaxPathDepth = 32

	// MaxArrayExtension caps how far a write may extend an array past its end.
	// Writing a[1000000] would otherwise allocate a million holes.
	MaxArrayExtension = 10_000

	// MaxDocumentSize limits the encoded size of a stored document.
	MaxDocumentSize = 4 * 1024 * 1024

	// MaxBatchOperations limits how many operations one batch request merges.
	MaxBatchOperations = 256
)
