// internal/update/coercion.go
package update

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/solatis/docupdate/internal/types"
)

/*
 * Numeric coercion, ordering and equality over document values.
 *
 * Documents mix Go integer kinds (built in code) with float64 (decoded from
 * JSON), so arithmetic keeps the narrowest representation both operands
 * share:
 *
 *   int    op int     -> int
 *   intN   op intM    -> int64
 *   any other numbers -> float64
 *
 * Equality is numeric across representations (1 == 1.0) and deep for
 * objects and arrays.
 */

// toFloat64 converts any numeric kind to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toInt64 converts Go integer kinds to int64. Floats are rejected.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// toInteger accepts Go integer kinds and integral floats.
// JSON decoding yields float64 for every number, so $bit and $position
// must accept 5.0 as 5.
func toInteger(v any) (int64, bool) {
	if n, ok := toInt64(v); ok {
		return n, true
	}
	f, ok := toFloat64(v)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// arith applies an arithmetic operation preserving integer representation
// where both operands allow it. Returns false for non-numeric operands.
func arith(a, b any, intOp func(x, y int64) int64, floatOp func(x, y float64) float64) (any, bool) {
	if ai, ok := a.(int); ok {
		if bi, ok := b.(int); ok {
			return int(intOp(int64(ai), int64(bi))), true
		}
	}
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		return intOp(ai, bi), true
	}
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if !aok || !bok {
		return nil, false
	}
	return floatOp(af, bf), true
}

func add(a, b any) (any, bool) {
	return arith(a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

func multiply(a, b any) (any, bool) {
	return arith(a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// zeroLike returns 0 in the representation of n.
func zeroLike(n any) any {
	switch n.(type) {
	case int:
		return 0
	case float64, float32:
		return float64(0)
	default:
		if _, ok := toInt64(n); ok {
			return int64(0)
		}
		return float64(0)
	}
}

// compareOrder performs a three-way comparison of two values of the same
// ordered kind: numbers, strings (lexicographic), dates and booleans.
// Returns false when the values are not mutually ordered.
func compareOrder(a, b any) (int, bool) {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return cmp3(ai < bi, ai > bi), true
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return cmp3(af < bf, af > bf), true
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp3(!av && bv, av && !bv), true
		}
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

// kindRank orders kinds for $sort over mixed arrays.
var kindRank = map[types.Kind]int{
	types.KindUndefined: 0,
	types.KindNull:      1,
	types.KindNumber:    2,
	types.KindString:    3,
	types.KindObject:    4,
	types.KindArray:     5,
	types.KindBool:      6,
	types.KindDate:      7,
	types.KindInstance:  8,
}

// sortCompare is a total order used by $push's $sort modifier. Values of
// different kinds order by kind; unordered values of one kind compare equal.
func sortCompare(a, b any) int {
	ka, kb := types.KindOf(a), types.KindOf(b)
	if ka != kb {
		return cmp3(kindRank[ka] < kindRank[kb], kindRank[ka] > kindRank[kb])
	}
	c, _ := compareOrder(a, b)
	return c
}

// deepEqual compares document values. Numbers compare by value regardless
// of representation; dates by instant.
func deepEqual(a, b any) bool {
	ka, kb := types.KindOf(a), types.KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case types.KindUndefined, types.KindNull:
		return true
	case types.KindNumber:
		c, _ := compareOrder(a, b)
		return c == 0
	case types.KindBool:
		return a.(bool) == b.(bool)
	case types.KindString:
		return a.(string) == b.(string)
	case types.KindDate:
		return a.(time.Time).Equal(b.(time.Time))
	case types.KindObject:
		am, bm := a.(map[string]any), b.(map[string]any)
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !deepEqual(av, bv) {
				return false
			}
		}
		return true
	case types.KindArray:
		as, bs := a.([]any), b.([]any)
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !deepEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	case types.KindInstance:
		return reflect.DeepEqual(a, b)
	default:
		return false
	}
}

// containsEqual reports whether list holds a value deepEqual to v.
func containsEqual(list []any, v any) bool {
	for _, elem := range list {
		if deepEqual(elem, v) {
			return true
		}
	}
	return false
}
