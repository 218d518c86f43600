package update

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/solatis/docupdate/internal/types"
)

// Normalize converts caller input into the canonical UpdateOperation.
//
// Accepted inputs are types.UpdateOperation (returned as is), a wire-shaped
// map such as {"$set": {...}, "$inc": {...}}, or shorthand: a map without
// operator keys, which is treated as the operand of $set. nil yields an
// empty operation.
func Normalize(op any) (types.UpdateOperation, error) {
	switch v := op.(type) {
	case nil:
		return types.UpdateOperation{}, nil
	case types.UpdateOperation:
		return v, nil
	case map[types.Operator]types.Operand:
		return types.UpdateOperation(v), nil
	case map[string]any:
		return normalizeMap(v)
	case types.Operand:
		return types.UpdateOperation{types.OpSet: v}, nil
	default:
		return nil, fmt.Errorf("%w: operation must be an object, got %T", types.ErrInvalidOperation, op)
	}
}

func normalizeMap(m map[string]any) (types.UpdateOperation, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operators, plain := 0, 0
	for _, k := range keys {
		if _, ok := types.ParseOperator(k); ok {
			operators++
			continue
		}
		if strings.HasPrefix(k, "$") {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownOperator, k)
		}
		plain++
	}

	if operators == 0 {
		return types.UpdateOperation{types.OpSet: types.Operand(m)}, nil
	}
	if plain > 0 {
		return nil, fmt.Errorf("%w: operator keys mixed with plain paths", types.ErrInvalidOperation)
	}

	out := make(types.UpdateOperation, len(m))
	for _, k := range keys {
		op, _ := types.ParseOperator(k)
		switch operand := m[k].(type) {
		case map[string]any:
			out[op] = types.Operand(operand)
		case types.Operand:
			out[op] = operand
		default:
			return nil, fmt.Errorf("%w: %s operand must be an object, got %T", types.ErrInvalidOperation, op, m[k])
		}
	}
	return out, nil
}

// plainContainers rewrites typed Go slices and string-keyed maps, such as
// []string or map[string]int, into []any and map[string]any so operators
// see them as arrays and objects. Byte slices, structs and other values
// stay opaque. The second result reports whether anything was rewritten;
// when it is false v itself is returned.
func plainContainers(v any) (any, bool) {
	switch x := v.(type) {
	case nil, []byte:
		return v, false
	case map[string]any:
		var out map[string]any
		for k, c := range x {
			p, changed := plainContainers(c)
			if !changed {
				continue
			}
			if out == nil {
				out = maps.Clone(x)
			}
			out[k] = p
		}
		if out == nil {
			return v, false
		}
		return out, true
	case []any:
		var out []any
		for i, c := range x {
			p, changed := plainContainers(c)
			if !changed {
				continue
			}
			if out == nil {
				out = slices.Clone(x)
			}
			out[i] = p
		}
		if out == nil {
			return v, false
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, false
		}
		if rv.IsNil() {
			return nil, true
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i], _ = plainContainers(rv.Index(i).Interface())
		}
		return out, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, false
		}
		if rv.IsNil() {
			return nil, true
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()], _ = plainContainers(iter.Value().Interface())
		}
		return out, true
	default:
		return v, false
	}
}
