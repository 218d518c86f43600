// internal/update/operators.go
package update

import (
	"errors"
	"fmt"
	"sort"

	"github.com/solatis/docupdate/internal/restore"
	"github.com/solatis/docupdate/internal/types"
)

/*
 * Operator interpreter.
 *
 * applyEntry applies one (operator, path, operand value) triple to a
 * document and returns the new document. Dispatch is a switch over the
 * closed types.Operator set.
 *
 * Absence policy:
 *   - $set $inc $min $max $mul $push $addToSet $bit $currentDate $append
 *     create missing structure.
 *   - $pull $pop $rename $unset $restore leave the document untouched when
 *     the path does not resolve.
 *
 * Numeric operators treat null like absent.
 */

func (e *Engine) applyEntry(doc any, op types.Operator, path string, arg any) (any, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	var out any
	switch op {
	case types.OpSet:
		out, err = modify(doc, segs, func(any, bool) (any, error) { return arg, nil })
	case types.OpInc:
		out, err = modify(doc, segs, incBy(arg))
	case types.OpMin:
		out, err = modify(doc, segs, extremum(arg, -1))
	case types.OpMax:
		out, err = modify(doc, segs, extremum(arg, 1))
	case types.OpMul:
		out, err = modify(doc, segs, mulBy(arg))
	case types.OpPush:
		out, err = pushInto(doc, segs, arg, false)
	case types.OpAddToSet:
		out, err = pushInto(doc, segs, arg, true)
	case types.OpPull:
		out, err = modify(doc, segs, pullMatching(arg))
	case types.OpPop:
		out, err = popFrom(doc, segs, arg)
	case types.OpRename:
		out, err = rename(doc, segs, arg)
	case types.OpUnset:
		out, _ = remove(doc, segs)
	case types.OpBit:
		out, err = bitwise(doc, segs, arg)
	case types.OpCurrentDate:
		out, err = e.currentDate(doc, segs, arg)
	case types.OpAppend:
		out, err = appendObject(doc, segs, arg)
	case types.OpRestore:
		out, err = modify(doc, segs, e.restoreValue(path, arg))
	default:
		err = fmt.Errorf("%w: %d", types.ErrUnknownOperator, int(op))
	}

	if errors.Is(err, errUnchanged) {
		return doc, nil
	}
	if err != nil {
		return nil, wrapOpError(op, path, err)
	}
	return out, nil
}

func wrapOpError(op types.Operator, path string, err error) error {
	var opErr *types.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &types.OperationError{Operator: op, Path: path, Err: err}
}

func arrayMismatch(op types.Operator) error {
	return &types.OperationError{
		Operator: op,
		Message:  fmt.Sprintf("%q operator must be applied to an array", op.String()),
		Err:      types.ErrOperatorMismatch,
	}
}

func incBy(delta any) leafFunc {
	return func(cur any, _ bool) (any, error) {
		if types.KindOf(delta) != types.KindNumber {
			return nil, fmt.Errorf("%w: delta must be a number, got %s", types.ErrTypeMismatch, types.KindOf(delta))
		}
		if types.IsAbsent(cur) {
			return delta, nil
		}
		sum, ok := add(cur, delta)
		if !ok {
			return nil, fmt.Errorf("%w: cannot increment %s", types.ErrTypeMismatch, types.KindOf(cur))
		}
		return sum, nil
	}
}

// extremum keeps given when it compares in direction want (-1 min, 1 max)
// against the current value. Mixed kinds keep the current value.
func extremum(given any, want int) leafFunc {
	return func(cur any, _ bool) (any, error) {
		if types.IsAbsent(cur) {
			return given, nil
		}
		c, ok := compareOrder(given, cur)
		if !ok || c*want <= 0 {
			return nil, errUnchanged
		}
		return given, nil
	}
}

func mulBy(factor any) leafFunc {
	return func(cur any, _ bool) (any, error) {
		if types.KindOf(factor) != types.KindNumber {
			return nil, fmt.Errorf("%w: factor must be a number, got %s", types.ErrTypeMismatch, types.KindOf(factor))
		}
		if types.IsAbsent(cur) {
			return zeroLike(factor), nil
		}
		product, ok := multiply(cur, factor)
		if !ok {
			return nil, fmt.Errorf("%w: cannot multiply %s", types.ErrTypeMismatch, types.KindOf(cur))
		}
		return product, nil
	}
}

// pushModifiers is the parsed form of a $push/$addToSet operand.
type pushModifiers struct {
	each     []any
	position *int
	slice    *int
	sort     any // nil, 1, -1 or map of field to direction
}

func parsePushArg(arg any) (pushModifiers, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return pushModifiers{each: []any{arg}}, nil
	}
	rawEach, ok := m["$each"]
	if !ok {
		return pushModifiers{each: []any{arg}}, nil
	}

	var mods pushModifiers
	each, ok := rawEach.([]any)
	if !ok {
		return mods, fmt.Errorf("%w: $each must be an array", types.ErrInvalidOperation)
	}
	mods.each = each

	if raw, ok := m["$position"]; ok {
		n, ok := toInteger(raw)
		if !ok {
			return mods, fmt.Errorf("%w: $position must be an integer", types.ErrInvalidOperation)
		}
		pos := int(n)
		mods.position = &pos
	}
	if raw, ok := m["$slice"]; ok {
		n, ok := toInteger(raw)
		if !ok {
			return mods, fmt.Errorf("%w: $slice must be an integer", types.ErrInvalidOperation)
		}
		s := int(n)
		mods.slice = &s
	}
	if raw, ok := m["$sort"]; ok {
		switch spec := raw.(type) {
		case map[string]any:
			mods.sort = spec
		default:
			dir, ok := toInteger(raw)
			if !ok || (dir != 1 && dir != -1) {
				return mods, fmt.Errorf("%w: $sort must be 1, -1 or a field map", types.ErrInvalidOperation)
			}
			mods.sort = int(dir)
		}
	}
	return mods, nil
}

func pushInto(doc any, segs []types.PathSegment, arg any, unique bool) (any, error) {
	op := types.OpPush
	if unique {
		op = types.OpAddToSet
	}
	mods, err := parsePushArg(arg)
	if err != nil {
		return nil, err
	}

	return modify(doc, segs, func(cur any, _ bool) (any, error) {
		var arr []any
		switch c := cur.(type) {
		case []any:
			arr = c
		default:
			if !types.IsAbsent(cur) {
				return nil, arrayMismatch(op)
			}
		}

		if unique {
			out := make([]any, len(arr), len(arr)+len(mods.each))
			copy(out, arr)
			for _, v := range mods.each {
				if !containsEqual(out, v) {
					out = append(out, v)
				}
			}
			return out, nil
		}

		pos := len(arr)
		if mods.position != nil {
			pos = *mods.position
			if pos < 0 {
				pos += len(arr)
			}
			pos = max(0, min(pos, len(arr)))
		}
		out := make([]any, 0, len(arr)+len(mods.each))
		out = append(out, arr[:pos]...)
		out = append(out, mods.each...)
		out = append(out, arr[pos:]...)

		if mods.slice != nil {
			out = sliceArray(out, *mods.slice)
		}
		if mods.sort != nil {
			sortArray(out, mods.sort)
		}
		return out, nil
	})
}

// sliceArray keeps the first n elements for n >= 0, the last -n otherwise.
// -n is never computed, so n may be math.MinInt.
func sliceArray(arr []any, n int) []any {
	if n >= 0 {
		return arr[:min(n, len(arr))]
	}
	if n < -len(arr) {
		return arr
	}
	return arr[len(arr)+n:]
}

// sortArray sorts arr in place. arr must already be a private copy.
func sortArray(arr []any, spec any) {
	switch s := spec.(type) {
	case int:
		sort.SliceStable(arr, func(i, j int) bool {
			return sortCompare(arr[i], arr[j])*s < 0
		})
	case map[string]any:
		type key struct {
			path []types.PathSegment
			dir  int
		}
		names := make([]string, 0, len(s))
		for k := range s {
			names = append(names, k)
		}
		sort.Strings(names)
		keys := make([]key, 0, len(names))
		for _, name := range names {
			segs, err := ParsePath(name)
			dir, ok := toInteger(s[name])
			if err != nil || !ok {
				continue
			}
			if dir < 0 {
				keys = append(keys, key{segs, -1})
			} else {
				keys = append(keys, key{segs, 1})
			}
		}
		sort.SliceStable(arr, func(i, j int) bool {
			for _, k := range keys {
				a, aok := getSegs(arr[i], k.path)
				b, bok := getSegs(arr[j], k.path)
				if !aok {
					a = types.Undefined
				}
				if !bok {
					b = types.Undefined
				}
				if c := sortCompare(a, b) * k.dir; c != 0 {
					return c < 0
				}
			}
			return false
		})
	}
}

func pullMatching(query any) leafFunc {
	match := compileQuery(query)
	return func(cur any, _ bool) (any, error) {
		arr, ok := cur.([]any)
		if !ok {
			if types.IsAbsent(cur) {
				return nil, errUnchanged
			}
			return nil, arrayMismatch(types.OpPull)
		}
		out := make([]any, 0, len(arr))
		for _, elem := range arr {
			if !match(elem, elem != types.Undefined) {
				out = append(out, elem)
			}
		}
		if len(out) == len(arr) {
			return nil, errUnchanged
		}
		return out, nil
	}
}

func popFrom(doc any, segs []types.PathSegment, arg any) (any, error) {
	dir, ok := toInteger(arg)
	if !ok || (dir != 1 && dir != -1) {
		return nil, fmt.Errorf("%w: $pop expects 1 or -1", types.ErrInvalidOperation)
	}
	return modify(doc, segs, func(cur any, _ bool) (any, error) {
		arr, ok := cur.([]any)
		if !ok {
			if types.IsAbsent(cur) {
				return nil, errUnchanged
			}
			return nil, arrayMismatch(types.OpPop)
		}
		if len(arr) == 0 {
			return nil, errUnchanged
		}
		out := make([]any, len(arr)-1)
		if dir == 1 {
			copy(out, arr[:len(arr)-1])
		} else {
			copy(out, arr[1:])
		}
		return out, nil
	})
}

// rename moves the value at segs to the key named by arg in the same object.
func rename(doc any, segs []types.PathSegment, arg any) (any, error) {
	if segs[len(segs)-1].IsIndex {
		return nil, &types.OperationError{
			Operator: types.OpRename,
			Message:  "$rename operation cannot be applied to element in array",
			Err:      types.ErrInvalidOperation,
		}
	}
	target, ok := arg.(string)
	if !ok || target == "" {
		return nil, fmt.Errorf("%w: $rename target must be a non-empty string", types.ErrInvalidOperation)
	}

	parent, last, ok := ResolveParent(doc, segs)
	if !ok {
		return nil, errUnchanged
	}
	value, exists := child(parent, last)
	if !exists || target == last.Key {
		return nil, errUnchanged
	}

	return modify(doc, segs[:len(segs)-1], func(container any, _ bool) (any, error) {
		obj := container.(map[string]any)
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			if k != last.Key {
				out[k] = v
			}
		}
		out[target] = value
		return out, nil
	})
}

// bitOrder is the fixed application order of $bit sub-operators.
var bitOrder = []string{"and", "or", "xor"}

func bitwise(doc any, segs []types.PathSegment, arg any) (any, error) {
	spec, ok := arg.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: $bit operand must be an object", types.ErrInvalidOperation)
	}
	if len(spec) == 0 {
		return nil, errUnchanged
	}
	for k := range spec {
		if k != "and" && k != "or" && k != "xor" {
			return nil, fmt.Errorf("%w: unknown $bit operation %q", types.ErrInvalidOperation, k)
		}
	}
	// An absent value takes the representation of the first mask in
	// bitOrder.
	masks := make(map[string]int64, len(spec))
	var template any
	for _, k := range bitOrder {
		v, ok := spec[k]
		if !ok {
			continue
		}
		n, ok := toInteger(v)
		if !ok {
			return nil, fmt.Errorf("%w: $bit %s operand must be an integer", types.ErrTypeMismatch, k)
		}
		masks[k] = n
		if template == nil {
			template = v
		}
	}

	return modify(doc, segs, func(cur any, _ bool) (any, error) {
		var n int64
		if types.IsAbsent(cur) {
			cur = template
		} else {
			var ok bool
			n, ok = toInteger(cur)
			if !ok {
				return nil, fmt.Errorf("%w: cannot apply $bit to %s", types.ErrTypeMismatch, types.KindOf(cur))
			}
		}
		for _, name := range bitOrder {
			mask, ok := masks[name]
			if !ok {
				continue
			}
			switch name {
			case "and":
				n &= mask
			case "or":
				n |= mask
			case "xor":
				n ^= mask
			}
		}
		return integerLike(cur, n), nil
	})
}

// integerLike returns n in the numeric representation of template.
func integerLike(template any, n int64) any {
	switch template.(type) {
	case int:
		return int(n)
	case float64, float32:
		return float64(n)
	default:
		return n
	}
}

func (e *Engine) currentDate(doc any, segs []types.PathSegment, arg any) (any, error) {
	asTimestamp := false
	switch v := arg.(type) {
	case bool:
		if !v {
			return nil, errUnchanged
		}
	case map[string]any:
		switch v["$type"] {
		case "date":
		case "timestamp":
			asTimestamp = true
		default:
			return nil, fmt.Errorf("%w: $currentDate $type must be \"date\" or \"timestamp\"", types.ErrInvalidOperation)
		}
	default:
		return nil, fmt.Errorf("%w: $currentDate expects true or {$type}", types.ErrInvalidOperation)
	}

	now := e.now()
	return modify(doc, segs, func(any, bool) (any, error) {
		if asTimestamp {
			return now.UnixMilli(), nil
		}
		return now, nil
	})
}

func appendObject(doc any, segs []types.PathSegment, arg any) (any, error) {
	src, ok := arg.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: $append operand must be an object", types.ErrInvalidOperation)
	}
	return modify(doc, segs, func(cur any, _ bool) (any, error) {
		base, _ := cur.(map[string]any)
		out := make(map[string]any, len(base)+len(src))
		for k, v := range base {
			out[k] = v
		}
		for k, v := range src {
			out[k] = v
		}
		return out, nil
	})
}

// restoreValue rebuilds a typed instance from the plain value at the path.
// Every failure leaves the value as it was.
func (e *Engine) restoreValue(path string, arg any) leafFunc {
	var desc restore.Descriptor
	switch d := arg.(type) {
	case string:
		desc = restore.Descriptor(d)
	case restore.Descriptor:
		desc = d
	}
	return func(cur any, exists bool) (any, error) {
		if !exists || desc == "" || e.bridge == nil {
			return nil, errUnchanged
		}
		if types.KindOf(cur) == types.KindInstance {
			return nil, errUnchanged
		}
		if !e.bridge.CanRestore(desc) {
			e.logger.Debug("restore skipped", "path", path, "descriptor", desc, "reason", "not restorable")
			return nil, errUnchanged
		}
		inst, err := e.bridge.Restore(cur, desc)
		if err != nil {
			e.logger.Debug("restore skipped", "path", path, "descriptor", desc, "error", err)
			return nil, errUnchanged
		}
		return inst, nil
	}
}
