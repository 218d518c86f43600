// internal/update/merge.go
package update

import (
	"fmt"

	"github.com/solatis/docupdate/internal/types"
)

/*
 * Merge algebra for update operations.
 *
 * Folds operations left to right into one equivalent operation. Operator
 * groups never interact. Within a group, a path seen for the first time is
 * copied in; a repeated path is combined per operator:
 *
 *   $push $addToSet  concatenate $each lists (accumulator modifiers kept)
 *   $inc             sum
 *   $min $max        smaller / larger
 *   $mul             product
 *   $pull            {$eq}+{$eq}, {$in}+{$eq}, {$eq}+{$in} widen to $in;
 *                    any other pair is left to the later operand
 *   everything else  later operand wins
 *
 * Every fold step builds new maps; neither the inputs nor earlier
 * accumulators are written to. The result is equivalent, not minimal.
 */

// Merge normalizes each input and folds them into one operation.
func Merge(ops ...any) (types.UpdateOperation, error) {
	norms := make([]types.UpdateOperation, 0, len(ops))
	for i, op := range ops {
		n, err := Normalize(op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		norms = append(norms, n)
	}
	return MergeNormalized(norms...), nil
}

// MergeNormalized folds already-canonical operations into one.
func MergeNormalized(ops ...types.UpdateOperation) types.UpdateOperation {
	acc := types.UpdateOperation{}
	for _, op := range ops {
		acc = mergePair(acc, op)
	}
	return acc
}

func mergePair(acc, next types.UpdateOperation) types.UpdateOperation {
	out := make(types.UpdateOperation, len(acc)+len(next))
	for op, operand := range acc {
		out[op] = operand
	}
	for op, operand := range next {
		prev, ok := out[op]
		merged := make(types.Operand, len(prev)+len(operand))
		for path, v := range prev {
			merged[path] = v
		}
		for path, v := range operand {
			if old, exists := merged[path]; ok && exists {
				merged[path] = combine(op, old, v)
			} else {
				merged[path] = v
			}
		}
		out[op] = merged
	}
	return out
}

// combine merges two operand values for the same path under op.
func combine(op types.Operator, prev, next any) any {
	switch op {
	case types.OpPush, types.OpAddToSet:
		return concatEach(prev, next)
	case types.OpInc:
		if sum, ok := add(prev, next); ok {
			return sum
		}
		return next
	case types.OpMin:
		if c, ok := compareOrder(prev, next); ok && c <= 0 {
			return prev
		}
		return next
	case types.OpMax:
		if c, ok := compareOrder(prev, next); ok && c >= 0 {
			return prev
		}
		return next
	case types.OpMul:
		if product, ok := multiply(prev, next); ok {
			return product
		}
		return next
	case types.OpPull:
		return widenPull(prev, next)
	case types.OpSet, types.OpPop, types.OpRename, types.OpUnset, types.OpBit,
		types.OpCurrentDate, types.OpAppend, types.OpRestore:
		return next
	default:
		return next
	}
}

// eachList returns the $each list of a push operand, or the operand itself
// as a one-element list.
func eachList(v any) ([]any, map[string]any) {
	if m, ok := v.(map[string]any); ok {
		if each, ok := m["$each"].([]any); ok {
			return each, m
		}
	}
	return []any{v}, nil
}

func concatEach(prev, next any) any {
	a, mods := eachList(prev)
	b, _ := eachList(next)

	each := make([]any, 0, len(a)+len(b))
	each = append(each, a...)
	each = append(each, b...)

	out := make(map[string]any, len(mods)+1)
	for k, v := range mods {
		out[k] = v
	}
	out["$each"] = each
	return out
}

func widenPull(prev, next any) any {
	q1, ok1 := prev.(map[string]any)
	q2, ok2 := next.(map[string]any)
	if !ok1 || !ok2 {
		return next
	}
	eq1, hasEq1 := q1["$eq"]
	eq2, hasEq2 := q2["$eq"]
	in1, hasIn1 := q1["$in"].([]any)
	in2, hasIn2 := q2["$in"].([]any)

	switch {
	case hasEq1 && hasEq2:
		return map[string]any{"$in": []any{eq1, eq2}}
	case hasIn1 && hasEq2:
		list := make([]any, 0, len(in1)+1)
		list = append(list, in1...)
		return map[string]any{"$in": append(list, eq2)}
	case hasEq1 && hasIn2:
		list := make([]any, 0, len(in2)+1)
		list = append(list, eq1)
		return map[string]any{"$in": append(list, in2...)}
	default:
		return next
	}
}
