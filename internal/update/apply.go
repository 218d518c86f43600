// internal/update/apply.go
package update

import (
	"fmt"
	"sort"

	"github.com/solatis/docupdate/internal/codec"
	"github.com/solatis/docupdate/internal/types"
)

/*
 * Update entry points.
 *
 * Application order is deterministic: operator groups in types.Operator
 * declaration order, paths inside a group in sorted order. Each step
 * produces a new document, so an error at any step discards all earlier
 * steps and the caller's document is left as it was.
 *
 * The AndRestore variants work on the plain form of a typed instance
 * (codec.ToPlain) and ask the restore bridge to rebuild the type at the
 * root afterwards.
 */

// Update returns doc with op applied. op may be a types.UpdateOperation, a
// wire-shaped map or shorthand (see Normalize).
//
// Typed Go containers in doc and in operand values ([]string,
// map[string]int, ...) are read as arrays and objects; the result holds
// []any and map[string]any in their place.
func (e *Engine) Update(doc, op any) (any, error) {
	norm, err := Normalize(op)
	if err != nil {
		return nil, err
	}
	doc, _ = plainContainers(doc)
	return e.apply(doc, norm)
}

func (e *Engine) apply(doc any, op types.UpdateOperation) (any, error) {
	out := doc
	for _, o := range types.Operators() {
		operand, ok := op[o]
		if !ok {
			continue
		}
		for _, path := range sortedPaths(operand) {
			arg, _ := plainContainers(operand[path])
			next, err := e.applyEntry(out, o, path, arg)
			if err != nil {
				return nil, err
			}
			out = next
		}
	}
	return out, nil
}

func sortedPaths(operand types.Operand) []string {
	paths := make([]string, 0, len(operand))
	for p := range operand {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// UpdateAtPath applies op to the sub-document at path and writes the
// result back into doc. An absent sub-document starts as an empty object.
func (e *Engine) UpdateAtPath(doc any, path string, op any) (any, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	doc, _ = plainContainers(doc)
	sub, ok := getSegs(doc, segs)
	if !ok {
		sub = map[string]any{}
	}
	updated, err := e.Update(sub, op)
	if err != nil {
		return nil, err
	}
	return modify(doc, segs, func(any, bool) (any, error) { return updated, nil })
}

// UpdateAndRestore applies op to the plain form of instance and rebuilds a
// typed value when the restore bridge can. Otherwise, including when the
// bridge fails to rebuild the updated value, the plain value is returned.
func (e *Engine) UpdateAndRestore(instance, op any) (any, error) {
	plain, err := codec.ToPlain(instance)
	if err != nil {
		return nil, err
	}
	updated, err := e.Update(plain, op)
	if err != nil {
		return nil, err
	}
	return e.restoreRoot(instance, updated)
}

// UpdatePropAndRestore is UpdateAndRestore scoped to one property of the
// instance.
func (e *Engine) UpdatePropAndRestore(instance any, prop string, op any) (any, error) {
	plain, err := codec.ToPlain(instance)
	if err != nil {
		return nil, err
	}
	updated, err := e.UpdateAtPath(plain, prop, op)
	if err != nil {
		return nil, err
	}
	return e.restoreRoot(instance, updated)
}

func (e *Engine) restoreRoot(original, updated any) (any, error) {
	if e.bridge == nil {
		return updated, nil
	}
	desc, ok := e.bridge.Describe(original)
	if !ok || !e.bridge.CanRestore(desc) {
		e.logger.Debug("returning plain value", "type", fmt.Sprintf("%T", original))
		return updated, nil
	}
	inst, err := e.bridge.Restore(updated, desc)
	if err != nil {
		e.logger.Debug("returning plain value", "descriptor", desc, "error", err)
		return updated, nil
	}
	return inst, nil
}
