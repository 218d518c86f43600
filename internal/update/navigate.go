// internal/update/navigate.go
package update

import (
	"errors"

	"github.com/solatis/docupdate/internal/types"
)

/*
 * Document navigation with structural sharing.
 *
 * Reads walk segments left to right and report absence instead of failing.
 * Writes rebuild every container on the path and reuse untouched siblings,
 * so the input document is never mutated:
 *
 *   - Property segment on a non-map (including absent/null/scalars)
 *     replaces it with a new map.
 *   - Index segment on a non-array replaces it with a new array; indexes past
 *     the end extend the array, filling gaps with types.Undefined.
 *
 * Operators that must not create structure (unset, pull, pop, rename) either
 * use remove() or return errUnchanged from their leaf function, in which case
 * the caller keeps the original document.
 */

// errUnchanged is returned by a leaf function to abandon the write.
var errUnchanged = errors.New("unchanged")

// leafFunc computes the new value at the end of a path. exists is false when
// the path does not resolve or resolves to an array hole.
type leafFunc func(current any, exists bool) (any, error)

// Get reads the value at a DocPath string. The bool is false when the path
// does not resolve.
func Get(doc any, path string) (any, bool, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := getSegs(doc, segs)
	return v, ok, nil
}

func getSegs(node any, segs []types.PathSegment) (any, bool) {
	for _, seg := range segs {
		child, ok := child(node, seg)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// child returns the direct child of node addressed by seg.
func child(node any, seg types.PathSegment) (any, bool) {
	switch v := node.(type) {
	case map[string]any:
		if seg.IsIndex {
			return nil, false
		}
		c, ok := v[seg.Key]
		if !ok || c == types.Undefined {
			return nil, false
		}
		return c, true
	case []any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return nil, false
		}
		if v[seg.Index] == types.Undefined {
			return nil, false
		}
		return v[seg.Index], true
	default:
		return nil, false
	}
}

// ResolveParent returns the container holding the last segment of segs.
// ok is false when the container does not exist or has the wrong kind for
// the last segment.
func ResolveParent(doc any, segs []types.PathSegment) (container any, last types.PathSegment, ok bool) {
	if len(segs) == 0 {
		return nil, types.PathSegment{}, false
	}
	last = segs[len(segs)-1]
	parent, found := getSegs(doc, segs[:len(segs)-1])
	if !found {
		return nil, last, false
	}
	switch parent.(type) {
	case map[string]any:
		return parent, last, !last.IsIndex
	case []any:
		return parent, last, last.IsIndex
	default:
		return nil, last, false
	}
}

// modify returns a copy of node with fn applied at segs. Containers along
// the path are copied; everything else is shared with node.
func modify(node any, segs []types.PathSegment, fn leafFunc) (any, error) {
	if len(segs) == 0 {
		return fn(node, node != types.Undefined)
	}

	seg := segs[0]
	rest := segs[1:]

	if seg.IsIndex {
		arr, _ := node.([]any)
		if seg.Index >= len(arr)+types.MaxArrayExtension {
			return nil, types.ErrArrayTooLong
		}
		var cur any = types.Undefined
		if seg.Index < len(arr) {
			cur = arr[seg.Index]
		}
		next, err := descend(cur, rest, fn)
		if err != nil {
			return nil, err
		}
		size := len(arr)
		if seg.Index >= size {
			size = seg.Index + 1
		}
		out := make([]any, size)
		copy(out, arr)
		for i := len(arr); i < size; i++ {
			out[i] = types.Undefined
		}
		out[seg.Index] = next
		return out, nil
	}

	obj, _ := node.(map[string]any)
	cur, ok := obj[seg.Key]
	if !ok {
		cur = types.Undefined
	}
	next, err := descend(cur, rest, fn)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out[seg.Key] = next
	return out, nil
}

// descend applies fn to the leaf when rest is empty, otherwise recurses.
func descend(cur any, rest []types.PathSegment, fn leafFunc) (any, error) {
	if len(rest) == 0 {
		return fn(cur, cur != types.Undefined)
	}
	return modify(cur, rest, fn)
}

// remove deletes the value at segs. Map keys are deleted; array slots are
// set to types.Undefined so later indexes keep their positions. The bool is
// false, and node is returned as is, when the path does not resolve.
func remove(node any, segs []types.PathSegment) (any, bool) {
	if len(segs) == 0 {
		return node, false
	}
	parent, last, ok := ResolveParent(node, segs)
	if !ok {
		return node, false
	}
	if _, exists := child(parent, last); !exists {
		return node, false
	}
	out, err := modify(node, segs[:len(segs)-1], func(container any, _ bool) (any, error) {
		switch c := container.(type) {
		case map[string]any:
			m := make(map[string]any, len(c))
			for k, v := range c {
				if k != last.Key {
					m[k] = v
				}
			}
			return m, nil
		case []any:
			a := make([]any, len(c))
			copy(a, c)
			a[last.Index] = types.Undefined
			return a, nil
		default:
			return nil, errUnchanged
		}
	})
	if err != nil {
		return node, false
	}
	return out, true
}
