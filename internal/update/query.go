// internal/update/query.go
package update

import (
	"regexp"
	"sort"
	"strings"

	"github.com/solatis/docupdate/internal/types"
)

/*
 * Match queries for $pull.
 *
 * A query is compiled once per $pull entry into a predicate and then run
 * against every array element. Query shapes:
 *
 *   literal                  element deep-equals literal
 *   {$eq: v, $in: [...]}     operator conditions on the element itself
 *   {field: literal}         element is an object whose field equals literal
 *   {field: {$regex: "J"}}   operator conditions on a (dotted) subfield
 *
 * Unknown operators, invalid regexes and field conditions against non-object
 * elements match nothing, which makes the $pull a no-op rather than an error.
 *
 * Supported operators: $eq, $ne, $in, $nin, $gt, $gte, $lt, $lte, $regex
 * (with $options), $exists.
 */

// predicate tests one array element.
type predicate func(v any, exists bool) bool

func never(any, bool) bool { return false }

// compileQuery turns a $pull operand into a predicate over elements.
func compileQuery(query any) predicate {
	switch q := query.(type) {
	case map[string]any:
		if isOperatorMap(q) {
			return compileOperators(q)
		}
		return compileFields(q)
	case *regexp.Regexp:
		return func(v any, exists bool) bool {
			s, ok := v.(string)
			return exists && ok && q.MatchString(s)
		}
	default:
		return func(v any, exists bool) bool {
			return exists && deepEqual(v, q)
		}
	}
}

// isOperatorMap reports whether every key of m is a query operator.
func isOperatorMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// compileFields builds a predicate that requires every named subfield of an
// object element to satisfy its condition.
func compileFields(q map[string]any) predicate {
	type fieldCond struct {
		path []types.PathSegment
		test predicate
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]fieldCond, 0, len(keys))
	for _, k := range keys {
		segs, err := ParsePath(k)
		if err != nil {
			return never
		}
		conds = append(conds, fieldCond{path: segs, test: compileQuery(q[k])})
	}

	return func(v any, exists bool) bool {
		if !exists || types.KindOf(v) != types.KindObject {
			return false
		}
		for _, c := range conds {
			fv, ok := getSegs(v, c.path)
			if !c.test(fv, ok) {
				return false
			}
		}
		return true
	}
}

// compileOperators builds a conjunction of operator conditions.
func compileOperators(q map[string]any) predicate {
	var tests []predicate
	options, _ := q["$options"].(string)

	for op, arg := range q {
		switch op {
		case "$eq":
			tests = append(tests, func(v any, exists bool) bool {
				return exists && deepEqual(v, arg)
			})
		case "$ne":
			tests = append(tests, func(v any, exists bool) bool {
				return !exists || !deepEqual(v, arg)
			})
		case "$in":
			list, ok := arg.([]any)
			if !ok {
				return never
			}
			tests = append(tests, func(v any, exists bool) bool {
				return exists && containsEqual(list, v)
			})
		case "$nin":
			list, ok := arg.([]any)
			if !ok {
				return never
			}
			tests = append(tests, func(v any, exists bool) bool {
				return !exists || !containsEqual(list, v)
			})
		case "$gt", "$gte", "$lt", "$lte":
			tests = append(tests, orderTest(op, arg))
		case "$regex":
			re := compileRegex(arg, options)
			if re == nil {
				return never
			}
			tests = append(tests, func(v any, exists bool) bool {
				s, ok := v.(string)
				return exists && ok && re.MatchString(s)
			})
		case "$options":
			// consumed by $regex
		case "$exists":
			want, ok := arg.(bool)
			if !ok {
				return never
			}
			tests = append(tests, func(_ any, exists bool) bool {
				return exists == want
			})
		default:
			return never
		}
	}

	return func(v any, exists bool) bool {
		for _, t := range tests {
			if !t(v, exists) {
				return false
			}
		}
		return true
	}
}

func orderTest(op string, arg any) predicate {
	return func(v any, exists bool) bool {
		if !exists {
			return false
		}
		c, ok := compareOrder(v, arg)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		default:
			return c <= 0
		}
	}
}

// compileRegex accepts a pattern string or a compiled *regexp.Regexp.
// Supported $options flags: i, m, s. Returns nil for anything unusable.
func compileRegex(arg any, options string) *regexp.Regexp {
	switch p := arg.(type) {
	case *regexp.Regexp:
		return p
	case string:
		var flags strings.Builder
		for _, f := range options {
			if strings.ContainsRune("ims", f) {
				flags.WriteRune(f)
			}
		}
		if flags.Len() > 0 {
			p = "(?" + flags.String() + ")" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil
		}
		return re
	default:
		return nil
	}
}
