// internal/types/operation.go
package types

/*
 * Domain types for update operations.
 *
 * Provides PathSegment, the closed Operator set and the canonical
 * UpdateOperation shape consumed by internal/update. These types are
 * wire-format agnostic; transports convert to and from them at the API
 * boundary.
 *
 * Key types:
 *   - PathSegment: One component of a DocPath (property or array index)
 *   - Operator: Closed enum of update operators
 *   - Operand: DocPath string to operator-specific value
 *   - UpdateOperation: Operator to Operand
 */

// PathSegment represents one component of a DocPath.
type PathSegment struct {
	Key     string // object key (mutually exclusive with Index)
	Index   int    // array index (mutually exclusive with Key)
	IsIndex bool   // disambiguates Index=0 from unset
}

// Operator enumerates the update operators. The declaration order is the
// order in which an operation's groups are applied.
type Operator int

const (
	OpSet Operator = iota
	OpInc
	OpMin
	OpMax
	OpMul
	OpPush
	OpAddToSet
	OpPull
	OpPop
	OpRename
	OpUnset
	OpBit
	OpCurrentDate
	OpAppend
	OpRestore

	numOperators
)

var operatorNames = [numOperators]string{
	OpSet:         "$set",
	OpInc:         "$inc",
	OpMin:         "$min",
	OpMax:         "$max",
	OpMul:         "$mul",
	OpPush:        "$push",
	OpAddToSet:    "$addToSet",
	OpPull:        "$pull",
	OpPop:         "$pop",
	OpRename:      "$rename",
	OpUnset:       "$unset",
	OpBit:         "$bit",
	OpCurrentDate: "$currentDate",
	OpAppend:      "$append",
	OpRestore:     "$restore",
}

// String returns the wire key of the operator, e.g. "$addToSet".
func (op Operator) String() string {
	if op < 0 || op >= numOperators {
		return "$unknown"
	}
	return operatorNames[op]
}

// ParseOperator maps a case-sensitive wire key to its Operator.
func ParseOperator(key string) (Operator, bool) {
	for i, name := range operatorNames {
		if name == key {
			return Operator(i), true
		}
	}
	return 0, false
}

// Operators returns every operator in application order.
func Operators() []Operator {
	ops := make([]Operator, numOperators)
	for i := range ops {
		ops[i] = Operator(i)
	}
	return ops
}

// Operand maps DocPath strings to operator-specific values.
type Operand map[string]any

// UpdateOperation is the canonical form of an update: at most one Operand
// per operator.
type UpdateOperation map[Operator]Operand

// Plain converts the operation back to its wire shape
// ({"$set": {...}, ...}) for JSON, YAML or protobuf encoding.
func (u UpdateOperation) Plain() map[string]any {
	out := make(map[string]any, len(u))
	for op, operand := range u {
		m := make(map[string]any, len(operand))
		for k, v := range operand {
			m[k] = v
		}
		out[op.String()] = m
	}
	return out
}
