package navigator

import (
	"github.com/oakwood-commons/jtv/internal/tree"
)

// Shape describes the general structure of a value. Every downstream
// decision (editable cell vs drill-down cell, flattening strategy) is keyed
// off it.
type Shape string

const (
	ShapePrimitive        Shape = "primitive"
	ShapeEmptyArray       Shape = "empty_array"
	ShapeObject           Shape = "object"
	ShapeArrayOfPrimitive Shape = "array_of_primitive"
	ShapeArrayOfObject    Shape = "array_of_object"
)

// Classify returns the shape of v. Non-empty arrays are classified by their
// first element only, so [1, {"a":1}] is an array of primitives.
func Classify(v tree.Value) Shape {
	switch v.Kind() {
	case tree.KindObject:
		return ShapeObject
	case tree.KindArray:
		first, ok := v.At(0)
		if !ok {
			return ShapeEmptyArray
		}
		if Classify(first) == ShapePrimitive {
			return ShapeArrayOfPrimitive
		}
		return ShapeArrayOfObject
	default:
		return ShapePrimitive
	}
}

// IsPrimitive reports whether v has no children.
func IsPrimitive(v tree.Value) bool {
	return Classify(v) == ShapePrimitive
}

// IsRowShaped reports whether v is a non-empty array whose first element is an
// object. Only row-shaped arrays are filtered, sorted and exported.
func IsRowShaped(v tree.Value) bool {
	first, ok := v.At(0)
	return ok && Classify(first) == ShapeObject
}
