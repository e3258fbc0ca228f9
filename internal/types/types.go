// Package types defines the static type lattice attached to every IR expression.
package types

// Type is an ordered tag. Comparisons between numeric types rely on the
// declaration order below, so new tags must be added inside their band.
type Type uint8

const (
	// Invalid marks an expression whose type could not be determined.
	Invalid Type = iota
	// Undefined is the type of the undefined value.
	Undefined
	// Null is the type of the null value.
	Null
	// Void is the type of expressions evaluated for effect only.
	Void

	// String is the canonical string type.
	String
	// URL is a string-like url value.
	URL
	// Color is a string-like color value.
	Color

	// SGAnchorLine tags scene-graph anchor lines.
	SGAnchorLine
	// AttachType tags attached-property objects.
	AttachType
	// Object tags plain objects.
	Object
	// Variant tags dynamically typed host values.
	Variant
	// Var tags dynamically typed script values.
	Var

	// Bool starts the numeric band.
	Bool
	// Int is a 32-bit integer.
	Int
	// Float is a single precision real.
	Float
	// Number is a double precision real.
	Number
)

const (
	// FirstStringType is the lowest tag of the string band.
	FirstStringType = String
	// FirstNumberType is the lowest tag of the numeric band.
	FirstNumberType = Bool
)

func (t Type) String() string {
	switch t {
	case Invalid:
		return "invalid"
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Void:
		return "void"
	case String:
		return "string"
	case URL:
		return "url"
	case Color:
		return "color"
	case SGAnchorLine:
		return "anchorline"
	case AttachType:
		return "attachtype"
	case Object:
		return "object"
	case Variant:
		return "variant"
	case Var:
		return "var"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Number:
		return "number"
	default:
		return "invalid"
	}
}

// Valid reports whether t is one of the declared tags.
func (t Type) Valid() bool {
	return t <= Number
}

// IsNumber reports whether t belongs to the numeric band.
func IsNumber(t Type) bool {
	return t >= FirstNumberType && t <= Number
}

// IsString reports whether t belongs to the string band.
func IsString(t Type) bool {
	return t == String || t == URL || t == Color
}

// IsReal reports whether t is a floating point type.
func IsReal(t Type) bool {
	return t == Float || t == Number
}

// MaxType returns the promoted type of a binary combination of left and right.
//
// String promotion is checked before identity so that two string-like values
// (url + url) still collapse toward String.
func MaxType(left, right Type) Type {
	switch {
	case IsString(left) && IsString(right):
		return String
	case left == right:
		return left
	case IsNumber(left) && IsNumber(right):
		ty := max(left, right)
		if ty == Float {
			return Number
		}
		return ty
	case IsNumber(left) && IsString(right), IsString(left) && IsNumber(right):
		return String
	default:
		return Invalid
	}
}

// Parse maps a type name produced by String back to its tag.
func Parse(name string) (Type, bool) {
	for t := Invalid; t <= Number; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return Invalid, false
}
