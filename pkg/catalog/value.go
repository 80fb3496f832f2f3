package catalog

import (
	"fmt"
	"strings"
)

// Value is an option default or resolved option value. It is a closed sum:
// StringValue, RangeValue, SpecRangeValue, RGBValue, DirectionVectorValue
// and RawValue are the only implementations.
//
// Numeric fields of the composite variants hold the raw token as written in
// the source (a number, a limit name such as INT32_MAX, or nan/inf); an
// empty field means "not set".
type Value interface {
	fmt.Stringer
	isValue()
}

// Composite is a Value made of named numeric fields.
type Composite interface {
	Value
	FieldNames() []string
	Field(name string) string
	WithField(name, val string) (Composite, bool)
}

// StringValue is a scalar default: a string, number or boolean token.
type StringValue struct {
	Text string
}

// RangeValue is the int and float option value.
type RangeValue struct {
	Val, Min, Max, Step string
}

// SpecRangeValue is the drange-spec option value.
type SpecRangeValue struct {
	Min, Max, Step string
}

// RGBValue is the rgb option value.
type RGBValue struct {
	Red, Green, Blue          string
	RedMax, GreenMax, BlueMax string
}

// DirectionVectorValue is the direction-vector option value.
type DirectionVectorValue struct {
	X, Y, Z, Min, Max string
}

// RawValue is a default the loader could not interpret for its data type,
// kept as source text.
type RawValue struct {
	Text string
}

func (StringValue) isValue()          {}
func (RangeValue) isValue()           {}
func (SpecRangeValue) isValue()       {}
func (RGBValue) isValue()             {}
func (DirectionVectorValue) isValue() {}
func (RawValue) isValue()             {}

func (v StringValue) String() string { return v.Text }
func (v RawValue) String() string    { return v.Text }

// ─── composite fields ─────────────────────────────────────────────────────────

var (
	rangeFields     = []string{"val", "min", "max", "step"}
	specRangeFields = []string{"min", "max", "step"}
	rgbFields       = []string{"red", "green", "blue", "red_max", "green_max", "blue_max"}
	vectorFields    = []string{"x", "y", "z", "min", "max"}
)

func (v RangeValue) FieldNames() []string { return rangeFields }

func (v RangeValue) Field(name string) string {
	switch name {
	case "val":
		return v.Val
	case "min":
		return v.Min
	case "max":
		return v.Max
	case "step":
		return v.Step
	}
	return ""
}

func (v RangeValue) WithField(name, val string) (Composite, bool) {
	switch name {
	case "val":
		v.Val = val
	case "min":
		v.Min = val
	case "max":
		v.Max = val
	case "step":
		v.Step = val
	default:
		return v, false
	}
	return v, true
}

func (v SpecRangeValue) FieldNames() []string { return specRangeFields }

func (v SpecRangeValue) Field(name string) string {
	switch name {
	case "min":
		return v.Min
	case "max":
		return v.Max
	case "step":
		return v.Step
	}
	return ""
}

func (v SpecRangeValue) WithField(name, val string) (Composite, bool) {
	switch name {
	case "min":
		v.Min = val
	case "max":
		v.Max = val
	case "step":
		v.Step = val
	default:
		return v, false
	}
	return v, true
}

func (v RGBValue) FieldNames() []string { return rgbFields }

func (v RGBValue) Field(name string) string {
	switch name {
	case "red":
		return v.Red
	case "green":
		return v.Green
	case "blue":
		return v.Blue
	case "red_max":
		return v.RedMax
	case "green_max":
		return v.GreenMax
	case "blue_max":
		return v.BlueMax
	}
	return ""
}

func (v RGBValue) WithField(name, val string) (Composite, bool) {
	switch name {
	case "red":
		v.Red = val
	case "green":
		v.Green = val
	case "blue":
		v.Blue = val
	case "red_max":
		v.RedMax = val
	case "green_max":
		v.GreenMax = val
	case "blue_max":
		v.BlueMax = val
	default:
		return v, false
	}
	return v, true
}

func (v DirectionVectorValue) FieldNames() []string { return vectorFields }

func (v DirectionVectorValue) Field(name string) string {
	switch name {
	case "x":
		return v.X
	case "y":
		return v.Y
	case "z":
		return v.Z
	case "min":
		return v.Min
	case "max":
		return v.Max
	}
	return ""
}

func (v DirectionVectorValue) WithField(name, val string) (Composite, bool) {
	switch name {
	case "x":
		v.X = val
	case "y":
		v.Y = val
	case "z":
		v.Z = val
	case "min":
		v.Min = val
	case "max":
		v.Max = val
	default:
		return v, false
	}
	return v, true
}

func (v RangeValue) String() string           { return compositeString(v) }
func (v SpecRangeValue) String() string       { return compositeString(v) }
func (v RGBValue) String() string             { return compositeString(v) }
func (v DirectionVectorValue) String() string { return compositeString(v) }

// compositeString renders the set fields in the explicit option syntax,
// e.g. "val:10|max:100".
func compositeString(c Composite) string {
	var parts []string
	for _, name := range c.FieldNames() {
		if f := c.Field(name); f != "" {
			parts = append(parts, name+":"+f)
		}
	}
	return strings.Join(parts, "|")
}

// ─── data types ───────────────────────────────────────────────────────────────

// Canonical option data type names.
const (
	TypeInt             = "int"
	TypeFloat           = "float"
	TypeString          = "string"
	TypeBoolean         = "boolean"
	TypeByte            = "byte"
	TypeRGB             = "rgb"
	TypeDirectionVector = "direction-vector"
	TypeSpecRange       = "drange-spec"
)

// CanonicalType folds data type aliases onto their canonical name.
func CanonicalType(dataType string) string {
	switch dataType {
	case "drange":
		return TypeFloat
	case "irange":
		return TypeInt
	case "direction_vector":
		return TypeDirectionVector
	case "drange_spec":
		return TypeSpecRange
	case "bool":
		return TypeBoolean
	}
	return dataType
}

// ZeroComposite returns the empty composite value for dataType, or false
// when the data type is not composite.
func ZeroComposite(dataType string) (Composite, bool) {
	switch CanonicalType(dataType) {
	case TypeInt, TypeFloat:
		return RangeValue{}, true
	case TypeSpecRange:
		return SpecRangeValue{}, true
	case TypeRGB:
		return RGBValue{}, true
	case TypeDirectionVector:
		return DirectionVectorValue{}, true
	}
	return nil, false
}
