package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/metatype"
)

const flowPkg = metatype.FlowPkg

// dblMin is the smallest normalized float64, which math does not name.
const dblMin = 2.2250738585072014e-308

// symbol renders a catalog symbol. "import/path.Name" becomes a qualified
// reference; anything else is a local identifier.
func symbol(s string) *jen.Statement {
	if path, name, ok := splitSymbol(s); ok {
		return jen.Qual(path, name)
	}
	return jen.Id(s)
}

// fieldType is the Go type generated options structs use for dataType.
func fieldType(dataType string) *jen.Statement {
	switch catalog.CanonicalType(dataType) {
	case catalog.TypeInt:
		return jen.Qual(flowPkg, "IntRange")
	case catalog.TypeFloat:
		return jen.Qual(flowPkg, "FloatRange")
	case catalog.TypeSpecRange:
		return jen.Qual(flowPkg, "SpecRange")
	case catalog.TypeRGB:
		return jen.Qual(flowPkg, "RGB")
	case catalog.TypeDirectionVector:
		return jen.Qual(flowPkg, "DirectionVector")
	case catalog.TypeString:
		return jen.String()
	case catalog.TypeBoolean:
		return jen.Bool()
	case catalog.TypeByte:
		return jen.Byte()
	}
	return jen.Id("any")
}

// value renders v as a Go expression for an option of dataType. It returns
// false when the field should be left at its zero value.
func value(dataType string, v catalog.Value) (jen.Code, bool) {
	switch v := v.(type) {
	case nil, catalog.RawValue:
		return nil, false
	case catalog.Composite:
		return composite(catalog.CanonicalType(dataType), v)
	case catalog.StringValue:
		return scalar(catalog.CanonicalType(dataType), v.Text), true
	default:
		panic(fmt.Sprintf("emit: unknown option value %T", v))
	}
}

func scalar(dataType, text string) jen.Code {
	switch dataType {
	case catalog.TypeString:
		return jen.Lit(text)
	case catalog.TypeBoolean:
		if b, err := strconv.ParseBool(text); err == nil {
			return jen.Lit(b)
		}
	case catalog.TypeByte:
		if n, err := strconv.ParseUint(text, 0, 8); err == nil {
			return jen.Lit(int(n))
		}
	}
	return jen.Id(text)
}

func composite(dataType string, v catalog.Composite) (jen.Code, bool) {
	var (
		typeName string
		token    = floatToken
	)
	switch v.(type) {
	case catalog.RangeValue:
		typeName = "FloatRange"
		if dataType == catalog.TypeInt {
			typeName, token = "IntRange", intToken
		}
	case catalog.SpecRangeValue:
		typeName = "SpecRange"
	case catalog.RGBValue:
		typeName, token = "RGB", uintToken
	case catalog.DirectionVectorValue:
		typeName = "DirectionVector"
	default:
		panic(fmt.Sprintf("emit: unknown composite value %T", v))
	}

	var fields []jen.Code
	for _, name := range v.FieldNames() {
		tok := v.Field(name)
		if tok == "" {
			continue
		}
		fields = append(fields, jen.Id(goFieldName(name)).Op(":").Add(token(tok)))
	}
	if len(fields) == 0 {
		return nil, false
	}
	return jen.Qual(flowPkg, typeName).Values(fields...), true
}

func goFieldName(field string) string {
	switch field {
	case "red_max":
		return "RedMax"
	case "green_max":
		return "GreenMax"
	case "blue_max":
		return "BlueMax"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// splitSign separates a leading sign from tok. A "+" sign is dropped.
func splitSign(tok string) (neg bool, body string) {
	switch {
	case strings.HasPrefix(tok, "-"):
		return true, tok[1:]
	case strings.HasPrefix(tok, "+"):
		return false, tok[1:]
	}
	return false, tok
}

func negate(neg bool, c jen.Code) jen.Code {
	if neg {
		return jen.Op("-").Add(c)
	}
	return c
}

func intToken(tok string) jen.Code {
	neg, body := splitSign(tok)
	switch body {
	case "INT32_MAX":
		return negate(neg, jen.Qual("math", "MaxInt32"))
	case "INT32_MIN":
		if neg {
			// -INT32_MIN does not fit, saturate
			return jen.Qual("math", "MaxInt32")
		}
		return jen.Qual("math", "MinInt32")
	}
	if n, err := strconv.ParseInt(tok, 0, 32); err == nil {
		return jen.Lit(int(n))
	}
	return jen.Id(tok)
}

func uintToken(tok string) jen.Code {
	if n, err := strconv.ParseUint(tok, 0, 32); err == nil {
		return jen.Lit(int(n))
	}
	return jen.Id(tok)
}

func floatToken(tok string) jen.Code {
	neg, body := splitSign(tok)
	switch strings.ToLower(body) {
	case "nan":
		return jen.Qual("math", "NaN").Call()
	case "inf", "infinity":
		sign := 1
		if neg {
			sign = -1
		}
		return jen.Qual("math", "Inf").Call(jen.Lit(sign))
	}
	switch body {
	case "DBL_MAX":
		return negate(neg, jen.Qual("math", "MaxFloat64"))
	case "DBL_MIN":
		return negate(neg, jen.Lit(dblMin))
	case "INT32_MAX":
		return negate(neg, jen.Qual("math", "MaxInt32"))
	case "INT32_MIN":
		return negate(neg, jen.Qual("math", "MinInt32"))
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return jen.Lit(f)
	}
	return jen.Id(tok)
}
