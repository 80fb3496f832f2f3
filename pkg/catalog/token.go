package catalog

import (
	"slices"
	"strconv"
	"strings"
)

// Limit names accepted in numeric fields.
var (
	intLimits   = []string{"INT32_MIN", "INT32_MAX"}
	floatLimits = []string{"DBL_MIN", "DBL_MAX", "INT32_MIN", "INT32_MAX"}
)

// NumericToken validates tok as a field of a composite value of data type
// dataType and returns its normalized form. int fields take 32-bit
// integers, rgb fields unsigned ones; the others take floats, nan and inf.
// A limit name may carry one sign.
func NumericToken(dataType, tok string) (string, bool) {
	body := strings.TrimLeft(tok, "+-")
	switch CanonicalType(dataType) {
	case TypeInt:
		if slices.Contains(intLimits, body) && len(tok)-len(body) <= 1 {
			return tok, true
		}
		_, err := strconv.ParseInt(tok, 0, 32)
		return tok, err == nil
	case TypeRGB:
		_, err := strconv.ParseUint(tok, 0, 32)
		return tok, err == nil
	}
	if len(tok)-len(body) > 1 {
		return "", false
	}
	switch strings.ToLower(body) {
	case "nan":
		return "nan", true
	case "inf", "infinity":
		return strings.TrimSuffix(tok, body) + "inf", true
	}
	if slices.Contains(floatLimits, body) {
		return tok, true
	}
	_, err := strconv.ParseFloat(tok, 64)
	return tok, err == nil
}

// ValidScalar reports whether text is a value of the scalar data type
// dataType. Data types with no literal syntax of their own accept anything.
func ValidScalar(dataType, text string) bool {
	switch CanonicalType(dataType) {
	case TypeBoolean:
		_, err := strconv.ParseBool(text)
		return err == nil
	case TypeByte:
		_, err := strconv.ParseUint(text, 0, 8)
		return err == nil
	}
	return true
}
