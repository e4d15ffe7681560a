package document

import (
	"math"
	"strconv"
	"strings"
)

// Value is a parameter value: a literal plus its inferred kind.
// The zero Value is an empty string.
type Value struct {
	literal string
	kind    Kind
}

// NewValue creates a Value and infers its kind from the literal.
func NewValue(literal string) Value {
	return Value{literal: literal, kind: DetectType(literal)}
}

// NewTypedValue creates a Value with an explicit kind.
func NewTypedValue(literal string, kind Kind) Value {
	return Value{literal: literal, kind: kind}
}

// StringValue creates a string Value. The literal is stored as given.
func StringValue(s string) Value {
	return Value{literal: s, kind: KindString}
}

// IntValue creates an integer Value.
func IntValue(n int64) Value {
	return Value{literal: strconv.FormatInt(n, 10), kind: KindInteger}
}

// FloatValue creates a float Value.
func FloatValue(f float64) Value {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return Value{literal: s, kind: KindFloat}
}

// BoolValue creates a boolean Value.
func BoolValue(b bool) Value {
	return Value{literal: strconv.FormatBool(b), kind: KindBoolean}
}

// ListValue creates an array Value from its elements.
func ListValue(elems []string) Value {
	return Value{literal: JoinList(elems), kind: KindArray}
}

// Literal returns the stored text.
func (v Value) Literal() string {
	return v.literal
}

// Kind returns the inferred kind.
func (v Value) Kind() Kind {
	return v.kind
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.literal
}

// Equal compares literals. Kinds are advisory and not compared.
func (v Value) Equal(other Value) bool {
	return v.literal == other.literal
}

// AsString returns the literal with outer quotes removed.
func (v Value) AsString() string {
	return Unquote(strings.TrimSpace(v.literal))
}

// AsDouble parses the literal as a float64.
func (v Value) AsDouble() (float64, error) {
	s := strings.TrimSpace(Unquote(strings.TrimSpace(v.literal)))
	if !floatPattern.MatchString(s) {
		return 0, conversionError(v.literal, "float", nil)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, conversionError(v.literal, "float", err)
	}
	return f, nil
}

// AsInt parses the literal as an int64. A float literal converts only when
// it has no fractional part.
func (v Value) AsInt() (int64, error) {
	s := strings.TrimSpace(Unquote(strings.TrimSpace(v.literal)))
	if integerPattern.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, conversionError(v.literal, "int", err)
		}
		return n, nil
	}
	f, err := v.AsDouble()
	if err != nil {
		return 0, conversionError(v.literal, "int", nil)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so compare against 2^63.
	if f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, conversionError(v.literal, "int", nil)
	}
	return int64(f), nil
}

// AsBoolean parses the literal as a boolean. Accepted spellings are
// true/false, .true./.false., 1/0, yes/no and on/off in any case.
func (v Value) AsBoolean() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(Unquote(strings.TrimSpace(v.literal)))) {
	case "true", ".true.", "1", "yes", "on":
		return true, nil
	case "false", ".false.", "0", "no", "off":
		return false, nil
	}
	return false, conversionError(v.literal, "bool", nil)
}

// AsStringVector splits the literal into list elements. Brackets are
// optional, so "a, b" and "[a, b]" give the same result.
func (v Value) AsStringVector() []string {
	return SplitList(v.literal)
}
