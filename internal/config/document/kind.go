package document

import "strings"

// Kind is the inferred type of a Value.
type Kind uint8

const (
	// KindString is the default kind for any literal.
	KindString Kind = iota
	// KindInteger is a whole number literal.
	KindInteger
	// KindFloat is a decimal or exponent literal.
	KindFloat
	// KindBoolean is a true/false literal.
	KindBoolean
	// KindArray is a bracketed, comma-separated list.
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "bool"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name back to a Kind.
// Unknown names map to KindString.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInteger
	case "float", "double", "number":
		return KindFloat
	case "bool", "boolean":
		return KindBoolean
	case "array", "list":
		return KindArray
	default:
		return KindString
	}
}

// IsNumeric returns true for integer and float kinds.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}
