package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	number = `[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`
	ident  = `[A-Za-z_][A-Za-z0-9_]*`
	op     = `<=|>=|==|=|<|>`
)

var (
	rangePattern    = regexp.MustCompile(`^(` + number + `)\.\.(` + number + `|N)$`)
	chainPattern    = regexp.MustCompile(`^(` + number + `)(` + op + `)` + ident + `(` + op + `)(` + number + `)$`)
	varLeftPattern  = regexp.MustCompile(`^` + ident + `(` + op + `)(` + number + `)$`)
	varRightPattern = regexp.MustCompile(`^(` + number + `)(` + op + `)` + ident + `$`)
)

// RangeConstraint bounds a numeric parameter. Unbounded sides hold an
// infinity. A disabled constraint accepts every value.
type RangeConstraint struct {
	Enabled      bool
	Expression   string
	Min          float64
	Max          float64
	MinInclusive bool
	MaxInclusive bool

	// CatalogBound marks an "a..N" range whose upper bound is supplied
	// later through WithCatalogSize.
	CatalogBound bool
}

// Unconstrained returns a disabled constraint.
func Unconstrained() RangeConstraint {
	return RangeConstraint{
		Min:          math.Inf(-1),
		Max:          math.Inf(1),
		MinInclusive: true,
		MaxInclusive: true,
	}
}

// ParseConstraint parses one of
//
//	a..b          inclusive range
//	a..N          inclusive range, upper bound from the catalog size
//	x >= k        also x > k, x <= k, x < k, x == k
//	k <= x        the same with the variable on the right
//	a < x < b     chained, each bound inclusive with <= or >=
//	b > x > a     chained, descending; both bounds inclusive
//
// Whitespace is ignored and the variable may have any identifier name. An
// unrecognized expression yields a disabled constraint and an error
// wrapping ErrInvalidConstraint.
func ParseConstraint(expr string) (RangeConstraint, error) {
	c := Unconstrained()
	c.Expression = strings.TrimSpace(expr)
	compact := strings.Join(strings.Fields(expr), "")
	if compact == "" {
		return c, fmt.Errorf("%w: empty", ErrInvalidConstraint)
	}

	fail := func(reason string) (RangeConstraint, error) {
		disabled := Unconstrained()
		disabled.Expression = c.Expression
		return disabled, fmt.Errorf("%w: %q: %s", ErrInvalidConstraint, c.Expression, reason)
	}

	switch {
	case rangePattern.MatchString(compact):
		m := rangePattern.FindStringSubmatch(compact)
		c.Min = parseBound(m[1])
		if m[2] == "N" {
			c.CatalogBound = true
		} else {
			c.Max = parseBound(m[2])
		}

	case chainPattern.MatchString(compact):
		m := chainPattern.FindStringSubmatch(compact)
		left, op1, op2, right := parseBound(m[1]), m[2], m[3], parseBound(m[4])
		switch {
		case isLess(op1) && isLess(op2):
			c.Min, c.MinInclusive = left, op1 == "<="
			c.Max, c.MaxInclusive = right, op2 == "<="
		case isGreater(op1) && isGreater(op2):
			c.Max, c.MaxInclusive = left, true
			c.Min, c.MinInclusive = right, true
		default:
			return fail("chained comparison must point one way")
		}

	case varLeftPattern.MatchString(compact):
		m := varLeftPattern.FindStringSubmatch(compact)
		applyBound(&c, m[1], parseBound(m[2]))

	case varRightPattern.MatchString(compact):
		m := varRightPattern.FindStringSubmatch(compact)
		applyBound(&c, flip(m[2]), parseBound(m[1]))

	default:
		return fail("unrecognized form")
	}

	if c.Min > c.Max || (c.Min == c.Max && !(c.MinInclusive && c.MaxInclusive)) {
		return fail("empty range")
	}
	c.Enabled = true
	return c, nil
}

// MustParseConstraint is ParseConstraint that panics on error. It is meant
// for constraints fixed at compile time.
func MustParseConstraint(expr string) RangeConstraint {
	c, err := ParseConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// applyBound applies "x op k".
func applyBound(c *RangeConstraint, op string, k float64) {
	switch op {
	case ">=":
		c.Min, c.MinInclusive = k, true
	case ">":
		c.Min, c.MinInclusive = k, false
	case "<=":
		c.Max, c.MaxInclusive = k, true
	case "<":
		c.Max, c.MaxInclusive = k, false
	default: // = and ==
		c.Min, c.Max = k, k
	}
}

// flip turns "k op x" into the operator of "x op' k".
func flip(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

func isLess(op string) bool    { return op == "<" || op == "<=" }
func isGreater(op string) bool { return op == ">" || op == ">=" }

// parseBound parses text already matched by the number pattern.
func parseBound(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// IsSatisfied reports whether v lies within the bounds.
func (c RangeConstraint) IsSatisfied(v float64) bool {
	if !c.Enabled {
		return true
	}
	if math.IsNaN(v) {
		return false
	}
	minOK := v > c.Min || (c.MinInclusive && v == c.Min)
	maxOK := v < c.Max || (c.MaxInclusive && v == c.Max)
	return minOK && maxOK
}

// WithCatalogSize returns a copy whose "N" upper bound is n. Constraints
// without a catalog bound are returned unchanged.
func (c RangeConstraint) WithCatalogSize(n int) RangeConstraint {
	if c.CatalogBound && n > 0 {
		c.Max, c.MaxInclusive = float64(n), true
	}
	return c
}

// HasMin reports whether the lower side is bounded.
func (c RangeConstraint) HasMin() bool { return !math.IsInf(c.Min, -1) }

// HasMax reports whether the upper side is bounded.
func (c RangeConstraint) HasMax() bool { return !math.IsInf(c.Max, 1) }

// String returns the source expression, or "no constraint" when disabled.
func (c RangeConstraint) String() string {
	if !c.Enabled {
		return "no constraint"
	}
	return c.Expression
}
