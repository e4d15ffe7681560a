package document

import (
	"regexp"
	"strings"
)

var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern   = regexp.MustCompile(`^[+-]?(?:[0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
)

// DetectType classifies a literal. Every string maps to exactly one kind,
// defaulting to KindString, and the result depends only on the input.
func DetectType(literal string) Kind {
	s := strings.TrimSpace(literal)
	switch {
	case s == "":
		return KindString
	case IsQuoted(s):
		return KindString
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return KindArray
	case isBooleanLiteral(s):
		return KindBoolean
	case integerPattern.MatchString(s):
		return KindInteger
	case floatPattern.MatchString(s):
		return KindFloat
	default:
		return KindString
	}
}

func isBooleanLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", ".true.", ".false.":
		return true
	}
	return false
}

// IsQuoted reports whether s is wrapped in a matching pair of single or
// double quotes.
func IsQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return first == last && (first == '\'' || first == '"')
}

// Unquote strips one matching pair of outer quotes. Text without outer
// quotes is returned unchanged.
func Unquote(s string) string {
	if IsQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// Quote wraps s in single quotes, the string convention of the native
// format.
func Quote(s string) string {
	return "'" + s + "'"
}

// NormalizeKey strips surrounding whitespace and one leading dot.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	return strings.TrimPrefix(key, ".")
}

// SplitList splits an array literal into its elements. Surrounding
// brackets are optional; commas inside quotes do not split. Elements are
// trimmed and unquoted, and inside a quoted element a doubled quote
// character stands for one.
func SplitList(literal string) []string {
	s := strings.TrimSpace(literal)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	flush := func() {
		out = append(out, unquoteElement(strings.TrimSpace(cur.String())))
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				if i+1 < len(s) && s[i+1] == quote {
					cur.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
			cur.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ',':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

func unquoteElement(e string) string {
	if !IsQuoted(e) {
		return e
	}
	q := e[:1]
	return strings.ReplaceAll(e[1:len(e)-1], q+q, q)
}

// JoinList renders elements as an array literal "[a, b, c]". Elements that
// would not survive SplitList unchanged are quoted.
func JoinList(elems []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(listElement(e))
	}
	b.WriteByte(']')
	return b.String()
}

func listElement(e string) string {
	needsQuote := e == "" ||
		e != strings.TrimSpace(e) ||
		strings.ContainsAny(e, ",'\"") ||
		IsQuoted(e)
	if !needsQuote {
		return e
	}
	q := "\""
	if strings.Contains(e, q) && !strings.Contains(e, "'") {
		q = "'"
	}
	return q + strings.ReplaceAll(e, q, q+q) + q
}
