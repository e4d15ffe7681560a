// Package pointer addresses document content with slash-delimited paths,
// a two-level subset of RFC 6901:
//
//	/               the whole document
//	/section        one section
//	/section/key    one parameter
//
// "~" and "/" inside a token are written as "~0" and "~1".
package pointer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/codec"
	"github.com/dshills/cfgdoc/internal/config/document"
)

// ErrInvalidPath is returned for paths outside the grammar.
var ErrInvalidPath = errors.New("invalid path")

// ErrRootPath is returned when a write targets the root path.
var ErrRootPath = errors.New("root path is not writable")

// Parse splits path into unescaped tokens. The root path yields no tokens.
func Parse(path string) ([]string, error) {
	if path == "/" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPath, path)
	}
	parts := strings.Split(path[1:], "/")
	if len(parts) > 2 {
		return nil, fmt.Errorf("%w: %q has more than two segments", ErrInvalidPath, path)
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
		parts[i] = Unescape(p)
	}
	return parts, nil
}

// Format builds a path from raw tokens.
func Format(tokens ...string) string {
	if len(tokens) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(Escape(t))
	}
	return b.String()
}

// Escape encodes "~" as "~0" and "/" as "~1".
func Escape(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// Unescape reverses Escape.
func Unescape(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// Get returns the literal at a parameter path, the JSON rendering of a
// section or of the whole document, or "" when path does not resolve.
func Get(doc *document.Document, path string) string {
	tokens, err := Parse(path)
	if err != nil {
		return ""
	}
	switch len(tokens) {
	case 0:
		data, err := codec.JSONCodec{}.Encode(doc)
		if err != nil {
			return ""
		}
		return string(data)
	case 1:
		s, ok := doc.GetSection(tokens[0])
		if !ok {
			return ""
		}
		return string(codec.JSONCodec{}.EncodeSection(s))
	default:
		v, ok := doc.GetValue(tokens[0], tokens[1])
		if !ok {
			return ""
		}
		return v.Literal()
	}
}

// Lookup is Get for parameter paths that also reports whether the
// parameter exists, so an empty value can be told from a missing one.
func Lookup(doc *document.Document, path string) (document.Value, bool) {
	tokens, err := Parse(path)
	if err != nil || len(tokens) != 2 {
		return document.Value{}, false
	}
	return doc.GetValue(tokens[0], tokens[1])
}

// Set writes literal at a parameter path, creating the section when
// needed. A section path creates an empty section and ignores literal.
// Nothing is written when an error is returned.
func Set(doc *document.Document, path, literal string) error {
	tokens, err := Parse(path)
	if err != nil {
		return err
	}
	switch len(tokens) {
	case 0:
		return ErrRootPath
	case 1:
		doc.AddSection(tokens[0])
	default:
		if document.NormalizeKey(tokens[1]) == "" {
			return fmt.Errorf("%w: %q has an empty key", ErrInvalidPath, path)
		}
		doc.SetParameter(tokens[0], tokens[1], literal)
	}
	return nil
}

// Has reports whether path resolves. The root always resolves.
func Has(doc *document.Document, path string) bool {
	tokens, err := Parse(path)
	if err != nil {
		return false
	}
	switch len(tokens) {
	case 0:
		return true
	case 1:
		return doc.HasSection(tokens[0])
	default:
		return doc.HasParameter(tokens[0], tokens[1])
	}
}

// Delete removes the section or parameter at path. The root cannot be
// deleted.
func Delete(doc *document.Document, path string) bool {
	tokens, err := Parse(path)
	if err != nil {
		return false
	}
	switch len(tokens) {
	case 0:
		return false
	case 1:
		return doc.DeleteSection(tokens[0])
	default:
		return doc.DeleteParameter(tokens[0], tokens[1])
	}
}

// AllPaths lists every section path followed by its parameter paths, in
// document order.
func AllPaths(doc *document.Document) []string {
	var paths []string
	for _, s := range doc.Sections() {
		paths = append(paths, Format(s.Name()))
		for _, k := range s.Keys() {
			paths = append(paths, Format(s.Name(), k))
		}
	}
	return paths
}
